package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/cschleiden/go-zeebe/log"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

//go:generate mockery --name=Acknowledger --inpackage

// Acknowledger reports job outcomes to the gateway.
type Acknowledger interface {
	CompleteJob(ctx context.Context, key int64, variables Variables) error
	FailJob(ctx context.Context, key int64, retries int32, message string, retryBackOff time.Duration, variables Variables) error
	ThrowError(ctx context.Context, key int64, message, errorCode string, variables Variables) error
	UpdateJobTimeout(ctx context.Context, key int64, timeout time.Duration) error
}

// Controller mediates the acknowledgment of a single job. Every job is acknowledged at most once: the
// status is claimed before the gateway is contacted, so a second acknowledgment fails locally with
// zeebeerrors.ErrJobAlreadyDeactivated.
type Controller struct {
	job    *Job
	ack    Acknowledger
	logger *slog.Logger
}

func NewController(j *Job, ack Acknowledger, logger *slog.Logger) *Controller {
	if j.state == nil {
		j.state = &state{status: StatusRunning}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		job: j,
		ack: ack,
		logger: logger.With(
			log.JobKeyKey, j.Key,
			log.TaskTypeKey, j.Type,
		),
	}
}

func (c *Controller) Job() *Job {
	return c.job
}

func (c *Controller) Status() Status {
	return c.job.Status()
}

// SetRunningAfterDecoratorsStatus marks the end of handler and decorator execution. It has no effect
// unless the job is Running.
func (c *Controller) SetRunningAfterDecoratorsStatus() {
	s := c.job.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning {
		s.status = StatusRunningAfterDecorators
	}
}

// SetSuccess completes the job with the given variables.
func (c *Controller) SetSuccess(ctx context.Context, variables Variables) error {
	if err := c.claim(StatusCompleted); err != nil {
		return err
	}

	c.logger.Debug("Completing job")

	return c.ack.CompleteJob(ctx, c.job.Key, variables)
}

// SetFailure fails the job, decrementing its remaining retries. A retryBackOff of zero lets the
// gateway retry immediately.
func (c *Controller) SetFailure(ctx context.Context, message string, retryBackOff time.Duration, variables Variables) error {
	if err := c.claim(StatusFailed); err != nil {
		return err
	}

	retries := c.job.Retries - 1
	if retries < 0 {
		retries = 0
	}

	c.logger.Debug("Failing job", log.JobRetriesKey, retries)

	return c.ack.FailJob(ctx, c.job.Key, retries, message, retryBackOff, variables)
}

// SetError throws a BPMN error with the given code for the job.
func (c *Controller) SetError(ctx context.Context, message, errorCode string, variables Variables) error {
	if err := c.claim(StatusErrorThrown); err != nil {
		return err
	}

	c.logger.Debug("Throwing error for job", log.ErrorCodeKey, errorCode)

	return c.ack.ThrowError(ctx, c.job.Key, message, errorCode, variables)
}

// SetJobTimeout updates the activation timeout of a job which is still running.
func (c *Controller) SetJobTimeout(ctx context.Context, timeout time.Duration) error {
	if c.job.Status().Terminal() {
		return &zeebeerrors.ErrJobAlreadyDeactivated{Key: c.job.Key}
	}

	return c.ack.UpdateJobTimeout(ctx, c.job.Key, timeout)
}

func (c *Controller) claim(to Status) error {
	s := c.job.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return &zeebeerrors.ErrJobAlreadyDeactivated{Key: c.job.Key}
	}

	s.status = to

	return nil
}
