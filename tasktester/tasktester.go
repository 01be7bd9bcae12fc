// Package tasktester runs tasks against single jobs without a gateway. It is meant for unit testing
// handlers together with their decorators and exception handlers.
package tasktester

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/task"
)

// Outcome records how a job was acknowledged.
type Outcome struct {
	Status job.Status

	// Variables reported with the acknowledgment.
	Variables job.Variables

	Message      string
	ErrorCode    string
	Retries      int32
	RetryBackOff time.Duration

	// Timeouts lists every activation timeout update, in order.
	Timeouts []time.Duration
}

type recorder struct {
	mu      sync.Mutex
	outcome Outcome
}

var _ job.Acknowledger = (*recorder)(nil)

func (r *recorder) CompleteJob(_ context.Context, _ int64, variables job.Variables) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcome.Variables = variables
	return nil
}

func (r *recorder) FailJob(_ context.Context, _ int64, retries int32, message string, retryBackOff time.Duration, variables job.Variables) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcome.Retries = retries
	r.outcome.Message = message
	r.outcome.RetryBackOff = retryBackOff
	r.outcome.Variables = variables
	return nil
}

func (r *recorder) ThrowError(_ context.Context, _ int64, message, errorCode string, variables job.Variables) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcome.Message = message
	r.outcome.ErrorCode = errorCode
	r.outcome.Variables = variables
	return nil
}

func (r *recorder) UpdateJobTimeout(_ context.Context, _ int64, timeout time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcome.Timeouts = append(r.outcome.Timeouts, timeout)
	return nil
}

// NewJob returns a running job of taskType as the gateway would activate it.
func NewJob(taskType string, variables job.Variables) *job.Job {
	return job.New(job.Job{
		Key:                1,
		Type:               taskType,
		ProcessInstanceKey: 2,
		BpmnProcessID:      "test",
		ElementID:          taskType,
		Worker:             "tasktester",
		Retries:            3,
		Deadline:           time.Now().Add(task.DefaultTimeout),
		Variables:          variables,
	})
}

// Run executes t's full middleware stack for j and returns how the job was acknowledged.
func Run(ctx context.Context, t *task.Task, j *job.Job, logger *slog.Logger) (*Outcome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &recorder{}
	c := job.NewController(j, r, logger)

	if _, err := t.Handler(logger)(ctx, j, c); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.outcome
	o.Status = c.Status()

	return &o, nil
}

// RunHandler compiles handler for cfg and runs it for a new job with the given variables.
func RunHandler(ctx context.Context, cfg task.Config, handler any, variables job.Variables) (*Outcome, error) {
	t, err := task.New(cfg, handler)
	if err != nil {
		return nil, err
	}

	return Run(ctx, t, NewJob(t.Type(), variables), nil)
}
