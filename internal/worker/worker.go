// Package worker runs the poll and dispatch pipeline of a single task.
package worker

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-zeebe/adapter"
	"github.com/cschleiden/go-zeebe/contextpropagation"
	"github.com/cschleiden/go-zeebe/internal/metrickeys"
	"github.com/cschleiden/go-zeebe/internal/tracing"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/log"
	"github.com/cschleiden/go-zeebe/metrics"
	"github.com/cschleiden/go-zeebe/task"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Adapter is the part of the gateway adapter used by workers.
type Adapter interface {
	job.Acknowledger

	ActivateJobs(ctx context.Context, req adapter.ActivateJobsRequest) iter.Seq2[*job.Job, error]
	StreamActivateJobs(ctx context.Context, req adapter.StreamActivateJobsRequest) iter.Seq2[*job.Job, error]

	Connected() bool
	RetryingConnection() bool
}

var _ Adapter = (*adapter.Adapter)(nil)

type stoppingKey struct{}

// WithStopping returns a context whose Stopping channel is stop.
func WithStopping(ctx context.Context, stop <-chan struct{}) context.Context {
	return context.WithValue(ctx, stoppingKey{}, stop)
}

// Stopping returns a channel that is closed when the worker running the current job stops. It returns nil
// outside of job handlers.
func Stopping(ctx context.Context) <-chan struct{} {
	stop, _ := ctx.Value(stoppingKey{}).(<-chan struct{})
	return stop
}

// JobWorker polls the jobs of one task and runs its handler for each of them.
type JobWorker struct {
	config  task.Config
	handler task.HandleFunc

	adapter Adapter
	options *Options

	state *taskState
	queue *workQueue

	logger  *slog.Logger
	metrics metrics.Client
	tracer  trace.Tracer

	pollerDone   chan struct{}
	executorDone chan struct{}
	handlersWg   sync.WaitGroup

	err error
}

func NewJobWorker(t *task.Task, a Adapter, options *Options) *JobWorker {
	cfg := t.Config()

	// An empty list fetches all variables, propagated ones included
	if len(cfg.VariablesToFetch) > 0 {
		for _, name := range contextpropagation.Variables(options.ContextPropagators) {
			if !slices.Contains(cfg.VariablesToFetch, name) {
				cfg.VariablesToFetch = append(slices.Clip(cfg.VariablesToFetch), name)
			}
		}
	}

	logger := options.Logger.With(
		log.TaskTypeKey, cfg.Type,
		log.WorkerNameKey, options.Name,
	)

	return &JobWorker{
		config:       cfg,
		handler:      t.Handler(logger),
		adapter:      a,
		options:      options,
		state:        newTaskState(),
		queue:        newWorkQueue(cfg.MaxRunningJobs),
		logger:       logger,
		metrics:      options.Metrics.WithTags(metrics.Tags{metrickeys.TaskType: cfg.Type, metrickeys.Worker: options.Name}),
		tracer:       options.TracerProvider.Tracer(tracing.TracerName),
		pollerDone:   make(chan struct{}),
		executorDone: make(chan struct{}),
	}
}

// Start launches the poller and the executor. Cancelling ctx stops polling; handlers run with handlerCtx.
func (w *JobWorker) Start(ctx context.Context, handlerCtx context.Context) {
	go w.poller(ctx)
	go w.executor(handlerCtx)
}

// Done is closed when the poller has exited.
func (w *JobWorker) Done() <-chan struct{} {
	return w.pollerDone
}

// Err returns the error that stopped the poller, if any. Only valid after Done is closed.
func (w *JobWorker) Err() error {
	<-w.pollerDone
	return w.err
}

// WaitForCompletion waits for the poller to exit and all activated jobs to be handled.
func (w *JobWorker) WaitForCompletion() error {
	<-w.pollerDone

	w.queue.close()
	<-w.executorDone

	return w.err
}

func (w *JobWorker) poller(ctx context.Context) {
	defer close(w.pollerDone)

	w.logger.Debug("Starting poller")
	defer w.logger.Debug("Poller stopped")

	b := w.options.TransportRetryBackOff()
	failures := 0

	for ctx.Err() == nil {
		if !w.adapter.Connected() && !w.adapter.RetryingConnection() {
			w.err = &zeebeerrors.ErrGatewayUnavailable{Cause: errors.New("connection to gateway closed")}
			w.logger.Error("Stopping poller, gateway connection was closed")
			return
		}

		active := w.state.count()
		if active >= w.config.MaxRunningJobs {
			w.sleep(ctx, w.options.PollRetryDelay)
			continue
		}

		err := w.activate(ctx, min(w.config.MaxRunningJobs-active, w.config.MaxJobsToActivate))
		if err == nil {
			failures = 0
			b.Reset()
			continue
		}

		if ctx.Err() != nil {
			return
		}

		var (
			invalid       *zeebeerrors.ErrActivateJobsRequestInvalid
			streamInvalid *zeebeerrors.ErrStreamActivateJobsRequestInvalid
			deadline      *zeebeerrors.ErrDeadlineExceeded
			backPressure  *zeebeerrors.ErrBackPressure
			unavailable   *zeebeerrors.ErrGatewayUnavailable
			internal      *zeebeerrors.ErrInternal
		)

		switch {
		case errors.As(err, &invalid), errors.As(err, &streamInvalid):
			w.err = err
			w.logger.Error("Invalid activation request, stopping poller", "error", err)
			return

		case errors.As(err, &deadline):
			// Long poll ended without jobs
			continue
		}

		w.metrics.Counter(metrickeys.PollerErrors, metrics.Tags{}, 1)

		failures++
		if max := w.options.MaxConsecutivePollFailures; max >= 0 && failures > max {
			w.err = &zeebeerrors.ErrMaxConsecutiveTaskThread{TaskType: w.config.Type, Failures: failures, Cause: err}
			w.logger.Error("Too many consecutive poll failures, stopping poller", "error", err)
			return
		}

		switch {
		case errors.As(err, &backPressure), errors.As(err, &unavailable), errors.As(err, &internal):
			delay := b.NextBackOff()
			if delay == backoff.Stop {
				w.err = err
				w.logger.Error("Giving up polling", "error", err)
				return
			}

			w.logger.Warn("Failed to activate jobs, retrying", "error", err, log.DurationKey, delay.Milliseconds())
			w.sleep(ctx, delay)

		default:
			w.logger.Error("Failed to activate jobs", "error", err)
			w.sleep(ctx, w.options.PollRetryDelay)
		}
	}
}

func (w *JobWorker) activate(ctx context.Context, batch int) error {
	if w.options.Stream {
		return w.stream(ctx)
	}

	w.logger.Debug("Activating jobs", log.BatchSizeKey, batch)

	activated := 0
	for j, err := range w.adapter.ActivateJobs(ctx, adapter.ActivateJobsRequest{
		TaskType:          w.config.Type,
		Worker:            w.options.Name,
		Timeout:           w.config.Timeout,
		MaxJobsToActivate: batch,
		VariablesToFetch:  w.config.VariablesToFetch,
		RequestTimeout:    w.options.RequestTimeout,
		TenantIDs:         w.tenantIDs(),
	}) {
		if err != nil {
			return err
		}

		// Jobs already received are handled even when polling stops mid batch
		w.enqueue(j)

		activated++
	}

	if activated > 0 {
		w.logger.Debug("Activated jobs", log.ActivatedKey, activated)
	}

	return nil
}

// stream admits pushed jobs one at a time, waiting for a free slot before each.
func (w *JobWorker) stream(ctx context.Context) error {
	for j, err := range w.adapter.StreamActivateJobs(ctx, adapter.StreamActivateJobsRequest{
		TaskType:         w.config.Type,
		Worker:           w.options.Name,
		Timeout:          w.config.Timeout,
		VariablesToFetch: w.config.VariablesToFetch,
		TenantIDs:        w.tenantIDs(),
	}) {
		if err != nil {
			return err
		}

		for w.state.count() >= w.config.MaxRunningJobs {
			if !w.sleep(ctx, w.options.PollRetryDelay) {
				return ctx.Err()
			}
		}

		w.enqueue(j)
	}

	return ctx.Err()
}

func (w *JobWorker) enqueue(j *job.Job) {
	if !w.state.add(j) {
		w.logger.Warn("Job is already active, skipping", log.JobKeyKey, j.Key)
		return
	}

	w.metrics.Counter(metrickeys.JobActivated, metrics.Tags{}, 1)
	w.metrics.Gauge(metrickeys.TaskRunning, metrics.Tags{}, int64(w.state.count()))

	w.queue.add(j)
}

func (w *JobWorker) executor(ctx context.Context) {
	defer close(w.executorDone)

	for j := range w.queue.jobs {
		w.handlersWg.Add(1)

		go func() {
			defer w.handlersWg.Done()
			defer func() {
				w.state.remove(j)
				w.metrics.Gauge(metrickeys.TaskRunning, metrics.Tags{}, int64(w.state.count()))
			}()

			w.handle(ctx, j)
		}()
	}

	w.handlersWg.Wait()
}

func (w *JobWorker) handle(ctx context.Context, j *job.Job) {
	ctx, err := contextpropagation.Extract(ctx, w.options.ContextPropagators, j)
	if err != nil {
		w.logger.Warn("Failed to extract propagated context", log.JobKeyKey, j.Key, "error", err)
	}

	ctx, span := w.tracer.Start(ctx, "Handle "+j.Type,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int64(tracing.JobKey, j.Key),
			attribute.String(tracing.JobType, j.Type),
			attribute.Int(tracing.JobRetries, int(j.Retries)),
			attribute.Int64(tracing.ProcessInstanceKey, j.ProcessInstanceKey),
			attribute.String(tracing.BpmnProcessID, j.BpmnProcessID),
			attribute.String(tracing.ElementID, j.ElementID),
			attribute.String(tracing.Worker, w.options.Name),
			attribute.String(tracing.TenantID, j.TenantID),
		))
	defer span.End()

	logger := w.logger.With(
		log.JobKeyKey, j.Key,
		log.ProcessInstanceKeyKey, j.ProcessInstanceKey,
		log.BpmnProcessIDKey, j.BpmnProcessID,
		log.ElementIDKey, j.ElementID,
	)

	if j.Expired(w.options.Clock.Now()) {
		w.metrics.Counter(metrickeys.JobExpired, metrics.Tags{}, 1)
		logger.Warn("Job deadline passed before it was handled")
	}

	timer := metrics.StartTimer(w.metrics, w.options.Clock, metrickeys.JobHandlerDuration, metrics.Tags{})
	_, err = w.handler(ctx, j, job.NewController(j, w.adapter, logger))
	timer.Stop(metrics.Tags{metrickeys.Status: j.Status().String()})

	switch j.Status() {
	case job.StatusCompleted:
		w.metrics.Counter(metrickeys.JobCompleted, metrics.Tags{}, 1)
	case job.StatusFailed:
		w.metrics.Counter(metrickeys.JobFailed, metrics.Tags{}, 1)
	case job.StatusErrorThrown:
		w.metrics.Counter(metrickeys.JobErrorThrown, metrics.Tags{}, 1)
	}

	if err != nil {
		tracing.WithSpanError(span, err)

		var (
			deactivated *zeebeerrors.ErrJobAlreadyDeactivated
			notFound    *zeebeerrors.ErrJobNotFound
		)
		if errors.As(err, &deactivated) || errors.As(err, &notFound) {
			logger.Warn("Job was already deactivated", "error", err)
			return
		}

		logger.Error("Failed to acknowledge job", log.JobStatusKey, j.Status().String(), "error", err)
	}
}

// sleep returns false if ctx was cancelled before d elapsed.
func (w *JobWorker) sleep(ctx context.Context, d time.Duration) bool {
	timer := w.options.Clock.Timer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *JobWorker) tenantIDs() []string {
	if len(w.config.TenantIDs) > 0 {
		return w.config.TenantIDs
	}

	return w.options.TenantIDs
}
