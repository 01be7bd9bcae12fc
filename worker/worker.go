// Package worker activates jobs from the gateway and runs the registered task handlers for them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	internal "github.com/cschleiden/go-zeebe/internal/worker"
	"github.com/cschleiden/go-zeebe/log"
	"github.com/cschleiden/go-zeebe/task"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

// Adapter is the gateway connection a worker polls. *adapter.Adapter implements it.
type Adapter = internal.Adapter

type Worker struct {
	adapter Adapter
	options Options

	router *task.Router

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	stop    chan struct{}
	workers []*internal.JobWorker
	failed  chan error
}

// New creates a worker for the given adapter. A nil options uses DefaultOptions.
func New(a Adapter, options *Options) (*Worker, error) {
	if options == nil {
		options = &DefaultOptions
	}

	opts := options.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &Worker{
		adapter: a,
		options: opts,
		router: task.NewRouter(task.RouterOptions{
			Before: opts.Before,
			After:  opts.After,
		}),
		stop: make(chan struct{}),
	}, nil
}

// Name returns the name the worker reports to the gateway.
func (w *Worker) Name() string {
	return w.options.Name
}

// Task registers handler for cfg.Type. See task.Router.Task for the accepted handler shapes.
func (w *Worker) Task(cfg task.Config, handler any) error {
	return w.router.Task(cfg, handler)
}

// IncludeRouter adds the tasks of the given routers, keeping their decorators. Task types must be unique
// across the worker.
func (w *Worker) IncludeRouter(routers ...*task.Router) error {
	for _, r := range routers {
		for _, t := range r.Tasks() {
			if err := w.router.Add(t); err != nil {
				return err
			}
		}
	}

	return nil
}

// Tasks returns the tasks of the worker, composed with all decorators.
func (w *Worker) Tasks() []*task.Task {
	return w.router.Tasks()
}

// Start starts one poller per task. Cancelling ctx stops polling; use Stop to also wait for running jobs.
// Handlers are not cancelled when the worker stops, they can observe Stopping instead.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return &zeebeerrors.ErrSettings{Message: "worker already started"}
	}

	tasks := w.router.Tasks()
	if len(tasks) == 0 {
		return &zeebeerrors.ErrSettings{Message: "worker has no tasks"}
	}

	pollCtx, cancel := context.WithCancel(ctx)
	handlerCtx := internal.WithStopping(context.WithoutCancel(ctx), w.stop)

	options := &internal.Options{
		Name:                       w.options.Name,
		PollRetryDelay:             w.options.PollRetryDelay,
		TransportRetryBackOff:      w.options.TransportRetryBackOff,
		RequestTimeout:             w.options.RequestTimeout,
		Stream:                     w.options.Stream,
		MaxConsecutivePollFailures: w.options.MaxConsecutivePollFailures,
		TenantIDs:                  w.options.TenantIDs,
		ContextPropagators:         w.options.ContextPropagators,
		Logger:                     w.options.Logger,
		Metrics:                    w.options.Metrics,
		TracerProvider:             w.options.TracerProvider,
		Clock:                      w.options.Clock,
	}

	w.failed = make(chan error, len(tasks))

	for _, t := range tasks {
		jw := internal.NewJobWorker(t, w.adapter, options)
		jw.Start(pollCtx, handlerCtx)

		go func() {
			<-jw.Done()
			if err := jw.Err(); err != nil {
				w.failed <- err
			}
		}()

		w.workers = append(w.workers, jw)
	}

	w.started = true
	w.cancel = cancel

	w.options.Logger.Info("Worker started", log.WorkerNameKey, w.options.Name, "tasks", len(tasks))

	return nil
}

// Stop cancels all pollers and waits for running jobs to finish. It returns the errors that stopped
// pollers before. Calling Stop more than once is safe.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started || w.stopped {
		return nil
	}

	w.stopped = true

	w.options.Logger.Info("Stopping worker", log.WorkerNameKey, w.options.Name)

	w.cancel()
	close(w.stop)

	var errs []error
	for _, jw := range w.workers {
		if err := jw.WaitForCompletion(); err != nil {
			errs = append(errs, err)
		}
	}

	w.options.Logger.Info("Worker stopped", log.WorkerNameKey, w.options.Name)

	return errors.Join(errs...)
}

// Work starts the worker and blocks until ctx is cancelled or a poller fails. It always stops the worker
// before returning.
func (w *Worker) Work(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-w.failed:
		w.options.Logger.Error("Poller failed, stopping worker", "error", err)
	}

	if err := w.Stop(); err != nil {
		return fmt.Errorf("worker %s: %w", w.options.Name, err)
	}

	return nil
}

// Stopping returns a channel that is closed when the worker running the current job is stopping. Handlers
// use it to cut long work short; it is nil outside of job handlers.
func Stopping(ctx context.Context) <-chan struct{} {
	return internal.Stopping(ctx)
}
