// Package task compiles handler functions into tasks and groups them in routers.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cschleiden/go-zeebe/internal/args"
	"github.com/cschleiden/go-zeebe/internal/converter"
	ie "github.com/cschleiden/go-zeebe/internal/errors"
	"github.com/cschleiden/go-zeebe/internal/fn"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/log"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

// Task is a compiled handler together with its resolved configuration. Tasks are immutable; Compose
// returns a new task.
type Task struct {
	config Config
	name   string
	sig    *args.Signature

	before []Decorator
	after  []Decorator
}

// New compiles handler for cfg. See Router.Task for the accepted handler shapes.
func New(cfg Config, handler any) (*Task, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	sig, err := args.Inspect(handler)
	if err != nil {
		return nil, &zeebeerrors.ErrSettings{Message: fmt.Sprintf("invalid handler for task %s", cfg.Type), Cause: err}
	}

	if sig.HasResult() && !cfg.SingleValue && !sig.ObjectResult() {
		return nil, &zeebeerrors.ErrSettings{
			Message: fmt.Sprintf("handler for task %s returns a single value, configure SingleValue and VariableName", cfg.Type),
		}
	}

	if len(cfg.VariablesToFetch) == 0 {
		cfg.VariablesToFetch = sig.FetchVariables()
	}

	return &Task{
		config: cfg,
		name:   fn.Name(handler),
		sig:    sig,
		before: slices.Clone(cfg.Before),
		after:  slices.Clone(cfg.After),
	}, nil
}

func (t *Task) Type() string {
	return t.config.Type
}

// Config returns the resolved configuration, including inferred variables to fetch.
func (t *Task) Config() Config {
	return t.config
}

// Compose returns a copy of the task whose before decorators are prefixed with before and whose after
// decorators are suffixed with after.
func (t *Task) Compose(before, after []Decorator) *Task {
	c := *t
	c.before = slices.Concat(before, t.before)
	c.after = slices.Concat(t.after, after)

	return &c
}

// Handler returns the task's full middleware stack.
func (t *Task) Handler(logger *slog.Logger) HandleFunc {
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(log.TaskTypeKey, t.config.Type, log.TaskHandlerKey, t.name)

	h := t.run(logger)
	for _, m := range []Middleware{catchError(logger), response(t.config.ExceptionHandlers)} {
		h = m(h)
	}

	return h
}

func (t *Task) run(logger *slog.Logger) HandleFunc {
	return func(ctx context.Context, j *job.Job, c *job.Controller) (*job.Job, error) {
		j = runDecorators(ctx, logger, t.before, j)

		j, err := t.invoke(ctx, j)

		return runDecorators(ctx, logger, t.after, j), err
	}
}

// invoke runs the handler. A panic is returned as *errors.PanicError so the after decorators still run.
func (t *Task) invoke(ctx context.Context, j *job.Job) (rj *job.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			rj, err = j, ie.NewPanicError(r, 2)
		}
	}()

	value, err := t.sig.Call(ctx, converter.DefaultConverter, j)
	if err != nil {
		return j, err
	}

	result, err := newResult(converter.DefaultConverter, t.config, value)
	if err != nil {
		return j, fmt.Errorf("converting result of task %s: %w", t.config.Type, err)
	}

	variables := result.Variables()

	j = j.Clone()
	if j.Variables == nil {
		j.Variables = job.Variables{}
	}
	j.Variables.Merge(variables)
	j.TaskResult = variables

	return j, nil
}
