package task

import (
	"context"
	"log/slog"

	"github.com/cschleiden/go-zeebe/internal/errors"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/log"
)

// Decorator runs before or after a task handler. A returned non-nil job replaces the job for the rest of
// the chain; errors are logged and skipped.
type Decorator func(ctx context.Context, j *job.Job) (*job.Job, error)

func runDecorators(ctx context.Context, logger *slog.Logger, decorators []Decorator, j *job.Job) *job.Job {
	for i, d := range decorators {
		next, err := runDecorator(ctx, d, j)
		if err != nil {
			logger.Warn("Decorator failed, continuing", log.DecoratorKey, i, "error", err)
			continue
		}

		if next != nil {
			j = next
		}
	}

	return j
}

func runDecorator(ctx context.Context, d Decorator, j *job.Job) (next *job.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, errors.NewPanicError(r, 2)
		}
	}()

	return d(ctx, j)
}
