package task

import (
	"context"
	"errors"
	"log/slog"

	ie "github.com/cschleiden/go-zeebe/internal/errors"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

// HandleFunc processes a job and returns the job as seen at the end of the chain.
type HandleFunc func(ctx context.Context, j *job.Job, c *job.Controller) (*job.Job, error)

type Middleware func(next HandleFunc) HandleFunc

// catchError converts panics to errors, logs failures and marks the end of handler execution.
func catchError(logger *slog.Logger) Middleware {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, j *job.Job, c *job.Controller) (rj *job.Job, err error) {
			defer func() {
				if r := recover(); r != nil {
					rj, err = j, ie.NewPanicError(r, 2)
				}

				if err != nil {
					var be *zeebeerrors.BusinessError
					if errors.As(err, &be) {
						logger.Debug("Task returned business error", "error", err)
					} else {
						logger.Warn("Failed to run task", "error", err)
					}
				}

				c.SetRunningAfterDecoratorsStatus()
			}()

			return next(ctx, j, c)
		}
	}
}

// response acknowledges the job: errors are routed to the matching exception handler, success completes
// the job with its task result. Acknowledgments outlive the cancellation of ctx.
func response(rules []ExceptionHandlerRule) Middleware {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, j *job.Job, c *job.Controller) (*job.Job, error) {
			rj, err := next(ctx, j, c)
			if rj == nil {
				rj = j
			}

			actx := context.WithoutCancel(ctx)

			if err != nil {
				h := matchExceptionHandler(rules, err)
				if h == nil {
					h = DefaultExceptionHandler
				}

				return rj, h(actx, err, rj, c)
			}

			return rj, c.SetSuccess(actx, rj.TaskResult)
		}
	}
}
