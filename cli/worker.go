package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/log"
	"github.com/cschleiden/go-zeebe/task"
	"github.com/cschleiden/go-zeebe/worker"
	"github.com/spf13/cobra"
)

func newEchoWorkerCmd(cli *Cli) *cobra.Command {
	var (
		name           string
		jobTimeout     time.Duration
		maxJobs        int
		maxRunningJobs int
		stream         bool
		failures       int
	)

	c := cobra.Command{
		Use:   "echo-worker TASK_TYPE...",
		Short: "Complete jobs of the given types with their own variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := cli.logger
			if logger == nil {
				logger = slog.Default()
			}

			w, err := worker.New(cli.adapter, &worker.Options{
				Name:                       name,
				Stream:                     stream,
				MaxConsecutivePollFailures: failures,
				Logger:                     logger,
				Metrics:                    cli.metrics,
				TracerProvider:             cli.tracerProvider,
				ContextPropagators:         cli.propagators,
			})
			if err != nil {
				return err
			}

			r := task.NewRouter(task.RouterOptions{})
			for _, taskType := range args {
				err := r.Task(task.Config{
					Type:              taskType,
					Timeout:           jobTimeout,
					MaxJobsToActivate: maxJobs,
					MaxRunningJobs:    maxRunningJobs,
				}, echo(logger))
				if err != nil {
					return err
				}
			}

			if err := w.IncludeRouter(r); err != nil {
				return err
			}

			if err := w.Work(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "Worker name, defaults to the host name")
	c.Flags().DurationVar(&jobTimeout, "job-timeout", task.DefaultTimeout, "Activation timeout of jobs")
	c.Flags().IntVar(&maxJobs, "max-jobs-to-activate", task.DefaultMaxJobsToActivate, "Jobs per activation request")
	c.Flags().IntVar(&maxRunningJobs, "max-running-jobs", task.DefaultMaxRunningJobs, "Jobs handled at the same time per task type")
	c.Flags().BoolVar(&stream, "stream", false, "Receive jobs over a job stream instead of polling")
	c.Flags().IntVar(&failures, "max-poll-failures", 0, "Stop after this many failed activations in a row, 0 retries forever")

	return &c
}

// echo completes every job with the variables it was activated with.
func echo(logger *slog.Logger) func(context.Context, *job.Job, map[string]any) (map[string]any, error) {
	return func(_ context.Context, j *job.Job, variables map[string]any) (map[string]any, error) {
		logger.Info("Echoing job",
			log.JobKeyKey, j.Key,
			log.TaskTypeKey, j.Type,
			log.ProcessInstanceKeyKey, j.ProcessInstanceKey)

		return variables, nil
	}
}
