package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Input string `json:"input"`
}

type echoOutput struct {
	Output string `json:"output"`
}

func echo(ctx context.Context, in echoInput) (echoOutput, error) {
	return echoOutput{Output: in.Input + "!"}, nil
}

func runTask(t *testing.T, tk *Task, j *job.Job, ack *job.MockAcknowledger) (*job.Job, error) {
	t.Helper()

	c := job.NewController(j, ack, nil)

	return tk.Handler(nil)(context.Background(), j, c)
}

func newJob(variables job.Variables) *job.Job {
	return job.New(job.Job{Key: 7, Type: "echo", Retries: 3, Variables: variables})
}

func Test_Task_Success(t *testing.T) {
	tk, err := New(Config{Type: "echo"}, echo)
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("CompleteJob", mock.Anything, int64(7), job.Variables{"output": "hi!"}).Return(nil).Once()

	j := newJob(job.Variables{"input": "hi"})
	rj, err := runTask(t, tk, j, ack)
	require.NoError(t, err)

	require.Equal(t, job.StatusCompleted, j.Status())
	require.Equal(t, job.Variables{"input": "hi", "output": "hi!"}, rj.Variables)
	require.Equal(t, job.Variables{"output": "hi!"}, rj.TaskResult)

	// The original job keeps its variables
	require.Equal(t, job.Variables{"input": "hi"}, j.Variables)
}

func Test_Task_Defaults(t *testing.T) {
	tk, err := New(Config{Type: "echo"}, echo)
	require.NoError(t, err)

	cfg := tk.Config()
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultMaxJobsToActivate, cfg.MaxJobsToActivate)
	require.Equal(t, DefaultMaxRunningJobs, cfg.MaxRunningJobs)
}

func Test_Task_FetchVariablesInference(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		handler  any
		expected []string
	}{
		{"struct input", Config{Type: "a"}, func(struct {
			A string `json:"a"`
			B int    `json:"b"`
		}) error {
			return nil
		}, []string{"a", "b"}},
		{"job parameter is excluded", Config{Type: "a"}, func(*job.Job, echoInput) error { return nil }, []string{"input"}},
		{"map input fetches all", Config{Type: "a"}, func(map[string]any) error { return nil }, nil},
		{"no input fetches all", Config{Type: "a"}, func(context.Context) error { return nil }, nil},
		{"explicit list wins", Config{Type: "a", VariablesToFetch: []string{"x"}}, echo, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk, err := New(tt.cfg, tt.handler)
			require.NoError(t, err)
			require.Equal(t, tt.expected, tk.Config().VariablesToFetch)
		})
	}
}

func Test_Task_SingleValue(t *testing.T) {
	tk, err := New(Config{Type: "count", SingleValue: true, VariableName: "count"}, func() (int, error) {
		return 3, nil
	})
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("CompleteJob", mock.Anything, int64(7), job.Variables{"count": 3}).Return(nil).Once()

	_, err = runTask(t, tk, newJob(nil), ack)
	require.NoError(t, err)
}

func Test_Task_SingleValueWithoutName(t *testing.T) {
	_, err := New(Config{Type: "count", SingleValue: true}, func() (int, error) { return 3, nil })

	var target *zeebeerrors.ErrNoVariableNameGiven
	require.ErrorAs(t, err, &target)
	require.Equal(t, "count", target.TaskType)
}

func Test_Task_ScalarResultRequiresSingleValue(t *testing.T) {
	_, err := New(Config{Type: "count"}, func() (int, error) { return 3, nil })

	var target *zeebeerrors.ErrSettings
	require.ErrorAs(t, err, &target)
}

func Test_Task_InvalidConfig(t *testing.T) {
	_, err := New(Config{}, echo)

	var target *zeebeerrors.ErrSettings
	require.ErrorAs(t, err, &target)

	_, err = New(Config{Type: "t", MaxRunningJobs: -1}, echo)
	require.ErrorAs(t, err, &target)

	_, err = New(Config{Type: "t"}, "not a function")
	require.ErrorAs(t, err, &target)
}

func Test_Task_BusinessError(t *testing.T) {
	tk, err := New(Config{Type: "echo"}, func() error {
		return fmt.Errorf("validating order: %w", zeebeerrors.NewBusinessError("E_BAD", "bad input").WithVariables(map[string]any{"reason": "x"}))
	})
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("ThrowError", mock.Anything, int64(7), mock.Anything, "E_BAD", job.Variables{"reason": "x"}).Return(nil).Once()

	j := newJob(nil)
	_, err = runTask(t, tk, j, ack)
	require.NoError(t, err)
	require.Equal(t, job.StatusErrorThrown, j.Status())
	ack.AssertNotCalled(t, "FailJob")
}

func Test_Task_Failure(t *testing.T) {
	tk, err := New(Config{Type: "echo"}, func() error {
		return errors.New("db down")
	})
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("FailJob", mock.Anything, int64(7), int32(2), mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "db down")
	}), mock.Anything, mock.Anything).Return(nil).Once()

	j := newJob(nil)
	_, err = runTask(t, tk, j, ack)
	require.NoError(t, err)
	require.Equal(t, job.StatusFailed, j.Status())
}

func Test_Task_PanicFailsJob(t *testing.T) {
	tk, err := New(Config{Type: "echo"}, func() error {
		panic("oops")
	})
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("FailJob", mock.Anything, int64(7), int32(2), mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "oops")
	}), mock.Anything, mock.Anything).Return(nil).Once()

	_, err = runTask(t, tk, newJob(nil), ack)
	require.NoError(t, err)
}

func Test_Task_AcknowledgmentErrorIsReturned(t *testing.T) {
	tk, err := New(Config{Type: "echo"}, echo)
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("CompleteJob", mock.Anything, int64(7), mock.Anything).Return(&zeebeerrors.ErrJobAlreadyDeactivated{Key: 7}).Once()

	_, err = runTask(t, tk, newJob(job.Variables{"input": "hi"}), ack)

	var target *zeebeerrors.ErrJobAlreadyDeactivated
	require.ErrorAs(t, err, &target)
}

type notFoundError struct{ id string }

func (e *notFoundError) Error() string { return "not found: " + e.id }

type temporary interface {
	error
	Temporary() bool
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Temporary() bool { return true }

func Test_Task_ExceptionHandlerRouting(t *testing.T) {
	var mu sync.Mutex
	var handled []string

	record := func(name string) ExceptionHandler {
		return func(ctx context.Context, err error, j *job.Job, c *job.Controller) error {
			mu.Lock()
			handled = append(handled, name)
			mu.Unlock()

			return c.SetFailure(ctx, err.Error(), 0, nil)
		}
	}

	rules := []ExceptionHandlerRule{
		OnError[temporary](record("temporary")),
		OnError[*zeebeerrors.BusinessError](record("business")),
		OnError[*notFoundError](record("not found")),
	}

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"exact type", &notFoundError{"a"}, "not found"},
		{"wrapped type", fmt.Errorf("loading: %w", &notFoundError{"a"}), "not found"},
		{"outermost match wins", fmt.Errorf("%w: %w", zeebeerrors.NewBusinessError("E", ""), &notFoundError{"c"}), "business"},
		{"joined errors", errors.Join(errors.New("x"), &notFoundError{"b"}), "not found"},
		{"interface rules come last", errors.Join(timeoutError{}, &notFoundError{"b"}), "not found"},
		{"interface rule", fmt.Errorf("calling: %w", timeoutError{}), "temporary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handled = nil

			tk, err := New(Config{Type: "t", ExceptionHandlers: rules}, func() error { return tt.err })
			require.NoError(t, err)

			ack := job.NewMockAcknowledger(t)
			ack.On("FailJob", mock.Anything, int64(7), int32(2), mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

			_, err = runTask(t, tk, newJob(nil), ack)
			require.NoError(t, err)
			require.Equal(t, []string{tt.expected}, handled)
		})
	}
}

func Test_Task_UnmatchedErrorUsesDefaultHandler(t *testing.T) {
	tk, err := New(Config{Type: "t", ExceptionHandlers: []ExceptionHandlerRule{
		OnError[*notFoundError](func(context.Context, error, *job.Job, *job.Controller) error {
			t.Fatal("unexpected handler")
			return nil
		}),
	}}, func() error { return errors.New("other") })
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("FailJob", mock.Anything, int64(7), int32(2), mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err = runTask(t, tk, newJob(nil), ack)
	require.NoError(t, err)
}

func recordingDecorator(mu *sync.Mutex, calls *[]string, name string) Decorator {
	return func(ctx context.Context, j *job.Job) (*job.Job, error) {
		mu.Lock()
		defer mu.Unlock()

		*calls = append(*calls, name)

		return nil, nil
	}
}

func Test_Task_DecoratorOrder(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	d := func(name string) Decorator { return recordingDecorator(&mu, &calls, name) }

	r := NewRouter(RouterOptions{
		Before: []Decorator{d("router.before.1"), d("router.before.2")},
		After:  []Decorator{d("router.after")},
	})

	require.NoError(t, r.Task(Config{
		Type:   "echo",
		Before: []Decorator{d("task.before")},
		After:  []Decorator{d("task.after.1"), d("task.after.2")},
	}, func() error {
		mu.Lock()
		defer mu.Unlock()

		calls = append(calls, "handler")

		return nil
	}))

	tasks := r.Tasks()
	require.Len(t, tasks, 1)

	tk := tasks[0].Compose([]Decorator{d("worker.before")}, []Decorator{d("worker.after")})

	ack := job.NewMockAcknowledger(t)
	ack.On("CompleteJob", mock.Anything, int64(7), job.Variables{}).Return(nil).Once()

	_, err := runTask(t, tk, newJob(nil), ack)
	require.NoError(t, err)

	require.Equal(t, []string{
		"worker.before", "router.before.1", "router.before.2", "task.before",
		"handler",
		"task.after.1", "task.after.2", "router.after", "worker.after",
	}, calls)
}

func Test_Task_DecoratorErrorsAreSkipped(t *testing.T) {
	var seen job.Variables

	tk, err := New(Config{
		Type: "echo",
		Before: []Decorator{
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				c := j.Clone()
				c.Variables["input"] = "replaced"
				return c, nil
			},
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				return nil, errors.New("decorator failed")
			},
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				panic("decorator panicked")
			},
		},
		After: []Decorator{
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				seen = j.Variables
				return nil, errors.New("after failed")
			},
		},
	}, echo)
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("CompleteJob", mock.Anything, int64(7), job.Variables{"output": "replaced!"}).Return(nil).Once()

	j := newJob(job.Variables{"input": "hi"})
	_, err = runTask(t, tk, j, ack)
	require.NoError(t, err)
	require.Equal(t, job.StatusCompleted, j.Status())
	require.Equal(t, job.Variables{"input": "replaced", "output": "replaced!"}, seen)
}

func Test_Task_AfterDecoratorsRunOnError(t *testing.T) {
	called := false

	tk, err := New(Config{
		Type: "echo",
		After: []Decorator{
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				called = true
				return nil, nil
			},
		},
	}, func() error { return errors.New("fail") })
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("FailJob", mock.Anything, int64(7), int32(2), mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	_, err = runTask(t, tk, newJob(nil), ack)
	require.NoError(t, err)
	require.True(t, called)
}

func Test_Task_AfterDecoratorsRunOnPanic(t *testing.T) {
	var seen *job.Job

	tk, err := New(Config{
		Type: "echo",
		After: []Decorator{
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				seen = j
				return nil, nil
			},
		},
	}, func() error { panic("boom") })
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("FailJob", mock.Anything, int64(7), int32(2), mock.MatchedBy(func(message string) bool {
		return strings.Contains(message, "panic: boom")
	}), mock.Anything, mock.Anything).Return(nil).Once()

	j := newJob(nil)

	_, err = runTask(t, tk, j, ack)
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Equal(t, j.Key, seen.Key)
}

func Test_Task_StatusIsMonotone(t *testing.T) {
	var observed []job.Status

	tk, err := New(Config{
		Type: "echo",
		After: []Decorator{
			func(ctx context.Context, j *job.Job) (*job.Job, error) {
				observed = append(observed, j.Status())
				return nil, nil
			},
		},
		ExceptionHandlers: []ExceptionHandlerRule{
			OnError[error](func(ctx context.Context, err error, j *job.Job, c *job.Controller) error {
				observed = append(observed, j.Status())
				return c.SetFailure(ctx, err.Error(), 0, nil)
			}),
		},
	}, func(ctx context.Context, j *job.Job) error {
		observed = append(observed, j.Status())
		return errors.New("fail")
	})
	require.NoError(t, err)

	ack := job.NewMockAcknowledger(t)
	ack.On("FailJob", mock.Anything, int64(7), int32(2), "fail", mock.Anything, mock.Anything).Return(nil).Once()

	j := newJob(nil)
	_, err = runTask(t, tk, j, ack)
	require.NoError(t, err)
	observed = append(observed, j.Status())

	require.Equal(t, []job.Status{
		job.StatusRunning,
		job.StatusRunning,
		job.StatusRunningAfterDecorators,
		job.StatusFailed,
	}, observed)
}
