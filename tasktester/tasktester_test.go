package tasktester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/task"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/stretchr/testify/require"
)

type payment struct {
	Amount float64 `json:"amount"`
}

type receipt struct {
	Charged float64 `json:"charged"`
}

func charge(ctx context.Context, p payment) (receipt, error) {
	if p.Amount < 0 {
		return receipt{}, zeebeerrors.NewBusinessError("NEGATIVE_AMOUNT", "amount must not be negative")
	}

	if p.Amount > 1000 {
		return receipt{}, errors.New("card declined")
	}

	return receipt{Charged: p.Amount}, nil
}

func Test_RunHandler_Completes(t *testing.T) {
	o, err := RunHandler(context.Background(), task.Config{Type: "charge"}, charge, job.Variables{"amount": 10})
	require.NoError(t, err)

	require.Equal(t, job.StatusCompleted, o.Status)
	require.Equal(t, job.Variables{"charged": float64(10)}, o.Variables)
}

func Test_RunHandler_BusinessError(t *testing.T) {
	o, err := RunHandler(context.Background(), task.Config{Type: "charge"}, charge, job.Variables{"amount": -1})
	require.NoError(t, err)

	require.Equal(t, job.StatusErrorThrown, o.Status)
	require.Equal(t, "NEGATIVE_AMOUNT", o.ErrorCode)
}

func Test_RunHandler_Failure(t *testing.T) {
	o, err := RunHandler(context.Background(), task.Config{Type: "charge"}, charge, job.Variables{"amount": 5000})
	require.NoError(t, err)

	require.Equal(t, job.StatusFailed, o.Status)
	require.Equal(t, int32(2), o.Retries)
	require.Contains(t, o.Message, "card declined")
}

func Test_Run_Decorators(t *testing.T) {
	tk, err := task.New(task.Config{
		Type: "charge",
		Before: []task.Decorator{func(ctx context.Context, j *job.Job) (*job.Job, error) {
			j = j.Clone()
			j.Variables["amount"] = 42
			return j, nil
		}},
	}, charge)
	require.NoError(t, err)

	o, err := Run(context.Background(), tk, NewJob("charge", job.Variables{"amount": 1}), nil)
	require.NoError(t, err)
	require.Equal(t, float64(42), o.Variables["charged"])
}

func Test_Run_Timeouts(t *testing.T) {
	tk, err := task.New(task.Config{Type: "slow"}, func(ctx context.Context, j *job.Job) error {
		return nil
	})
	require.NoError(t, err)

	j := NewJob("slow", nil)

	r := &recorder{}
	c := job.NewController(j, r, nil)
	require.NoError(t, c.SetJobTimeout(context.Background(), time.Minute))

	_, err = tk.Handler(nil)(context.Background(), j, c)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Minute}, r.outcome.Timeouts)
	require.Equal(t, job.StatusCompleted, j.Status())
}
