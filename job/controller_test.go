package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestJob() *Job {
	return New(Job{
		Key:     42,
		Type:    "test",
		Retries: 3,
	})
}

func Test_Controller_SetSuccess(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	j := newTestJob()
	c := NewController(j, ack, nil)

	ack.On("CompleteJob", ctx, int64(42), Variables{"a": 1}).Return(nil).Once()

	require.NoError(t, c.SetSuccess(ctx, Variables{"a": 1}))
	require.Equal(t, StatusCompleted, j.Status())
}

func Test_Controller_SetFailure_DecrementsRetries(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	j := newTestJob()
	c := NewController(j, ack, nil)

	ack.On("FailJob", ctx, int64(42), int32(2), "db down", time.Second, Variables(nil)).Return(nil).Once()

	require.NoError(t, c.SetFailure(ctx, "db down", time.Second, nil))
	require.Equal(t, StatusFailed, j.Status())
}

func Test_Controller_SetFailure_RetriesFloorAtZero(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	j := New(Job{Key: 1, Retries: 0})
	c := NewController(j, ack, nil)

	ack.On("FailJob", ctx, int64(1), int32(0), "boom", time.Duration(0), Variables(nil)).Return(nil).Once()

	require.NoError(t, c.SetFailure(ctx, "boom", 0, nil))
}

func Test_Controller_SetError(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	j := newTestJob()
	c := NewController(j, ack, nil)

	ack.On("ThrowError", ctx, int64(42), "bad input", "E_BAD", Variables(nil)).Return(nil).Once()

	require.NoError(t, c.SetError(ctx, "bad input", "E_BAD", nil))
	require.Equal(t, StatusErrorThrown, j.Status())
}

func Test_Controller_SecondAckFailsLocally(t *testing.T) {
	ctx := context.Background()

	acks := map[string]func(c *Controller) error{
		"success": func(c *Controller) error { return c.SetSuccess(ctx, nil) },
		"failure": func(c *Controller) error { return c.SetFailure(ctx, "m", 0, nil) },
		"error":   func(c *Controller) error { return c.SetError(ctx, "m", "E", nil) },
	}

	for first, firstAck := range acks {
		for second, secondAck := range acks {
			t.Run(first+" then "+second, func(t *testing.T) {
				ack := NewMockAcknowledger(t)
				ack.On("CompleteJob", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
				ack.On("FailJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
				ack.On("ThrowError", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

				j := newTestJob()
				c := NewController(j, ack, nil)

				require.NoError(t, firstAck(c))
				status := j.Status()

				err := secondAck(c)

				var deactivated *zeebeerrors.ErrJobAlreadyDeactivated
				require.ErrorAs(t, err, &deactivated)
				require.Equal(t, int64(42), deactivated.Key)
				require.Equal(t, status, j.Status())
				require.Len(t, ack.Calls, 1)
			})
		}
	}
}

func Test_Controller_ConcurrentAcks_OnlyOneReachesGateway(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	ack.On("CompleteJob", mock.Anything, int64(42), mock.Anything).Return(nil).Once()

	c := NewController(newTestJob(), ack, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.SetSuccess(ctx, nil)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, zeebeerrors.ErrZeebe)
		}
	}

	require.Equal(t, 1, succeeded)
}

func Test_Controller_GatewayErrorKeepsTerminalStatus(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	gatewayErr := &zeebeerrors.ErrJobAlreadyDeactivated{Key: 42}
	ack.On("CompleteJob", ctx, int64(42), Variables(nil)).Return(gatewayErr).Once()

	j := newTestJob()
	c := NewController(j, ack, nil)

	err := c.SetSuccess(ctx, nil)
	require.ErrorIs(t, err, gatewayErr)
	require.Equal(t, StatusCompleted, j.Status())

	// No second attempt reaches the gateway
	require.Error(t, c.SetFailure(ctx, "retry", 0, nil))
}

func Test_Controller_StatusIsMonotone(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	ack.On("CompleteJob", ctx, int64(42), Variables(nil)).Return(nil).Once()

	j := newTestJob()
	c := NewController(j, ack, nil)

	observed := []Status{j.Status()}

	c.SetRunningAfterDecoratorsStatus()
	observed = append(observed, j.Status())

	require.NoError(t, c.SetSuccess(ctx, nil))
	observed = append(observed, j.Status())

	// Has no effect after the job was acknowledged
	c.SetRunningAfterDecoratorsStatus()
	observed = append(observed, j.Status())

	require.Equal(t, []Status{StatusRunning, StatusRunningAfterDecorators, StatusCompleted, StatusCompleted}, observed)
}

func Test_Controller_SetJobTimeout(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	ack.On("UpdateJobTimeout", ctx, int64(42), time.Minute).Return(nil).Once()
	ack.On("CompleteJob", ctx, int64(42), Variables(nil)).Return(nil).Once()

	j := newTestJob()
	c := NewController(j, ack, nil)

	require.NoError(t, c.SetJobTimeout(ctx, time.Minute))
	require.Equal(t, StatusRunning, j.Status())

	require.NoError(t, c.SetSuccess(ctx, nil))

	err := c.SetJobTimeout(ctx, time.Minute)
	var deactivated *zeebeerrors.ErrJobAlreadyDeactivated
	require.ErrorAs(t, err, &deactivated)
}

func Test_Controller_SharesStatusWithClones(t *testing.T) {
	ctx := context.Background()
	ack := NewMockAcknowledger(t)
	ack.On("ThrowError", ctx, int64(42), "", "E", Variables(nil)).Return(nil).Once()

	j := newTestJob()
	c := NewController(j, ack, nil)
	clone := j.Clone()

	require.NoError(t, c.SetError(ctx, "", "E", nil))
	require.Equal(t, StatusErrorThrown, clone.Status())
}

func Test_Controller_InitializesBareJob(t *testing.T) {
	ack := NewMockAcknowledger(t)
	j := &Job{Key: 7}
	c := NewController(j, ack, nil)

	require.Equal(t, StatusRunning, c.Status())
	require.Same(t, j, c.Job())
}
