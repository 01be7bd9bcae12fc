package args

import (
	"context"
	"errors"
	"testing"

	"github.com/cschleiden/go-zeebe/internal/converter"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/stretchr/testify/require"
)

type input struct {
	Input  string `json:"input"`
	Count  int    `json:"count,omitempty"`
	Ignore string `json:"-"`
	Plain  bool
	hidden string
}

type base struct {
	TenantID string `json:"tenantId"`
}

type embedded struct {
	base
	Amount float64 `json:"amount"`
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name    string
		fn      any
		fetch   []string
		result  bool
		object  bool
		wantErr string
	}{
		{
			name: "error only",
			fn:   func() error { return nil },
		},
		{
			name:   "context, job and struct input",
			fn:     func(context.Context, *job.Job, input) (map[string]any, error) { return nil, nil },
			fetch:  []string{"input", "count", "Plain"},
			result: true,
			object: true,
		},
		{
			name:  "pointer struct input",
			fn:    func(*input) error { return nil },
			fetch: []string{"input", "count", "Plain"},
		},
		{
			name:  "embedded fields are flattened",
			fn:    func(embedded) error { return nil },
			fetch: []string{"tenantId", "amount"},
		},
		{
			name: "map input fetches all variables",
			fn:   func(context.Context, map[string]any) error { return nil },
		},
		{
			name:   "variables input with scalar result",
			fn:     func(job.Variables) (string, error) { return "", nil },
			result: true,
		},
		{
			name:   "struct result",
			fn:     func(*job.Job) (input, error) { return input{}, nil },
			result: true,
			object: true,
		},
		{
			name:    "not a function",
			fn:      42,
			wantErr: "handler must be a function, got int",
		},
		{
			name:    "scalar input",
			fn:      func(string) error { return nil },
			wantErr: "handler input must be a struct or a map with string keys, got string",
		},
		{
			name:    "too many parameters",
			fn:      func(input, input) error { return nil },
			wantErr: "handler parameters must be ([context.Context,] [*job.Job,] [input]), got func(args.input, args.input) error",
		},
		{
			name:    "job after input",
			fn:      func(input, *job.Job) error { return nil },
			wantErr: "handler parameters must be ([context.Context,] [*job.Job,] [input]), got func(args.input, *job.Job) error",
		},
		{
			name:    "missing error",
			fn:      func() string { return "" },
			wantErr: "handler must return error as last value, got func() string",
		},
		{
			name:    "too many results",
			fn:      func() (int, int, error) { return 0, 0, nil },
			wantErr: "handler must return error or (result, error), got func() (int, int, error)",
		},
		{
			name:    "variadic",
			fn:      func(...string) error { return nil },
			wantErr: "handler must not be variadic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Inspect(tt.fn)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.fetch, s.FetchVariables())
			require.Equal(t, tt.result, s.HasResult())
			require.Equal(t, tt.object, s.ObjectResult())
		})
	}
}

func TestCall_DecodesStructInput(t *testing.T) {
	var got input
	var gotJob *job.Job

	s, err := Inspect(func(ctx context.Context, j *job.Job, in input) (map[string]any, error) {
		require.NotNil(t, ctx)
		got = in
		gotJob = j

		return map[string]any{"output": in.Input + "!"}, nil
	})
	require.NoError(t, err)

	j := job.New(job.Job{Key: 1, Variables: job.Variables{"input": "hi", "count": float64(2), "other": true}})

	result, err := s.Call(context.Background(), converter.DefaultConverter, j)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"output": "hi!"}, result)
	require.Equal(t, input{Input: "hi", Count: 2}, got)
	require.Same(t, j, gotJob)
}

func TestCall_MapInputReceivesAllVariables(t *testing.T) {
	var got job.Variables

	s, err := Inspect(func(v job.Variables) error {
		got = v
		return nil
	})
	require.NoError(t, err)

	result, err := s.Call(context.Background(), converter.DefaultConverter, job.New(job.Job{Variables: job.Variables{"a": 1, "b": "x"}}))
	require.NoError(t, err)
	require.Nil(t, result)
	require.Equal(t, job.Variables{"a": 1, "b": "x"}, got)
}

func TestCall_ReturnsHandlerError(t *testing.T) {
	boom := errors.New("boom")

	s, err := Inspect(func() (int, error) { return 3, boom })
	require.NoError(t, err)

	result, err := s.Call(context.Background(), converter.DefaultConverter, job.New(job.Job{}))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, result)
}

func TestCall_UndecodableVariables(t *testing.T) {
	s, err := Inspect(func(input) error { return nil })
	require.NoError(t, err)

	_, err = s.Call(context.Background(), converter.DefaultConverter, job.New(job.Job{Variables: job.Variables{"count": "not a number"}}))
	require.Error(t, err)
}
