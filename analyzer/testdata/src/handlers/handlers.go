package handlers

import (
	"context"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/task"
)

type input struct {
	Amount int `json:"amount"`
}

type output struct {
	Charged int `json:"charged"`
}

func charge(ctx context.Context, in input) (output, error) {
	return output{Charged: in.Amount}, nil
}

func echo(ctx context.Context, j *job.Job, vars map[string]any) (map[string]any, error) {
	return vars, nil
}

func ping() error {
	return nil
}

func count(ctx context.Context, in *input) (int, error) {
	return in.Amount, nil
}

func noResult(ctx context.Context) {}

func wrongOrder(ctx context.Context) (error, int) {
	return nil, 0
}

func tooMany() (int, int, error) {
	return 0, 0, nil
}

func scalarInput(ctx context.Context, s string) error {
	return nil
}

func extraParam(ctx context.Context, in input, n int) error {
	return nil
}

func variadic(ns ...int) error {
	return nil
}

func register(r *task.Router) {
	_ = r.Task(task.Config{Type: "charge"}, charge)
	_ = r.Task(task.Config{Type: "echo"}, echo)
	_ = r.Task(task.Config{Type: "ping"}, ping)
	_ = r.Task(task.Config{Type: "count", SingleValue: true, VariableName: "n"}, count)

	_ = r.Task(task.Config{Type: "count"}, count)                     // want "task handler returns a single value, configure SingleValue and VariableName"
	_ = r.Task(task.Config{Type: "count", SingleValue: false}, count) // want "task handler returns a single value"
	_ = r.Task(task.Config{Type: "none"}, noResult)                   // want "task handler doesn't return anything. needs to return at least `error`"
	_ = r.Task(task.Config{Type: "order"}, wrongOrder)                // want "task handler doesn't return `error` as last return value"
	_ = r.Task(task.Config{Type: "many"}, tooMany)                    // want "task handler returns more than two values"
	_ = r.Task(task.Config{Type: "scalar"}, scalarInput)              // want "task handler input must be a struct or a map with string keys, got string"
	_ = r.Task(task.Config{Type: "extra"}, extraParam)                // want "task handler has unexpected parameter int"
	_ = r.Task(task.Config{Type: "variadic"}, variadic)               // want "task handler must not be variadic"
	_ = r.Task(task.Config{Type: "value"}, 42)                        // want "task handler must be a function"

	// Configs built elsewhere are not checked
	cfg := task.Config{Type: "count"}
	_ = r.Task(cfg, count)

	_, _ = task.New(task.Config{Type: "inline"}, func(ctx context.Context, j *job.Job) error {
		return nil
	})
	_, _ = task.New(task.Config{Type: "inline"}, func(f float64) error { // want "task handler input must be a struct or a map with string keys, got float64"
		return nil
	})
}
