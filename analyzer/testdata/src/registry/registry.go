package registry

import "context"

type Registry struct{}

func (r *Registry) Add(taskType string, handler any) {}

func ship(ctx context.Context) error {
	return nil
}

func forget(ctx context.Context) {}

func setup() {
	r := &Registry{}

	r.Add("ship", ship)
	r.Add("forget", forget) // want "task handler doesn't return anything. needs to return at least `error`"
	r.Add("value", 42)      // want "task handler must be a function"
}
