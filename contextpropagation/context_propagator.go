// Package contextpropagation carries context values from the code starting a process instance to the job
// handlers of that instance. Values travel as process variables.
package contextpropagation

import (
	"context"

	"github.com/cschleiden/go-zeebe/job"
)

type ContextPropagator interface {
	// Inject stores values of ctx in variables.
	Inject(ctx context.Context, variables job.Variables) error

	// Extract restores injected values from the variables of j into ctx.
	Extract(ctx context.Context, j *job.Job) (context.Context, error)

	// Variables names the variables the propagator reads. Workers fetch them in addition to the variables
	// of a task.
	Variables() []string
}

// Inject runs all propagators on a copy of variables and returns it.
func Inject(ctx context.Context, propagators []ContextPropagator, variables job.Variables) (job.Variables, error) {
	if len(propagators) == 0 {
		return variables, nil
	}

	v := make(job.Variables, len(variables)+len(propagators))
	v.Merge(variables)

	for _, p := range propagators {
		if err := p.Inject(ctx, v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Extract runs all propagators for j. It stops at the first failing propagator and returns the context
// extracted so far.
func Extract(ctx context.Context, propagators []ContextPropagator, j *job.Job) (context.Context, error) {
	for _, p := range propagators {
		next, err := p.Extract(ctx, j)
		if err != nil {
			return ctx, err
		}

		ctx = next
	}

	return ctx, nil
}

// Variables returns the variables read by all propagators.
func Variables(propagators []ContextPropagator) []string {
	var names []string
	for _, p := range propagators {
		names = append(names, p.Variables()...)
	}

	return names
}
