package task

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
)

// ExceptionHandler acknowledges a job whose handler returned err.
type ExceptionHandler func(ctx context.Context, err error, j *job.Job, c *job.Controller) error

// ExceptionHandlerRule routes errors of one type to an ExceptionHandler.
type ExceptionHandlerRule struct {
	errType reflect.Type
	handler ExceptionHandler
}

// OnError routes errors of type E to h. If E is a concrete type, the rule matches errors of exactly that
// type anywhere in the wrap chain; errors closer to the outermost error win. If E is an interface type,
// the rule matches errors implementing it and is only considered when no concrete rule matches.
//
//	task.OnError[*zeebeerrors.BusinessError](handler)
func OnError[E error](h ExceptionHandler) ExceptionHandlerRule {
	return ExceptionHandlerRule{
		errType: reflect.TypeFor[E](),
		handler: h,
	}
}

// DefaultExceptionHandler throws a BPMN error for business errors and fails the job otherwise.
func DefaultExceptionHandler(ctx context.Context, err error, _ *job.Job, c *job.Controller) error {
	var be *zeebeerrors.BusinessError
	if errors.As(err, &be) {
		return c.SetError(ctx, fmt.Sprintf("Error: %v", err), be.ErrorCode, be.Variables)
	}

	return c.SetFailure(ctx, fmt.Sprintf("Failed job. Error: %v", err), 0, nil)
}

// matchExceptionHandler returns the handler of the most specific rule matching err, or nil.
func matchExceptionHandler(rules []ExceptionHandlerRule, err error) ExceptionHandler {
	if len(rules) == 0 {
		return nil
	}

	chain := unwrapChain(err)

	for _, e := range chain {
		et := reflect.TypeOf(e)
		for _, r := range rules {
			if r.errType.Kind() != reflect.Interface && r.errType == et {
				return r.handler
			}
		}
	}

	for _, r := range rules {
		if r.errType.Kind() != reflect.Interface {
			continue
		}

		for _, e := range chain {
			if reflect.TypeOf(e).Implements(r.errType) {
				return r.handler
			}
		}
	}

	return nil
}

// unwrapChain flattens the tree of wrapped errors, outermost first.
func unwrapChain(err error) []error {
	var chain []error

	queue := []error{err}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		if e == nil {
			continue
		}

		chain = append(chain, e)

		switch u := e.(type) {
		case interface{ Unwrap() error }:
			queue = append(queue, u.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, u.Unwrap()...)
		}
	}

	return chain
}
