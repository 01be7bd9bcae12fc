package errors

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// PanicError is returned in place of a panic raised by a task handler.
type PanicError struct {
	value      any
	stacktrace string
}

// NewPanicError captures the stack of the panicking goroutine. skip is the number of frames to skip
// above the caller.
func NewPanicError(v any, skip int) *PanicError {
	goerr := goerrors.Wrap(v, skip+1)

	return &PanicError{
		value:      v,
		stacktrace: string(goerr.Stack()),
	}
}

var _ error = (*PanicError)(nil)

func (pe *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", pe.value)
}

func (pe *PanicError) Stacktrace() string {
	return pe.stacktrace
}

// Unwrap returns the panic value if it was an error.
func (pe *PanicError) Unwrap() error {
	if err, ok := pe.value.(error); ok {
		return err
	}

	return nil
}
