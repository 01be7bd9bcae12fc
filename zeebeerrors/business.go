package zeebeerrors

import "fmt"

// BusinessError is returned by a task handler to throw a BPMN error with the given code. It is not a
// technical failure: the job is reported via ThrowError and the process can catch the code.
type BusinessError struct {
	zeebeError
	ErrorCode string
	Message   string
	Variables map[string]any
}

func NewBusinessError(errorCode, message string) *BusinessError {
	return &BusinessError{ErrorCode: errorCode, Message: message}
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("business error %s", e.ErrorCode)
	}

	return fmt.Sprintf("business error %s: %s", e.ErrorCode, e.Message)
}

// WithVariables attaches variables that are sent along with the thrown error.
func (e *BusinessError) WithVariables(variables map[string]any) *BusinessError {
	e.Variables = variables
	return e
}
