// Package zeebeerrors defines the errors returned by the adapter, the worker and the client.
//
// Every error defined here matches ErrZeebe:
//
//	if errors.Is(err, zeebeerrors.ErrZeebe) { ... }
package zeebeerrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrZeebe is the root of the error taxonomy.
var ErrZeebe = errors.New("zeebe")

type zeebeError struct{}

func (zeebeError) Is(target error) bool {
	return target == ErrZeebe
}

// Transport

type ErrBackPressure struct {
	zeebeError
	Cause error
}

func (e *ErrBackPressure) Error() string {
	return fmt.Sprintf("gateway is under back pressure: %v", e.Cause)
}

func (e *ErrBackPressure) Unwrap() error { return e.Cause }

type ErrGatewayUnavailable struct {
	zeebeError
	Cause error
}

func (e *ErrGatewayUnavailable) Error() string {
	return fmt.Sprintf("gateway unavailable: %v", e.Cause)
}

func (e *ErrGatewayUnavailable) Unwrap() error { return e.Cause }

type ErrInternal struct {
	zeebeError
	Cause error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("gateway internal error: %v", e.Cause)
}

func (e *ErrInternal) Unwrap() error { return e.Cause }

type ErrDeadlineExceeded struct {
	zeebeError
	Cause error
}

func (e *ErrDeadlineExceeded) Error() string {
	return fmt.Sprintf("gateway deadline exceeded: %v", e.Cause)
}

func (e *ErrDeadlineExceeded) Unwrap() error { return e.Cause }

type ErrUnknownGrpcStatusCode struct {
	zeebeError
	Cause error
}

func (e *ErrUnknownGrpcStatusCode) Error() string {
	return fmt.Sprintf("unexpected gateway status: %v", e.Cause)
}

func (e *ErrUnknownGrpcStatusCode) Unwrap() error { return e.Cause }

// Process

type ErrProcessDefinitionNotFound struct {
	zeebeError
	BpmnProcessID string
	Version       int32
}

func (e *ErrProcessDefinitionNotFound) Error() string {
	return fmt.Sprintf("process definition %s with version %d not found", e.BpmnProcessID, e.Version)
}

type ErrProcessInstanceNotFound struct {
	zeebeError
	Key int64
}

func (e *ErrProcessInstanceNotFound) Error() string {
	return fmt.Sprintf("process instance %d not found", e.Key)
}

type ErrProcessDefinitionHasNoStartEvent struct {
	zeebeError
	BpmnProcessID string
}

func (e *ErrProcessDefinitionHasNoStartEvent) Error() string {
	return fmt.Sprintf("process %s has no none start event", e.BpmnProcessID)
}

type ErrProcessInvalid struct {
	zeebeError
	Cause error
}

func (e *ErrProcessInvalid) Error() string {
	return fmt.Sprintf("invalid resource: %v", e.Cause)
}

func (e *ErrProcessInvalid) Unwrap() error { return e.Cause }

type ErrInvalidJSON struct {
	zeebeError
	Cause error
}

func (e *ErrInvalidJSON) Error() string {
	return fmt.Sprintf("invalid variables JSON: %v", e.Cause)
}

func (e *ErrInvalidJSON) Unwrap() error { return e.Cause }

type ErrProcessTimeout struct {
	zeebeError
	BpmnProcessID string
}

func (e *ErrProcessTimeout) Error() string {
	return fmt.Sprintf("timeout while waiting for process %s", e.BpmnProcessID)
}

// Decision

type ErrDecisionNotFound struct {
	zeebeError
	DecisionID  string
	DecisionKey int64
}

func (e *ErrDecisionNotFound) Error() string {
	if e.DecisionID != "" {
		return fmt.Sprintf("decision %s not found", e.DecisionID)
	}

	return fmt.Sprintf("decision with key %d not found", e.DecisionKey)
}

// Job

type ErrActivateJobsRequestInvalid struct {
	zeebeError
	TaskType          string
	Worker            string
	Timeout           time.Duration
	MaxJobsToActivate int
	Cause             error
}

func (e *ErrActivateJobsRequestInvalid) Error() string {
	return fmt.Sprintf(
		"invalid activate jobs request (type %q, worker %q, timeout %v, max jobs %d): %v",
		e.TaskType, e.Worker, e.Timeout, e.MaxJobsToActivate, e.Cause)
}

func (e *ErrActivateJobsRequestInvalid) Unwrap() error { return e.Cause }

type ErrStreamActivateJobsRequestInvalid struct {
	zeebeError
	TaskType string
	Worker   string
	Timeout  time.Duration
	Cause    error
}

func (e *ErrStreamActivateJobsRequestInvalid) Error() string {
	return fmt.Sprintf(
		"invalid stream activated jobs request (type %q, worker %q, timeout %v): %v",
		e.TaskType, e.Worker, e.Timeout, e.Cause)
}

func (e *ErrStreamActivateJobsRequestInvalid) Unwrap() error { return e.Cause }

type ErrJobNotFound struct {
	zeebeError
	Key int64
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job %d not found", e.Key)
}

type ErrJobAlreadyDeactivated struct {
	zeebeError
	Key int64
}

func (e *ErrJobAlreadyDeactivated) Error() string {
	return fmt.Sprintf("job %d was already deactivated", e.Key)
}

// Message

type ErrMessageAlreadyExists struct {
	zeebeError
	MessageID string
}

func (e *ErrMessageAlreadyExists) Error() string {
	return fmt.Sprintf("message with id %q was already published", e.MessageID)
}

// Credentials

type ErrInvalidOAuthCredentials struct {
	zeebeError
	URL      string
	ClientID string
	Audience string
	Cause    error
}

func (e *ErrInvalidOAuthCredentials) Error() string {
	return fmt.Sprintf("invalid OAuth credentials for %s (client %s, audience %s): %v", e.URL, e.ClientID, e.Audience, e.Cause)
}

func (e *ErrInvalidOAuthCredentials) Unwrap() error { return e.Cause }

type ErrInvalidCamundaCloudCredentials struct {
	zeebeError
	ClientID  string
	ClusterID string
	Cause     error
}

func (e *ErrInvalidCamundaCloudCredentials) Error() string {
	return fmt.Sprintf("invalid Camunda Cloud credentials (client %s, cluster %s): %v", e.ClientID, e.ClusterID, e.Cause)
}

func (e *ErrInvalidCamundaCloudCredentials) Unwrap() error { return e.Cause }

// Worker and configuration

type ErrTaskNotFound struct {
	zeebeError
	TaskType string
}

func (e *ErrTaskNotFound) Error() string {
	return fmt.Sprintf("task %q not found", e.TaskType)
}

type ErrDuplicateTaskType struct {
	zeebeError
	TaskType string
}

func (e *ErrDuplicateTaskType) Error() string {
	return fmt.Sprintf("task with type %q already registered", e.TaskType)
}

type ErrNoVariableNameGiven struct {
	zeebeError
	TaskType string
}

func (e *ErrNoVariableNameGiven) Error() string {
	return fmt.Sprintf("task %q returns a single value but has no variable name", e.TaskType)
}

type ErrSettings struct {
	zeebeError
	Message string
	Cause   error
}

func (e *ErrSettings) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

func (e *ErrSettings) Unwrap() error { return e.Cause }

type ErrMaxConsecutiveTaskThread struct {
	zeebeError
	TaskType string
	Failures int
	Cause    error
}

func (e *ErrMaxConsecutiveTaskThread) Error() string {
	return fmt.Sprintf("poller for task %q failed %d times in a row: %v", e.TaskType, e.Failures, e.Cause)
}

func (e *ErrMaxConsecutiveTaskThread) Unwrap() error { return e.Cause }
