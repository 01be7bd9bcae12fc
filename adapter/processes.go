package adapter

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/cschleiden/go-zeebe/internal/tracing"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LatestVersion selects the latest deployed version of a process definition.
const LatestVersion int32 = -1

type CreateProcessInstanceRequest struct {
	BpmnProcessID string

	// Version of the process definition, LatestVersion if zero.
	Version int32

	Variables job.Variables
	TenantID  string
}

type CreateProcessInstanceResponse struct {
	ProcessDefinitionKey int64
	BpmnProcessID        string
	Version              int32
	ProcessInstanceKey   int64
	TenantID             string
}

type CreateProcessInstanceWithResultRequest struct {
	CreateProcessInstanceRequest

	// Timeout the gateway waits for the process instance to complete. Zero uses the gateway default.
	Timeout time.Duration

	// VariablesToFetch limits the returned variables. Empty returns all variables.
	VariablesToFetch []string
}

type CreateProcessInstanceWithResultResponse struct {
	CreateProcessInstanceResponse

	Variables job.Variables
}

func (r CreateProcessInstanceRequest) toProto() (*pb.CreateProcessInstanceRequest, error) {
	doc, err := r.Variables.Encode()
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	version := r.Version
	if version == 0 {
		version = LatestVersion
	}

	return &pb.CreateProcessInstanceRequest{
		BpmnProcessId: r.BpmnProcessID,
		Version:       version,
		Variables:     doc,
		TenantId:      r.TenantID,
	}, nil
}

func createProcessInstanceRule(req CreateProcessInstanceRequest) errorRule {
	return func(st *status.Status) error {
		switch st.Code() {
		case codes.NotFound:
			return &zeebeerrors.ErrProcessDefinitionNotFound{BpmnProcessID: req.BpmnProcessID, Version: req.Version}
		case codes.InvalidArgument:
			return &zeebeerrors.ErrInvalidJSON{Cause: st.Err()}
		case codes.FailedPrecondition:
			return &zeebeerrors.ErrProcessDefinitionHasNoStartEvent{BpmnProcessID: req.BpmnProcessID}
		case codes.DeadlineExceeded:
			return &zeebeerrors.ErrProcessTimeout{BpmnProcessID: req.BpmnProcessID}
		default:
			return nil
		}
	}
}

func (a *Adapter) CreateProcessInstance(ctx context.Context, req CreateProcessInstanceRequest) (*CreateProcessInstanceResponse, error) {
	preq, err := req.toProto()
	if err != nil {
		return nil, err
	}

	resp, err := invoke(ctx, a, "CreateProcessInstance", createProcessInstanceRule(req),
		func(ctx context.Context) (*pb.CreateProcessInstanceResponse, error) {
			return a.gateway.CreateProcessInstance(ctx, preq)
		}, attribute.String(tracing.BpmnProcessID, req.BpmnProcessID))
	if err != nil {
		return nil, err
	}

	return &CreateProcessInstanceResponse{
		ProcessDefinitionKey: resp.GetProcessDefinitionKey(),
		BpmnProcessID:        resp.GetBpmnProcessId(),
		Version:              resp.GetVersion(),
		ProcessInstanceKey:   resp.GetProcessInstanceKey(),
		TenantID:             resp.GetTenantId(),
	}, nil
}

// CreateProcessInstanceWithResult creates a process instance and waits for it to complete.
func (a *Adapter) CreateProcessInstanceWithResult(
	ctx context.Context, req CreateProcessInstanceWithResultRequest,
) (*CreateProcessInstanceWithResultResponse, error) {
	preq, err := req.CreateProcessInstanceRequest.toProto()
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, activateJobsDeadline(req.Timeout))
		defer cancel()
	}

	resp, err := invoke(ctx, a, "CreateProcessInstanceWithResult", createProcessInstanceRule(req.CreateProcessInstanceRequest),
		func(ctx context.Context) (*pb.CreateProcessInstanceWithResultResponse, error) {
			return a.gateway.CreateProcessInstanceWithResult(ctx, &pb.CreateProcessInstanceWithResultRequest{
				Request:        preq,
				RequestTimeout: req.Timeout.Milliseconds(),
				FetchVariables: req.VariablesToFetch,
			})
		}, attribute.String(tracing.BpmnProcessID, req.BpmnProcessID))
	if err != nil {
		return nil, err
	}

	variables, err := job.DecodeVariables(resp.GetVariables())
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	return &CreateProcessInstanceWithResultResponse{
		CreateProcessInstanceResponse: CreateProcessInstanceResponse{
			ProcessDefinitionKey: resp.GetProcessDefinitionKey(),
			BpmnProcessID:        resp.GetBpmnProcessId(),
			Version:              resp.GetVersion(),
			ProcessInstanceKey:   resp.GetProcessInstanceKey(),
			TenantID:             resp.GetTenantId(),
		},
		Variables: variables,
	}, nil
}

func (a *Adapter) CancelProcessInstance(ctx context.Context, processInstanceKey int64) error {
	_, err := invoke(ctx, a, "CancelProcessInstance",
		func(st *status.Status) error {
			if st.Code() == codes.NotFound {
				return &zeebeerrors.ErrProcessInstanceNotFound{Key: processInstanceKey}
			}

			return nil
		},
		func(ctx context.Context) (*pb.CancelProcessInstanceResponse, error) {
			return a.gateway.CancelProcessInstance(ctx, &pb.CancelProcessInstanceRequest{
				ProcessInstanceKey: processInstanceKey,
			})
		}, attribute.Int64(tracing.ProcessInstanceKey, processInstanceKey))

	return err
}
