package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type PublishMessageRequest struct {
	Name           string
	CorrelationKey string
	TimeToLive     time.Duration
	MessageID      string
	Variables      job.Variables
	TenantID       string
}

type PublishMessageResponse struct {
	Key      int64
	TenantID string
}

func (a *Adapter) PublishMessage(ctx context.Context, req PublishMessageRequest) (*PublishMessageResponse, error) {
	doc, err := req.Variables.Encode()
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	resp, err := invoke(ctx, a, "PublishMessage",
		func(st *status.Status) error {
			if st.Code() == codes.AlreadyExists {
				return &zeebeerrors.ErrMessageAlreadyExists{MessageID: req.MessageID}
			}

			return nil
		},
		func(ctx context.Context) (*pb.PublishMessageResponse, error) {
			return a.gateway.PublishMessage(ctx, &pb.PublishMessageRequest{
				Name:           req.Name,
				CorrelationKey: req.CorrelationKey,
				TimeToLive:     req.TimeToLive.Milliseconds(),
				MessageId:      req.MessageID,
				Variables:      doc,
				TenantId:       req.TenantID,
			})
		})
	if err != nil {
		return nil, err
	}

	return &PublishMessageResponse{Key: resp.GetKey(), TenantID: resp.GetTenantId()}, nil
}

type BroadcastSignalRequest struct {
	SignalName string
	Variables  job.Variables
	TenantID   string
}

type BroadcastSignalResponse struct {
	Key      int64
	TenantID string
}

func (a *Adapter) BroadcastSignal(ctx context.Context, req BroadcastSignalRequest) (*BroadcastSignalResponse, error) {
	doc, err := req.Variables.Encode()
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	resp, err := invoke(ctx, a, "BroadcastSignal", nil, func(ctx context.Context) (*pb.BroadcastSignalResponse, error) {
		return a.gateway.BroadcastSignal(ctx, &pb.BroadcastSignalRequest{
			SignalName: req.SignalName,
			Variables:  doc,
			TenantId:   req.TenantID,
		})
	})
	if err != nil {
		return nil, err
	}

	return &BroadcastSignalResponse{Key: resp.GetKey(), TenantID: resp.GetTenantId()}, nil
}

type EvaluateDecisionRequest struct {
	// DecisionKey or DecisionID identify the decision. The key takes precedence.
	DecisionKey int64
	DecisionID  string

	Variables job.Variables
	TenantID  string
}

type EvaluatedDecision struct {
	DecisionKey     int64
	DecisionID      string
	DecisionName    string
	DecisionVersion int32
	DecisionType    string
	DecisionOutput  string
}

type EvaluateDecisionResponse struct {
	DecisionKey             int64
	DecisionID              string
	DecisionName            string
	DecisionVersion         int32
	DecisionRequirementsID  string
	DecisionRequirementsKey int64

	// DecisionOutput is the JSON encoded output of the decision.
	DecisionOutput string

	EvaluatedDecisions []EvaluatedDecision

	FailedDecisionID string
	FailureMessage   string
	TenantID         string
}

const decisionNotFoundDetail = "but no decision found for"

func (a *Adapter) EvaluateDecision(ctx context.Context, req EvaluateDecisionRequest) (*EvaluateDecisionResponse, error) {
	if req.DecisionKey == 0 && req.DecisionID == "" {
		return nil, &zeebeerrors.ErrSettings{Message: "either a decision key or a decision id is required"}
	}

	doc, err := req.Variables.Encode()
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	resp, err := invoke(ctx, a, "EvaluateDecision",
		func(st *status.Status) error {
			if st.Code() == codes.InvalidArgument && strings.Contains(st.Message(), decisionNotFoundDetail) {
				return &zeebeerrors.ErrDecisionNotFound{DecisionID: req.DecisionID, DecisionKey: req.DecisionKey}
			}

			return nil
		},
		func(ctx context.Context) (*pb.EvaluateDecisionResponse, error) {
			return a.gateway.EvaluateDecision(ctx, &pb.EvaluateDecisionRequest{
				DecisionKey: req.DecisionKey,
				DecisionId:  req.DecisionID,
				Variables:   doc,
				TenantId:    req.TenantID,
			})
		})
	if err != nil {
		return nil, err
	}

	result := &EvaluateDecisionResponse{
		DecisionKey:             resp.GetDecisionKey(),
		DecisionID:              resp.GetDecisionId(),
		DecisionName:            resp.GetDecisionName(),
		DecisionVersion:         resp.GetDecisionVersion(),
		DecisionRequirementsID:  resp.GetDecisionRequirementsId(),
		DecisionRequirementsKey: resp.GetDecisionRequirementsKey(),
		DecisionOutput:          resp.GetDecisionOutput(),
		FailedDecisionID:        resp.GetFailedDecisionId(),
		FailureMessage:          resp.GetFailureMessage(),
		TenantID:                resp.GetTenantId(),
	}

	for _, ed := range resp.GetEvaluatedDecisions() {
		result.EvaluatedDecisions = append(result.EvaluatedDecisions, EvaluatedDecision{
			DecisionKey:     ed.GetDecisionKey(),
			DecisionID:      ed.GetDecisionId(),
			DecisionName:    ed.GetDecisionName(),
			DecisionVersion: ed.GetDecisionVersion(),
			DecisionType:    ed.GetDecisionType(),
			DecisionOutput:  ed.GetDecisionOutput(),
		})
	}

	return result, nil
}
