package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type DeployResourceRequest struct {
	// Paths of the BPMN, DMN or form files to deploy. All files are deployed atomically.
	Paths    []string
	TenantID string
}

type DeployResourceResponse struct {
	Key         int64
	Deployments []Deployment
	TenantID    string
}

// Deployment is one of ProcessMetadata, DecisionMetadata, DecisionRequirementsMetadata or FormMetadata.
type Deployment interface {
	deployment()
}

type ProcessMetadata struct {
	BpmnProcessID        string
	Version              int32
	ProcessDefinitionKey int64
	ResourceName         string
	TenantID             string
}

type DecisionMetadata struct {
	DmnDecisionID             string
	DmnDecisionName           string
	Version                   int32
	DecisionKey               int64
	DmnDecisionRequirementsID string
	DecisionRequirementsKey   int64
	TenantID                  string
}

type DecisionRequirementsMetadata struct {
	DmnDecisionRequirementsID   string
	DmnDecisionRequirementsName string
	Version                     int32
	DecisionRequirementsKey     int64
	ResourceName                string
	TenantID                    string
}

type FormMetadata struct {
	FormID       string
	Version      int32
	FormKey      int64
	ResourceName string
	TenantID     string
}

func (ProcessMetadata) deployment()              {}
func (DecisionMetadata) deployment()             {}
func (DecisionRequirementsMetadata) deployment() {}
func (FormMetadata) deployment()                 {}

func (a *Adapter) DeployResource(ctx context.Context, req DeployResourceRequest) (*DeployResourceResponse, error) {
	resources := make([]*pb.Resource, 0, len(req.Paths))
	for _, path := range req.Paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading resource %s: %w", path, err)
		}

		resources = append(resources, &pb.Resource{
			Name:    filepath.Base(path),
			Content: content,
		})
	}

	resp, err := invoke(ctx, a, "DeployResource",
		func(st *status.Status) error {
			if st.Code() == codes.InvalidArgument {
				return &zeebeerrors.ErrProcessInvalid{Cause: st.Err()}
			}

			return nil
		},
		func(ctx context.Context) (*pb.DeployResourceResponse, error) {
			return a.gateway.DeployResource(ctx, &pb.DeployResourceRequest{
				Resources: resources,
				TenantId:  req.TenantID,
			})
		})
	if err != nil {
		return nil, err
	}

	result := &DeployResourceResponse{
		Key:      resp.GetKey(),
		TenantID: resp.GetTenantId(),
	}

	for _, d := range resp.GetDeployments() {
		if dep := newDeployment(d); dep != nil {
			result.Deployments = append(result.Deployments, dep)
		}
	}

	return result, nil
}

func newDeployment(d *pb.Deployment) Deployment {
	if p := d.GetProcess(); p != nil {
		return ProcessMetadata{
			BpmnProcessID:        p.GetBpmnProcessId(),
			Version:              p.GetVersion(),
			ProcessDefinitionKey: p.GetProcessDefinitionKey(),
			ResourceName:         p.GetResourceName(),
			TenantID:             p.GetTenantId(),
		}
	}

	if dm := d.GetDecision(); dm != nil {
		return DecisionMetadata{
			DmnDecisionID:             dm.GetDmnDecisionId(),
			DmnDecisionName:           dm.GetDmnDecisionName(),
			Version:                   dm.GetVersion(),
			DecisionKey:               dm.GetDecisionKey(),
			DmnDecisionRequirementsID: dm.GetDmnDecisionRequirementsId(),
			DecisionRequirementsKey:   dm.GetDecisionRequirementsKey(),
			TenantID:                  dm.GetTenantId(),
		}
	}

	if dr := d.GetDecisionRequirements(); dr != nil {
		return DecisionRequirementsMetadata{
			DmnDecisionRequirementsID:   dr.GetDmnDecisionRequirementsId(),
			DmnDecisionRequirementsName: dr.GetDmnDecisionRequirementsName(),
			Version:                     dr.GetVersion(),
			DecisionRequirementsKey:     dr.GetDecisionRequirementsKey(),
			ResourceName:                dr.GetResourceName(),
			TenantID:                    dr.GetTenantId(),
		}
	}

	if f := d.GetForm(); f != nil {
		return FormMetadata{
			FormID:       f.GetFormId(),
			Version:      f.GetVersion(),
			FormKey:      f.GetFormKey(),
			ResourceName: f.GetResourceName(),
			TenantID:     f.GetTenantId(),
		}
	}

	return nil
}
