// Package gatewaytest provides an in-memory Zeebe gateway for tests. It serves the gateway protocol over
// a bufconn listener and keeps just enough state to run single service task processes.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const (
	GatewayService = "gateway_protocol.Gateway"

	defaultLongPollTimeout = 10 * time.Second
)

type instance struct {
	key           int64
	bpmnProcessID string
	version       int32
	variables     map[string]any
	done          chan struct{}
}

type Gateway struct {
	pb.UnimplementedGatewayServer

	Health *health.Server

	mu sync.Mutex

	nextKey int64

	// BPMN process id -> service task type. An empty type completes instances immediately.
	processes map[string]string
	instances map[int64]*instance

	pending   []*pb.ActivatedJob
	activated map[int64]*pb.ActivatedJob
	jobAdded  chan struct{}

	errors   map[string][]error
	requests map[string][]any

	activations    int
	maxActivations int

	topology *pb.TopologyResponse
}

func New() *Gateway {
	g := &Gateway{
		Health:    health.NewServer(),
		nextKey:   2251799813685248,
		processes: map[string]string{},
		instances: map[int64]*instance{},
		activated: map[int64]*pb.ActivatedJob{},
		jobAdded:  make(chan struct{}),
		errors:    map[string][]error{},
		requests:  map[string][]any{},
		topology: &pb.TopologyResponse{
			Brokers: []*pb.BrokerInfo{{
				NodeId: 0,
				Host:   "localhost",
				Port:   26501,
				Partitions: []*pb.Partition{{
					PartitionId: 1,
					Role:        pb.Partition_LEADER,
					Health:      pb.Partition_HEALTHY,
				}},
				Version: "8.5.0",
			}},
			ClusterSize:       1,
			PartitionsCount:   1,
			ReplicationFactor: 1,
			GatewayVersion:    "8.5.0",
		},
	}

	g.Health.SetServingStatus(GatewayService, grpc_health_v1.HealthCheckResponse_SERVING)

	return g
}

func serve(t testing.TB, g *Gateway, lis net.Listener) {
	srv := grpc.NewServer()
	pb.RegisterGatewayServer(srv, g)
	grpc_health_v1.RegisterHealthServer(srv, g.Health)

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)
}

// Start serves a new gateway and returns a client connection to it. Both are torn down when the test ends.
func Start(t testing.TB) (*Gateway, *grpc.ClientConn) {
	t.Helper()

	g := New()

	lis := bufconn.Listen(1 << 20)
	serve(t, g, lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return g, conn
}

// Listen serves a new gateway on a local TCP port and returns its address, for code that dials on its own.
func Listen(t testing.TB) (*Gateway, string) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	g := New()
	serve(t, g, lis)

	return g, lis.Addr().String()
}

// RegisterProcess makes instances of bpmnProcessID create one job of taskType.
func (g *Gateway) RegisterProcess(bpmnProcessID, taskType string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.processes[bpmnProcessID] = taskType
}

// AddJobs queues jobs for activation.
func (g *Gateway) AddJobs(jobs ...*pb.ActivatedJob) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, j := range jobs {
		if j.Key == 0 {
			j.Key = g.key()
		}

		if j.Variables == "" {
			j.Variables = "{}"
		}

		if j.CustomHeaders == "" {
			j.CustomHeaders = "{}"
		}

		g.pending = append(g.pending, j)
	}

	g.notify()
}

// FailNext makes the next call of rpc return err.
func (g *Gateway) FailNext(rpc string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.errors[rpc] = append(g.errors[rpc], err)
}

// Requests returns the requests received for rpc, in order.
func (g *Gateway) Requests(rpc string) []any {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]any(nil), g.requests[rpc]...)
}

// MaxConcurrentActivations returns the highest number of ActivateJobs calls observed at the same time.
func (g *Gateway) MaxConcurrentActivations() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.maxActivations
}

func (g *Gateway) key() int64 {
	g.nextKey++
	return g.nextKey
}

func (g *Gateway) notify() {
	close(g.jobAdded)
	g.jobAdded = make(chan struct{})
}

// begin records req and returns the queued error for rpc, if any.
func (g *Gateway) begin(rpc string, req any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests[rpc] = append(g.requests[rpc], req)

	if errs := g.errors[rpc]; len(errs) > 0 {
		g.errors[rpc] = errs[1:]
		return errs[0]
	}

	return nil
}

func (g *Gateway) take(taskType string, n int, worker string, timeout int64) []*pb.ActivatedJob {
	var taken, rest []*pb.ActivatedJob
	for _, j := range g.pending {
		if j.Type == taskType && len(taken) < n {
			j.Worker = worker
			j.Deadline = time.Now().Add(time.Duration(timeout) * time.Millisecond).UnixMilli()
			g.activated[j.Key] = j
			taken = append(taken, j)
			continue
		}

		rest = append(rest, j)
	}

	g.pending = rest

	return taken
}

func (g *Gateway) ActivateJobs(req *pb.ActivateJobsRequest, stream pb.Gateway_ActivateJobsServer) error {
	if err := g.begin("ActivateJobs", req); err != nil {
		return err
	}

	g.mu.Lock()
	g.activations++
	g.maxActivations = max(g.maxActivations, g.activations)
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.activations--
		g.mu.Unlock()
	}()

	longPoll := time.Duration(req.GetRequestTimeout()) * time.Millisecond
	if longPoll == 0 {
		longPoll = defaultLongPollTimeout
	}

	timer := time.NewTimer(max(longPoll, 0))
	defer timer.Stop()

	for {
		g.mu.Lock()
		jobs := g.take(req.GetType(), int(req.GetMaxJobsToActivate()), req.GetWorker(), req.GetTimeout())
		added := g.jobAdded
		g.mu.Unlock()

		if len(jobs) > 0 {
			return stream.Send(&pb.ActivateJobsResponse{Jobs: jobs})
		}

		if longPoll < 0 {
			return nil
		}

		select {
		case <-added:
		case <-timer.C:
			return nil
		case <-stream.Context().Done():
			return status.FromContextError(stream.Context().Err()).Err()
		}
	}
}

func (g *Gateway) StreamActivatedJobs(req *pb.StreamActivatedJobsRequest, stream pb.Gateway_StreamActivatedJobsServer) error {
	if err := g.begin("StreamActivatedJobs", req); err != nil {
		return err
	}

	for {
		g.mu.Lock()
		jobs := g.take(req.GetType(), 1, req.GetWorker(), req.GetTimeout())
		added := g.jobAdded
		g.mu.Unlock()

		for _, j := range jobs {
			if err := stream.Send(j); err != nil {
				return err
			}
		}

		if len(jobs) > 0 {
			continue
		}

		select {
		case <-added:
		case <-stream.Context().Done():
			return status.FromContextError(stream.Context().Err()).Err()
		}
	}
}

func (g *Gateway) ack(key int64) (*pb.ActivatedJob, error) {
	j, ok := g.activated[key]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "job with key '%d' not found", key)
	}

	delete(g.activated, key)

	return j, nil
}

func (g *Gateway) CompleteJob(_ context.Context, req *pb.CompleteJobRequest) (*pb.CompleteJobResponse, error) {
	if err := g.begin("CompleteJob", req); err != nil {
		return nil, err
	}

	var variables map[string]any
	if err := json.Unmarshal([]byte(req.GetVariables()), &variables); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid variables: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	j, err := g.ack(req.GetJobKey())
	if err != nil {
		return nil, err
	}

	if inst, ok := g.instances[j.ProcessInstanceKey]; ok {
		for k, v := range variables {
			inst.variables[k] = v
		}

		g.completeInstance(inst)
	}

	return &pb.CompleteJobResponse{}, nil
}

func (g *Gateway) FailJob(_ context.Context, req *pb.FailJobRequest) (*pb.FailJobResponse, error) {
	if err := g.begin("FailJob", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.ack(req.GetJobKey()); err != nil {
		return nil, err
	}

	return &pb.FailJobResponse{}, nil
}

func (g *Gateway) ThrowError(_ context.Context, req *pb.ThrowErrorRequest) (*pb.ThrowErrorResponse, error) {
	if err := g.begin("ThrowError", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.ack(req.GetJobKey()); err != nil {
		return nil, err
	}

	return &pb.ThrowErrorResponse{}, nil
}

func (g *Gateway) UpdateJobTimeout(_ context.Context, req *pb.UpdateJobTimeoutRequest) (*pb.UpdateJobTimeoutResponse, error) {
	if err := g.begin("UpdateJobTimeout", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	j, ok := g.activated[req.GetJobKey()]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "job with key '%d' not found", req.GetJobKey())
	}

	j.Deadline = time.Now().Add(time.Duration(req.GetTimeout()) * time.Millisecond).UnixMilli()

	return &pb.UpdateJobTimeoutResponse{}, nil
}

func (g *Gateway) completeInstance(inst *instance) {
	select {
	case <-inst.done:
	default:
		close(inst.done)
	}
}

func (g *Gateway) createInstance(req *pb.CreateProcessInstanceRequest) (*instance, error) {
	variables := map[string]any{}
	if req.GetVariables() != "" {
		if err := json.Unmarshal([]byte(req.GetVariables()), &variables); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "expected to create process instance with variables: %v", err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	taskType, ok := g.processes[req.GetBpmnProcessId()]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no process definition found with id '%s'", req.GetBpmnProcessId())
	}

	inst := &instance{
		key:           g.key(),
		bpmnProcessID: req.GetBpmnProcessId(),
		version:       1,
		variables:     variables,
		done:          make(chan struct{}),
	}
	g.instances[inst.key] = inst

	if taskType == "" {
		g.completeInstance(inst)
		return inst, nil
	}

	doc, _ := json.Marshal(variables)
	g.pending = append(g.pending, &pb.ActivatedJob{
		Key:                      g.key(),
		Type:                     taskType,
		ProcessInstanceKey:       inst.key,
		BpmnProcessId:            inst.bpmnProcessID,
		ProcessDefinitionVersion: inst.version,
		ProcessDefinitionKey:     1,
		ElementId:                "task",
		ElementInstanceKey:       g.key(),
		CustomHeaders:            "{}",
		Retries:                  3,
		Variables:                string(doc),
		TenantId:                 req.GetTenantId(),
	})
	g.notify()

	return inst, nil
}

func (g *Gateway) CreateProcessInstance(_ context.Context, req *pb.CreateProcessInstanceRequest) (*pb.CreateProcessInstanceResponse, error) {
	if err := g.begin("CreateProcessInstance", req); err != nil {
		return nil, err
	}

	inst, err := g.createInstance(req)
	if err != nil {
		return nil, err
	}

	return &pb.CreateProcessInstanceResponse{
		ProcessDefinitionKey: 1,
		BpmnProcessId:        inst.bpmnProcessID,
		Version:              inst.version,
		ProcessInstanceKey:   inst.key,
		TenantId:             req.GetTenantId(),
	}, nil
}

func (g *Gateway) CreateProcessInstanceWithResult(
	ctx context.Context, req *pb.CreateProcessInstanceWithResultRequest,
) (*pb.CreateProcessInstanceWithResultResponse, error) {
	if err := g.begin("CreateProcessInstanceWithResult", req); err != nil {
		return nil, err
	}

	inst, err := g.createInstance(req.GetRequest())
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(req.GetRequestTimeout()) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}

	select {
	case <-inst.done:
	case <-time.After(timeout):
		return nil, status.Errorf(codes.DeadlineExceeded, "process instance %d did not complete in time", inst.key)
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	g.mu.Lock()
	result := map[string]any{}
	for k, v := range inst.variables {
		if len(req.GetFetchVariables()) == 0 || slices.Contains(req.GetFetchVariables(), k) {
			result[k] = v
		}
	}
	g.mu.Unlock()

	doc, _ := json.Marshal(result)

	return &pb.CreateProcessInstanceWithResultResponse{
		ProcessDefinitionKey: 1,
		BpmnProcessId:        inst.bpmnProcessID,
		Version:              inst.version,
		ProcessInstanceKey:   inst.key,
		Variables:            string(doc),
		TenantId:             req.GetRequest().GetTenantId(),
	}, nil
}

func (g *Gateway) CancelProcessInstance(_ context.Context, req *pb.CancelProcessInstanceRequest) (*pb.CancelProcessInstanceResponse, error) {
	if err := g.begin("CancelProcessInstance", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	inst, ok := g.instances[req.GetProcessInstanceKey()]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "process instance '%d' not found", req.GetProcessInstanceKey())
	}

	delete(g.instances, inst.key)
	g.completeInstance(inst)

	return &pb.CancelProcessInstanceResponse{}, nil
}

// DeployResource accepts .bpmn, .dmn and .form resources. The resource name without extension is used as
// the process, decision or form id; deployed processes complete without creating jobs unless
// RegisterProcess assigns a task type.
func (g *Gateway) DeployResource(_ context.Context, req *pb.DeployResourceRequest) (*pb.DeployResourceResponse, error) {
	if err := g.begin("DeployResource", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	resp := &pb.DeployResourceResponse{Key: g.key(), TenantId: req.GetTenantId()}

	for _, r := range req.GetResources() {
		ext := filepath.Ext(r.GetName())
		id := strings.TrimSuffix(r.GetName(), ext)

		var d *pb.Deployment
		switch ext {
		case ".bpmn":
			if _, ok := g.processes[id]; !ok {
				g.processes[id] = ""
			}

			d = &pb.Deployment{Metadata: &pb.Deployment_Process{Process: &pb.ProcessMetadata{
				BpmnProcessId:        id,
				Version:              1,
				ProcessDefinitionKey: g.key(),
				ResourceName:         r.GetName(),
				TenantId:             req.GetTenantId(),
			}}}
		case ".dmn":
			d = &pb.Deployment{Metadata: &pb.Deployment_Decision{Decision: &pb.DecisionMetadata{
				DmnDecisionId:             id,
				DmnDecisionName:           id,
				Version:                   1,
				DecisionKey:               g.key(),
				DmnDecisionRequirementsId: id + "_drg",
				DecisionRequirementsKey:   g.key(),
				TenantId:                  req.GetTenantId(),
			}}}
		case ".form":
			d = &pb.Deployment{Metadata: &pb.Deployment_Form{Form: &pb.FormMetadata{
				FormId:       id,
				Version:      1,
				FormKey:      g.key(),
				ResourceName: r.GetName(),
				TenantId:     req.GetTenantId(),
			}}}
		default:
			return nil, status.Errorf(codes.InvalidArgument, "expected to deploy new resources, but encountered unknown resource %s", r.GetName())
		}

		resp.Deployments = append(resp.Deployments, d)
	}

	return resp, nil
}

func (g *Gateway) PublishMessage(_ context.Context, req *pb.PublishMessageRequest) (*pb.PublishMessageResponse, error) {
	if err := g.begin("PublishMessage", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return &pb.PublishMessageResponse{Key: g.key(), TenantId: req.GetTenantId()}, nil
}

func (g *Gateway) BroadcastSignal(_ context.Context, req *pb.BroadcastSignalRequest) (*pb.BroadcastSignalResponse, error) {
	if err := g.begin("BroadcastSignal", req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return &pb.BroadcastSignalResponse{Key: g.key(), TenantId: req.GetTenantId()}, nil
}

// EvaluateDecision echoes the input variables as decision output.
func (g *Gateway) EvaluateDecision(_ context.Context, req *pb.EvaluateDecisionRequest) (*pb.EvaluateDecisionResponse, error) {
	if err := g.begin("EvaluateDecision", req); err != nil {
		return nil, err
	}

	output := req.GetVariables()
	if output == "" {
		output = "{}"
	}

	return &pb.EvaluateDecisionResponse{
		DecisionKey:    req.GetDecisionKey(),
		DecisionId:     req.GetDecisionId(),
		DecisionName:   req.GetDecisionId(),
		DecisionOutput: output,
		EvaluatedDecisions: []*pb.EvaluatedDecision{{
			DecisionKey:    req.GetDecisionKey(),
			DecisionId:     req.GetDecisionId(),
			DecisionType:   "DECISION_TABLE",
			DecisionOutput: output,
		}},
		TenantId: req.GetTenantId(),
	}, nil
}

func (g *Gateway) Topology(_ context.Context, req *pb.TopologyRequest) (*pb.TopologyResponse, error) {
	if err := g.begin("Topology", req); err != nil {
		return nil, err
	}

	return g.topology, nil
}

// Variables returns the current variables of a process instance.
func (g *Gateway) Variables(processInstanceKey int64) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	inst, ok := g.instances[processInstanceKey]
	if !ok {
		return nil, fmt.Errorf("process instance %d not found", processInstanceKey)
	}

	return maps.Clone(inst.variables), nil
}
