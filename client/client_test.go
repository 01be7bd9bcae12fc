package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/cschleiden/go-zeebe/adapter"
	"github.com/cschleiden/go-zeebe/internal/gatewaytest"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func newClient(t *testing.T, opts ...Option) (*Client, *gatewaytest.Gateway) {
	t.Helper()

	g, conn := gatewaytest.Start(t)

	return New(adapter.New(conn), opts...), g
}

func Test_Client_RunProcess(t *testing.T) {
	c, g := newClient(t, WithTenantID("tenant-a"))
	g.RegisterProcess("order", "pay")

	resp, err := c.RunProcess(context.Background(), "order", job.Variables{"amount": 10})
	require.NoError(t, err)
	require.Equal(t, "order", resp.BpmnProcessID)
	require.NotZero(t, resp.ProcessInstanceKey)
	require.Equal(t, "tenant-a", resp.TenantID)

	reqs := g.Requests("CreateProcessInstance")
	require.Len(t, reqs, 1)

	req := reqs[0].(*pb.CreateProcessInstanceRequest)
	require.Equal(t, adapter.LatestVersion, req.GetVersion())
	require.JSONEq(t, `{"amount": 10}`, req.GetVariables())
}

func Test_Client_RunProcess_Version(t *testing.T) {
	c, g := newClient(t)
	g.RegisterProcess("order", "")

	_, err := c.RunProcess(context.Background(), "order", nil, WithVersion(3), WithProcessTenantID("tenant-b"))
	require.NoError(t, err)

	req := g.Requests("CreateProcessInstance")[0].(*pb.CreateProcessInstanceRequest)
	require.Equal(t, int32(3), req.GetVersion())
	require.Equal(t, "tenant-b", req.GetTenantId())
	require.Equal(t, "{}", req.GetVariables())
}

func Test_Client_RunProcess_NotFound(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.RunProcess(context.Background(), "missing", nil)

	var notFound *zeebeerrors.ErrProcessDefinitionNotFound
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.BpmnProcessID)
}

func Test_Client_RunProcessWithResult(t *testing.T) {
	c, g := newClient(t)
	g.RegisterProcess("instant", "")

	resp, err := c.RunProcessWithResult(context.Background(), "instant", job.Variables{"x": "y"},
		WithResultTimeout(time.Second), WithVariablesToFetch("x"))
	require.NoError(t, err)
	require.Equal(t, "y", resp.Variables["x"])

	req := g.Requests("CreateProcessInstanceWithResult")[0].(*pb.CreateProcessInstanceWithResultRequest)
	require.Equal(t, int64(1000), req.GetRequestTimeout())
	require.Equal(t, []string{"x"}, req.GetFetchVariables())
}

func Test_Client_RunProcessWithResult_Timeout(t *testing.T) {
	c, g := newClient(t)
	g.RegisterProcess("slow", "never-handled")

	_, err := c.RunProcessWithResult(context.Background(), "slow", nil, WithResultTimeout(50*time.Millisecond))

	var timeout *zeebeerrors.ErrProcessTimeout
	require.ErrorAs(t, err, &timeout)
}

func Test_Client_CancelProcessInstance(t *testing.T) {
	c, g := newClient(t)
	g.RegisterProcess("order", "pay")

	resp, err := c.RunProcess(context.Background(), "order", nil)
	require.NoError(t, err)

	key, err := c.CancelProcessInstance(context.Background(), resp.ProcessInstanceKey)
	require.NoError(t, err)
	require.Equal(t, resp.ProcessInstanceKey, key)

	_, err = c.CancelProcessInstance(context.Background(), 42)

	var notFound *zeebeerrors.ErrProcessInstanceNotFound
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(42), notFound.Key)
}

func Test_Client_DeployResource(t *testing.T) {
	c, _ := newClient(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "order.bpmn")
	require.NoError(t, os.WriteFile(path, []byte("<definitions/>"), 0o600))

	resp, err := c.DeployResource(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, resp.Deployments, 1)

	process, ok := resp.Deployments[0].(adapter.ProcessMetadata)
	require.True(t, ok)
	require.Equal(t, "order.bpmn", process.ResourceName)
}

func Test_Client_PublishMessage(t *testing.T) {
	c, g := newClient(t)

	_, err := c.PublishMessage(context.Background(), "payment-received", "order-1", job.Variables{"paid": true})
	require.NoError(t, err)

	_, err = c.PublishMessage(context.Background(), "payment-received", "order-2", nil,
		WithTimeToLive(time.Minute*5), WithMessageID("m-1"), WithMessageTenantID("t"))
	require.NoError(t, err)

	reqs := g.Requests("PublishMessage")
	require.Len(t, reqs, 2)

	first := reqs[0].(*pb.PublishMessageRequest)
	require.Equal(t, DefaultMessageTimeToLive.Milliseconds(), first.GetTimeToLive())
	require.Equal(t, "order-1", first.GetCorrelationKey())

	second := reqs[1].(*pb.PublishMessageRequest)
	require.Equal(t, (5 * time.Minute).Milliseconds(), second.GetTimeToLive())
	require.Equal(t, "m-1", second.GetMessageId())
	require.Equal(t, "t", second.GetTenantId())
}

func Test_Client_PublishMessage_AlreadyExists(t *testing.T) {
	c, g := newClient(t)
	g.FailNext("PublishMessage", status.Error(codes.AlreadyExists, "message with id 'm-1' already published"))

	_, err := c.PublishMessage(context.Background(), "payment-received", "order-1", nil, WithMessageID("m-1"))

	var exists *zeebeerrors.ErrMessageAlreadyExists
	require.ErrorAs(t, err, &exists)
	require.Equal(t, "m-1", exists.MessageID)
}

func Test_Client_EvaluateDecision(t *testing.T) {
	c, g := newClient(t)

	resp, err := c.EvaluateDecisionByID(context.Background(), "discount", job.Variables{"customer": "gold"})
	require.NoError(t, err)
	require.JSONEq(t, `{"customer": "gold"}`, resp.DecisionOutput)

	_, err = c.EvaluateDecisionByKey(context.Background(), 17, nil)
	require.NoError(t, err)

	reqs := g.Requests("EvaluateDecision")
	require.Equal(t, "discount", reqs[0].(*pb.EvaluateDecisionRequest).GetDecisionId())
	require.Equal(t, int64(17), reqs[1].(*pb.EvaluateDecisionRequest).GetDecisionKey())
}

func Test_Client_BroadcastSignal(t *testing.T) {
	c, _ := newClient(t)

	resp, err := c.BroadcastSignal(context.Background(), "shutdown", nil)
	require.NoError(t, err)
	require.NotZero(t, resp.Key)
}

func Test_Client_Topology(t *testing.T) {
	c, _ := newClient(t)

	topology, err := c.Topology(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, topology.Brokers)
}

func Test_Client_WaitForHealthy(t *testing.T) {
	c, g := newClient(t)

	g.Health.SetServingStatus(adapter.GatewayService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	go func() {
		time.Sleep(50 * time.Millisecond)
		g.Health.SetServingStatus(adapter.GatewayService, grpc_health_v1.HealthCheckResponse_SERVING)
	}()

	require.NoError(t, c.WaitForHealthy(context.Background(), 5*time.Second))

	s, err := c.Healthcheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, adapter.HealthServing, s)
}

func Test_Client_WaitForHealthy_Timeout(t *testing.T) {
	c, g := newClient(t)

	g.Health.SetServingStatus(adapter.GatewayService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	err := c.WaitForHealthy(context.Background(), 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNotHealthy)
	require.ErrorContains(t, err, string(adapter.HealthNotServing))
}
