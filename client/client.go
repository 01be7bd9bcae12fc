// Package client issues one-shot commands against a Zeebe gateway.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-zeebe/adapter"
	"github.com/cschleiden/go-zeebe/contextpropagation"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/log"
)

var ErrNotHealthy = errors.New("gateway did not become healthy")

type Client struct {
	adapter *adapter.Adapter

	logger      *slog.Logger
	clock       clock.Clock
	tenantID    string
	propagators []contextpropagation.ContextPropagator
}

func New(a *adapter.Adapter, opts ...Option) *Client {
	o := options{
		logger: slog.Default(),
		clock:  clock.New(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		adapter:     a,
		logger:      o.logger,
		clock:       o.clock,
		tenantID:    o.tenantID,
		propagators: o.propagators,
	}
}

func (c *Client) processRequest(
	ctx context.Context, bpmnProcessID string, variables job.Variables, opts []ProcessOption,
) (adapter.CreateProcessInstanceWithResultRequest, error) {
	variables, err := contextpropagation.Inject(ctx, c.propagators, variables)
	if err != nil {
		return adapter.CreateProcessInstanceWithResultRequest{}, fmt.Errorf("injecting context: %w", err)
	}

	req := adapter.CreateProcessInstanceWithResultRequest{
		CreateProcessInstanceRequest: adapter.CreateProcessInstanceRequest{
			BpmnProcessID: bpmnProcessID,
			Version:       adapter.LatestVersion,
			Variables:     variables,
			TenantID:      c.tenantID,
		},
	}

	for _, opt := range opts {
		opt(&req)
	}

	return req, nil
}

// RunProcess starts an instance of the process and returns without waiting for it.
func (c *Client) RunProcess(
	ctx context.Context, bpmnProcessID string, variables job.Variables, opts ...ProcessOption,
) (*adapter.CreateProcessInstanceResponse, error) {
	req, err := c.processRequest(ctx, bpmnProcessID, variables, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.adapter.CreateProcessInstance(ctx, req.CreateProcessInstanceRequest)
	if err != nil {
		return nil, fmt.Errorf("running process %s: %w", bpmnProcessID, err)
	}

	c.logger.Debug("Created process instance",
		log.BpmnProcessIDKey, resp.BpmnProcessID,
		log.ProcessInstanceKeyKey, resp.ProcessInstanceKey)

	return resp, nil
}

// RunProcessWithResult starts an instance of the process and waits for it to complete.
func (c *Client) RunProcessWithResult(
	ctx context.Context, bpmnProcessID string, variables job.Variables, opts ...ProcessOption,
) (*adapter.CreateProcessInstanceWithResultResponse, error) {
	req, err := c.processRequest(ctx, bpmnProcessID, variables, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.adapter.CreateProcessInstanceWithResult(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("running process %s: %w", bpmnProcessID, err)
	}

	c.logger.Debug("Process instance completed",
		log.BpmnProcessIDKey, resp.BpmnProcessID,
		log.ProcessInstanceKeyKey, resp.ProcessInstanceKey)

	return resp, nil
}

// CancelProcessInstance cancels a running process instance and returns its key.
func (c *Client) CancelProcessInstance(ctx context.Context, processInstanceKey int64) (int64, error) {
	if err := c.adapter.CancelProcessInstance(ctx, processInstanceKey); err != nil {
		return 0, fmt.Errorf("cancelling process instance %d: %w", processInstanceKey, err)
	}

	c.logger.Debug("Cancelled process instance", log.ProcessInstanceKeyKey, processInstanceKey)

	return processInstanceKey, nil
}

// DeployResource deploys BPMN, DMN and form files in a single deployment.
func (c *Client) DeployResource(ctx context.Context, paths ...string) (*adapter.DeployResourceResponse, error) {
	resp, err := c.adapter.DeployResource(ctx, adapter.DeployResourceRequest{
		Paths:    paths,
		TenantID: c.tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("deploying resources: %w", err)
	}

	c.logger.Debug("Deployed resources", "key", resp.Key, "deployments", len(resp.Deployments))

	return resp, nil
}

// PublishMessage publishes a message correlated by correlationKey. Messages live for
// DefaultMessageTimeToLive unless WithTimeToLive is given.
func (c *Client) PublishMessage(
	ctx context.Context, name, correlationKey string, variables job.Variables, opts ...MessageOption,
) (*adapter.PublishMessageResponse, error) {
	variables, err := contextpropagation.Inject(ctx, c.propagators, variables)
	if err != nil {
		return nil, fmt.Errorf("injecting context: %w", err)
	}

	req := adapter.PublishMessageRequest{
		Name:           name,
		CorrelationKey: correlationKey,
		TimeToLive:     DefaultMessageTimeToLive,
		Variables:      variables,
		TenantID:       c.tenantID,
	}

	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.adapter.PublishMessage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("publishing message %s: %w", name, err)
	}

	return resp, nil
}

// EvaluateDecisionByID evaluates the latest version of a decision.
func (c *Client) EvaluateDecisionByID(ctx context.Context, decisionID string, variables job.Variables) (*adapter.EvaluateDecisionResponse, error) {
	return c.evaluateDecision(ctx, adapter.EvaluateDecisionRequest{DecisionID: decisionID, Variables: variables})
}

// EvaluateDecisionByKey evaluates a specific decision version.
func (c *Client) EvaluateDecisionByKey(ctx context.Context, decisionKey int64, variables job.Variables) (*adapter.EvaluateDecisionResponse, error) {
	return c.evaluateDecision(ctx, adapter.EvaluateDecisionRequest{DecisionKey: decisionKey, Variables: variables})
}

func (c *Client) evaluateDecision(ctx context.Context, req adapter.EvaluateDecisionRequest) (*adapter.EvaluateDecisionResponse, error) {
	req.TenantID = c.tenantID

	resp, err := c.adapter.EvaluateDecision(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("evaluating decision: %w", err)
	}

	return resp, nil
}

func (c *Client) BroadcastSignal(ctx context.Context, signalName string, variables job.Variables) (*adapter.BroadcastSignalResponse, error) {
	variables, err := contextpropagation.Inject(ctx, c.propagators, variables)
	if err != nil {
		return nil, fmt.Errorf("injecting context: %w", err)
	}

	resp, err := c.adapter.BroadcastSignal(ctx, adapter.BroadcastSignalRequest{
		SignalName: signalName,
		Variables:  variables,
		TenantID:   c.tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("broadcasting signal %s: %w", signalName, err)
	}

	return resp, nil
}

func (c *Client) Topology(ctx context.Context) (*adapter.Topology, error) {
	return c.adapter.Topology(ctx)
}

func (c *Client) Healthcheck(ctx context.Context) (adapter.HealthStatus, error) {
	return c.adapter.Healthcheck(ctx)
}

// WaitForHealthy polls the gateway's health until it is serving or timeout expires.
func (c *Client) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	b := backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond * 10,
		MaxInterval:         time.Second * 2,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      timeout,
		Stop:                backoff.Stop,
		Clock:               c.clock,
	}
	b.Reset()

	ticker := backoff.NewTicker(backoff.WithContext(&b, ctx))
	defer ticker.Stop()

	var last error = HealthStatusError(adapter.HealthUnknown)
	for range ticker.C {
		s, err := c.adapter.Healthcheck(ctx)
		if err == nil && s == adapter.HealthServing {
			return nil
		}

		if err != nil {
			last = err
		} else {
			last = HealthStatusError(s)
		}

		c.logger.Debug("Gateway not healthy yet", "status", s, "error", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("%w: %w", ErrNotHealthy, last)
}

// HealthStatusError reports the last health status observed while waiting.
type HealthStatusError adapter.HealthStatus

func (e HealthStatusError) Error() string {
	return fmt.Sprintf("health status %s", string(e))
}
