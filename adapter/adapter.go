// Package adapter wraps the generated Zeebe gateway client. It translates gRPC status codes into the
// errors of package zeebeerrors, decodes job payloads and tracks the health of the underlying channel.
package adapter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/cschleiden/go-zeebe/internal/metrickeys"
	"github.com/cschleiden/go-zeebe/internal/tracing"
	"github.com/cschleiden/go-zeebe/log"
	"github.com/cschleiden/go-zeebe/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// GatewayService is the service name the gateway reports its health for.
const GatewayService = "gateway_protocol.Gateway"

type Adapter struct {
	conn    *grpc.ClientConn
	gateway pb.GatewayClient
	health  grpc_health_v1.HealthClient

	logger  *slog.Logger
	metrics metrics.Client
	tracer  trace.Tracer
	clock   clock.Clock

	maxRetries int

	mu        sync.Mutex
	connected bool
	retrying  bool
	retries   int
}

func New(conn *grpc.ClientConn, opts ...Option) *Adapter {
	options := ApplyOptions(opts...)

	return &Adapter{
		conn:       conn,
		gateway:    pb.NewGatewayClient(conn),
		health:     grpc_health_v1.NewHealthClient(conn),
		logger:     options.Logger,
		metrics:    options.Metrics,
		tracer:     options.TracerProvider.Tracer(tracing.TracerName),
		clock:      clock.New(),
		maxRetries: options.MaxConnectionRetries,
		connected:  true,
	}
}

// Connected returns false once the adapter gave up on its channel.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.connected
}

// RetryingConnection returns true while transport errors are being retried.
func (a *Adapter) RetryingConnection() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.retrying
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	a.connected = false
	a.retrying = false
	a.mu.Unlock()

	return a.conn.Close()
}

// errorRule maps a status returned by a specific RPC to an error, or returns nil if it does not apply.
type errorRule func(st *status.Status) error

func invoke[R any](
	ctx context.Context, a *Adapter, rpc string, rule errorRule, fn func(ctx context.Context) (R, error), attrs ...attribute.KeyValue,
) (R, error) {
	sctx, span := a.tracer.Start(ctx, rpc,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String(tracing.RPC, rpc))...),
	)
	defer span.End()

	timer := metrics.StartTimer(a.metrics, a.clock, metrickeys.GatewayRequestDuration, metrics.Tags{metrickeys.RPC: rpc})

	r, err := fn(sctx)
	timer.Stop(metrics.Tags{metrickeys.Code: status.Code(err).String()})
	if err != nil {
		var zero R
		return zero, tracing.WithSpanError(span, a.handleError(ctx, rpc, err, rule))
	}

	a.onSuccess()

	return r, nil
}

// handleError applies the common status mapping, updates the connection state and then lets rule
// override the result. parent is the caller's context: errors caused by its cancellation do not count
// against the connection.
func (a *Adapter) handleError(parent context.Context, rpc string, err error, rule errorRule) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	mapped := commonError(st.Code(), err)

	a.metrics.Counter(metrickeys.GatewayRequestFailed, metrics.Tags{
		metrickeys.RPC:       rpc,
		metrickeys.ErrorKind: st.Code().String(),
	}, 1)

	if countsAgainstConnection(st.Code()) && parent.Err() == nil {
		a.onTransportError(rpc, err)
	}

	if rule != nil {
		if specific := rule(st); specific != nil {
			return specific
		}
	}

	return mapped
}

func countsAgainstConnection(code codes.Code) bool {
	switch code {
	case codes.Unavailable, codes.Canceled, codes.Internal, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func (a *Adapter) onTransportError(rpc string, err error) {
	a.mu.Lock()

	a.retries++
	if a.maxRetries == UnlimitedConnectionRetries || a.retries <= a.maxRetries {
		a.retrying = true
		retries := a.retries
		a.mu.Unlock()

		a.logger.Warn("Gateway request failed, retrying connection",
			log.RPCKey, rpc, log.RetryCountKey, retries, "error", err)

		return
	}

	wasConnected := a.connected
	a.connected = false
	a.retrying = false
	a.mu.Unlock()

	if wasConnected {
		a.logger.Error("Giving up on gateway connection",
			log.RPCKey, rpc, log.RetryCountKey, a.maxRetries, "error", err)

		if cerr := a.conn.Close(); cerr != nil {
			a.logger.Debug("Closing channel", "error", cerr)
		}
	}
}

func (a *Adapter) onSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.retries = 0
	a.retrying = false
}
