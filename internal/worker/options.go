package worker

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-zeebe/contextpropagation"
	"github.com/cschleiden/go-zeebe/metrics"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	// Name is reported to the gateway as the worker activating jobs.
	Name string

	// PollRetryDelay is the pause while all job slots are taken and after unexpected poll errors.
	PollRetryDelay time.Duration

	// TransportRetryBackOff paces polls after back pressure, unavailable or internal gateway errors.
	TransportRetryBackOff func() backoff.BackOff

	// RequestTimeout is the long-polling timeout of activation requests.
	RequestTimeout time.Duration

	// Stream consumes jobs pushed over a job stream instead of long-polling for them.
	Stream bool

	// MaxConsecutivePollFailures stops the poller with zeebeerrors.ErrMaxConsecutiveTaskThread when
	// exceeded. Negative values disable the limit.
	MaxConsecutivePollFailures int

	TenantIDs []string

	// ContextPropagators restore context values injected by the starter of a process instance into the
	// context of job handlers.
	ContextPropagators []contextpropagation.ContextPropagator

	Logger         *slog.Logger
	Metrics        metrics.Client
	TracerProvider trace.TracerProvider
	Clock          clock.Clock
}
