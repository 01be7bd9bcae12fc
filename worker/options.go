package worker

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-zeebe/contextpropagation"
	mi "github.com/cschleiden/go-zeebe/internal/metrics"
	"github.com/cschleiden/go-zeebe/metrics"
	"github.com/cschleiden/go-zeebe/task"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Options struct {
	// Name identifies the worker to the gateway. Defaults to the host name.
	Name string `validate:"max=255"`

	// Before decorators run before the decorators of every router and task of the worker.
	Before []task.Decorator

	// After decorators run after the decorators of every router and task of the worker.
	After []task.Decorator

	// PollRetryDelay is the pause between activation attempts while all job slots of a task are taken,
	// and after unexpected activation errors. Defaults to 1 second.
	PollRetryDelay time.Duration `validate:"gte=0"`

	// TransportRetryBackOff creates the backoff used after back pressure, unavailable or internal errors.
	// Defaults to a constant 5 seconds.
	TransportRetryBackOff func() backoff.BackOff

	// RequestTimeout is the long-polling timeout of activation requests. Zero lets the gateway decide.
	RequestTimeout time.Duration `validate:"gte=0"`

	// Stream consumes jobs pushed over a job stream instead of long-polling for them.
	Stream bool

	// MaxConsecutivePollFailures stops a task's poller after this many failed activations in a row.
	// Zero or negative values retry forever.
	MaxConsecutivePollFailures int

	// TenantIDs restricts activation to jobs of the given tenants, unless a task configures its own.
	TenantIDs []string `validate:"dive,required"`

	// ContextPropagators restore values injected by client.WithContextPropagators into handler contexts.
	ContextPropagators []contextpropagation.ContextPropagator

	Logger *slog.Logger

	Metrics metrics.Client

	TracerProvider trace.TracerProvider

	Clock clock.Clock
}

const (
	DefaultPollRetryDelay      = time.Second
	DefaultTransportRetryDelay = 5 * time.Second
)

var DefaultOptions = Options{
	PollRetryDelay: DefaultPollRetryDelay,
	TransportRetryBackOff: func() backoff.BackOff {
		return backoff.NewConstantBackOff(DefaultTransportRetryDelay)
	},
	MaxConsecutivePollFailures: -1,

	Logger:         slog.Default(),
	Metrics:        mi.Discard,
	TracerProvider: noop.NewTracerProvider(),
	Clock:          clock.New(),
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = defaultName()
	}

	if o.PollRetryDelay == 0 {
		o.PollRetryDelay = DefaultOptions.PollRetryDelay
	}

	if o.TransportRetryBackOff == nil {
		o.TransportRetryBackOff = DefaultOptions.TransportRetryBackOff
	}

	if o.MaxConsecutivePollFailures <= 0 {
		o.MaxConsecutivePollFailures = -1
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.Metrics == nil {
		o.Metrics = mi.Discard
	}

	if o.TracerProvider == nil {
		o.TracerProvider = noop.NewTracerProvider()
	}

	if o.Clock == nil {
		o.Clock = clock.New()
	}

	return o
}

func (o Options) validate() error {
	if err := validate.Struct(o); err != nil {
		return &zeebeerrors.ErrSettings{Message: "invalid worker options", Cause: err}
	}

	return nil
}

func defaultName() string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}

	return fmt.Sprintf("worker-%s", uuid.NewString())
}
