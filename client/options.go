package client

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-zeebe/adapter"
	"github.com/cschleiden/go-zeebe/contextpropagation"
)

// DefaultMessageTimeToLive is how long published messages wait for a subscription.
const DefaultMessageTimeToLive = 60 * time.Second

type options struct {
	logger      *slog.Logger
	clock       clock.Clock
	tenantID    string
	propagators []contextpropagation.ContextPropagator
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithTenantID sets the tenant of all commands that do not name one.
func WithTenantID(tenantID string) Option {
	return func(o *options) {
		o.tenantID = tenantID
	}
}

// WithContextPropagators injects context values into the variables of created process instances, published
// messages and broadcast signals.
func WithContextPropagators(propagators ...contextpropagation.ContextPropagator) Option {
	return func(o *options) {
		o.propagators = append(o.propagators, propagators...)
	}
}

// ProcessOption customizes process instance creation.
type ProcessOption func(*adapter.CreateProcessInstanceWithResultRequest)

// WithVersion selects a process definition version instead of the latest one.
func WithVersion(version int32) ProcessOption {
	return func(r *adapter.CreateProcessInstanceWithResultRequest) {
		r.Version = version
	}
}

func WithProcessTenantID(tenantID string) ProcessOption {
	return func(r *adapter.CreateProcessInstanceWithResultRequest) {
		r.TenantID = tenantID
	}
}

// WithResultTimeout limits how long the gateway waits for the instance to complete.
func WithResultTimeout(timeout time.Duration) ProcessOption {
	return func(r *adapter.CreateProcessInstanceWithResultRequest) {
		r.Timeout = timeout
	}
}

// WithVariablesToFetch limits the variables returned with the result.
func WithVariablesToFetch(names ...string) ProcessOption {
	return func(r *adapter.CreateProcessInstanceWithResultRequest) {
		r.VariablesToFetch = names
	}
}

// MessageOption customizes a published message.
type MessageOption func(*adapter.PublishMessageRequest)

func WithTimeToLive(ttl time.Duration) MessageOption {
	return func(r *adapter.PublishMessageRequest) {
		r.TimeToLive = ttl
	}
}

// WithMessageID makes the message unique: publishing another message with the same id fails while the
// first one is buffered.
func WithMessageID(id string) MessageOption {
	return func(r *adapter.PublishMessageRequest) {
		r.MessageID = id
	}
}

func WithMessageTenantID(tenantID string) MessageOption {
	return func(r *adapter.PublishMessageRequest) {
		r.TenantID = tenantID
	}
}
