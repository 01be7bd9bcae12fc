package adapter

import (
	"log/slog"
	"time"

	mi "github.com/cschleiden/go-zeebe/internal/metrics"
	"github.com/cschleiden/go-zeebe/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultRequestTimeout is the lower bound for the deadline of long-polling RPCs.
	DefaultRequestTimeout = 20 * time.Second

	// UnlimitedConnectionRetries disables closing the channel after repeated transport errors.
	UnlimitedConnectionRetries = -1
)

type Options struct {
	Logger *slog.Logger

	Metrics metrics.Client

	TracerProvider trace.TracerProvider

	// MaxConnectionRetries is the number of consecutive unavailable, internal or deadline exceeded errors
	// after which the adapter closes its channel and reports itself disconnected. Set to
	// UnlimitedConnectionRetries to never give up. Defaults to 10.
	MaxConnectionRetries int
}

var DefaultOptions = Options{
	Logger:               slog.Default(),
	Metrics:              mi.Discard,
	TracerProvider:       noop.NewTracerProvider(),
	MaxConnectionRetries: 10,
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMetrics(client metrics.Client) Option {
	return func(o *Options) {
		o.Metrics = client
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

func WithMaxConnectionRetries(retries int) Option {
	return func(o *Options) {
		o.MaxConnectionRetries = retries
	}
}

func ApplyOptions(opts ...Option) Options {
	options := DefaultOptions

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	if options.Metrics == nil {
		options.Metrics = mi.Discard
	}

	if options.TracerProvider == nil {
		options.TracerProvider = noop.NewTracerProvider()
	}

	return options
}
