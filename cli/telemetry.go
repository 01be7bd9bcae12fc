package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cschleiden/go-zeebe/metrics"
	zprometheus "github.com/cschleiden/go-zeebe/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	traceExporterNone   = "none"
	traceExporterStdout = "stdout"
	traceExporterOTLP   = "otlp"
)

type shutdownFunc func(ctx context.Context) error

// newLogger creates the logger for level (debug, info, warn, error) and format (text, json).
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{
		Level:     l,
		AddSource: l == slog.LevelDebug,
	}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, expected text or json", format)
	}
}

func newTracerProvider(ctx context.Context, exporter, version string, w io.Writer) (trace.TracerProvider, shutdownFunc, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch exporter {
	case "", traceExporterNone:
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	case traceExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case traceExporterOTLP:
		// Endpoint and headers are taken from the OTEL_EXPORTER_OTLP_* environment variables
		exp, err = otlptrace.New(ctx, otlptracehttp.NewClient())
	default:
		return nil, nil, fmt.Errorf("invalid trace exporter %q, expected none, stdout or otlp", exporter)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s trace exporter: %w", exporter, err)
	}

	r := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(program),
		semconv.ServiceVersionKey.String(version),
		attribute.String("zeebe.client", "go"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	)

	return tp, tp.Shutdown, nil
}

// serveMetrics exposes a fresh registry on addr/metrics and returns the metrics client writing to it.
// An empty addr disables metrics.
func serveMetrics(addr string, logger *slog.Logger) (metrics.Client, shutdownFunc, error) {
	if addr == "" {
		return nil, func(context.Context) error { return nil }, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "error", err)
		}
	}()

	logger.Info("Serving metrics", "addr", lis.Addr().String())

	return zprometheus.New(reg), srv.Shutdown, nil
}
