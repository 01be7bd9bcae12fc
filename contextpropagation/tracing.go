package contextpropagation

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/cschleiden/go-zeebe/job"
	"go.opentelemetry.io/otel/propagation"
)

// TraceVariable holds the W3C trace context and baggage of the span that started a process instance.
const TraceVariable = "zeebeTraceContext"

var propagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// carrier adapts a string map to propagation.TextMapCarrier.
type carrier map[string]string

func (c carrier) Get(key string) string {
	return c[key]
}

func (c carrier) Set(key, value string) {
	c[key] = value
}

func (c carrier) Keys() []string {
	return slices.Collect(maps.Keys(c))
}

// TracingContextPropagator links the spans of job handlers to the span that started their process instance.
type TracingContextPropagator struct{}

var _ ContextPropagator = (*TracingContextPropagator)(nil)

func (*TracingContextPropagator) Inject(ctx context.Context, variables job.Variables) error {
	c := carrier{}
	propagator.Inject(ctx, c)

	if len(c) > 0 {
		variables[TraceVariable] = map[string]string(c)
	}

	return nil
}

func (*TracingContextPropagator) Extract(ctx context.Context, j *job.Job) (context.Context, error) {
	v, ok := j.Variables[TraceVariable]
	if !ok {
		return ctx, nil
	}

	c := carrier{}

	switch m := v.(type) {
	case map[string]string:
		maps.Copy(c, m)
	case map[string]any:
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return ctx, fmt.Errorf("trace context field %s is %T, not a string", k, v)
			}
			c[k] = s
		}
	default:
		return ctx, fmt.Errorf("variable %s is %T, not an object", TraceVariable, v)
	}

	return propagator.Extract(ctx, c), nil
}

func (*TracingContextPropagator) Variables() []string {
	return []string{TraceVariable}
}
