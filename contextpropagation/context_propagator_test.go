package contextpropagation

import (
	"context"
	"errors"
	"testing"

	"github.com/cschleiden/go-zeebe/job"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/baggage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type keyPropagator struct {
	name string
	err  error
}

type valueKey struct{}

func (p *keyPropagator) Inject(ctx context.Context, variables job.Variables) error {
	if p.err != nil {
		return p.err
	}

	variables[p.name], _ = ctx.Value(valueKey{}).(string)
	return nil
}

func (p *keyPropagator) Extract(ctx context.Context, j *job.Job) (context.Context, error) {
	if p.err != nil {
		return ctx, p.err
	}

	return context.WithValue(ctx, valueKey{}, j.Variables[p.name]), nil
}

func (p *keyPropagator) Variables() []string {
	return []string{p.name}
}

func Test_Inject_CopiesVariables(t *testing.T) {
	ctx := context.WithValue(context.Background(), valueKey{}, "v")
	in := job.Variables{"a": 1}

	out, err := Inject(ctx, []ContextPropagator{&keyPropagator{name: "p"}}, in)
	require.NoError(t, err)
	require.Equal(t, job.Variables{"a": 1, "p": "v"}, out)
	require.Equal(t, job.Variables{"a": 1}, in)

	out, err = Inject(ctx, nil, in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func Test_Inject_Error(t *testing.T) {
	_, err := Inject(context.Background(), []ContextPropagator{&keyPropagator{name: "p", err: errors.New("boom")}}, nil)
	require.EqualError(t, err, "boom")
}

func Test_Extract(t *testing.T) {
	j := job.New(job.Job{Variables: job.Variables{"p": "v"}})

	ctx, err := Extract(context.Background(), []ContextPropagator{&keyPropagator{name: "p"}}, j)
	require.NoError(t, err)
	require.Equal(t, "v", ctx.Value(valueKey{}))

	require.Equal(t, []string{"p", "q"}, Variables([]ContextPropagator{&keyPropagator{name: "p"}, &keyPropagator{name: "q"}}))
}

func Test_TracingContextPropagator(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "start")
	defer span.End()

	member, err := baggage.NewMember("tenant", "acme")
	require.NoError(t, err)
	b, err := baggage.New(member)
	require.NoError(t, err)
	ctx = baggage.ContextWithBaggage(ctx, b)

	p := &TracingContextPropagator{}

	vars, err := Inject(ctx, []ContextPropagator{p}, job.Variables{"amount": 1})
	require.NoError(t, err)
	require.Contains(t, vars, TraceVariable)

	// Variables arrive at the worker decoded from JSON
	doc, err := vars.Encode()
	require.NoError(t, err)
	decoded, err := job.DecodeVariables(doc)
	require.NoError(t, err)

	extracted, err := p.Extract(context.Background(), job.New(job.Job{Variables: decoded}))
	require.NoError(t, err)

	sc := trace.SpanContextFromContext(extracted)
	require.True(t, sc.IsRemote())
	require.Equal(t, span.SpanContext().TraceID(), sc.TraceID())
	require.Equal(t, span.SpanContext().SpanID(), sc.SpanID())
	require.Equal(t, "acme", baggage.FromContext(extracted).Member("tenant").Value())
}

func Test_TracingContextPropagator_WithoutSpan(t *testing.T) {
	p := &TracingContextPropagator{}

	vars := job.Variables{}
	require.NoError(t, p.Inject(context.Background(), vars))
	require.NotContains(t, vars, TraceVariable)

	ctx, err := p.Extract(context.Background(), job.New(job.Job{}))
	require.NoError(t, err)
	require.False(t, trace.SpanContextFromContext(ctx).IsValid())
}

func Test_TracingContextPropagator_InvalidVariable(t *testing.T) {
	p := &TracingContextPropagator{}

	_, err := p.Extract(context.Background(), job.New(job.Job{Variables: job.Variables{TraceVariable: "nope"}}))
	require.Error(t, err)

	_, err = p.Extract(context.Background(), job.New(job.Job{Variables: job.Variables{TraceVariable: map[string]any{"traceparent": 1}}}))
	require.Error(t, err)
}
