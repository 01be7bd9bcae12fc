package adapter

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/cschleiden/go-zeebe/internal/tracing"
	"github.com/cschleiden/go-zeebe/job"
	"github.com/cschleiden/go-zeebe/zeebeerrors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ActivateJobsRequest struct {
	TaskType          string
	Worker            string
	Timeout           time.Duration
	MaxJobsToActivate int
	VariablesToFetch  []string
	RequestTimeout    time.Duration
	TenantIDs         []string
}

type StreamActivateJobsRequest struct {
	TaskType         string
	Worker           string
	Timeout          time.Duration
	VariablesToFetch []string
	TenantIDs        []string
}

// activateJobsDeadline leaves the gateway enough room to answer a long poll before the client gives up.
func activateJobsDeadline(requestTimeout time.Duration) time.Duration {
	return max(requestTimeout*2, DefaultRequestTimeout)
}

// ActivateJobs long-polls the gateway for up to req.MaxJobsToActivate jobs. The returned sequence yields
// jobs as their batches arrive and ends after the gateway closes the stream. A failure is yielded once,
// as the last element.
func (a *Adapter) ActivateJobs(ctx context.Context, req ActivateJobsRequest) iter.Seq2[*job.Job, error] {
	return func(yield func(*job.Job, error) bool) {
		const rpc = "ActivateJobs"

		rctx, cancel := context.WithTimeout(ctx, activateJobsDeadline(req.RequestTimeout))
		defer cancel()

		rctx, span := a.tracer.Start(rctx, rpc,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String(tracing.RPC, rpc),
				attribute.String(tracing.JobType, req.TaskType),
				attribute.String(tracing.Worker, req.Worker),
				attribute.Int("max_jobs_to_activate", req.MaxJobsToActivate),
			))
		defer span.End()

		invalid := func(st *status.Status) error {
			if st.Code() == codes.InvalidArgument {
				return &zeebeerrors.ErrActivateJobsRequestInvalid{
					TaskType:          req.TaskType,
					Worker:            req.Worker,
					Timeout:           req.Timeout,
					MaxJobsToActivate: req.MaxJobsToActivate,
					Cause:             st.Err(),
				}
			}

			return nil
		}

		stream, err := a.gateway.ActivateJobs(rctx, &pb.ActivateJobsRequest{
			Type:              req.TaskType,
			Worker:            req.Worker,
			Timeout:           req.Timeout.Milliseconds(),
			MaxJobsToActivate: int32(req.MaxJobsToActivate),
			FetchVariable:     req.VariablesToFetch,
			RequestTimeout:    req.RequestTimeout.Milliseconds(),
			TenantIds:         req.TenantIDs,
		})
		if err != nil {
			yield(nil, tracing.WithSpanError(span, a.handleError(ctx, rpc, err, invalid)))
			return
		}

		activated := 0
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				a.onSuccess()
				span.SetAttributes(attribute.Int("activated", activated))
				return
			}

			if err != nil {
				yield(nil, tracing.WithSpanError(span, a.handleError(ctx, rpc, err, invalid)))
				return
			}

			for _, aj := range resp.GetJobs() {
				j, err := newJob(aj)
				if err != nil {
					yield(nil, tracing.WithSpanError(span, err))
					return
				}

				activated++
				if !yield(j, nil) {
					return
				}
			}
		}
	}
}

// StreamActivateJobs opens a long-lived job stream. Jobs are pushed as soon as they become available; the
// sequence only ends when ctx is done or the stream fails.
func (a *Adapter) StreamActivateJobs(ctx context.Context, req StreamActivateJobsRequest) iter.Seq2[*job.Job, error] {
	return func(yield func(*job.Job, error) bool) {
		const rpc = "StreamActivatedJobs"

		sctx, span := a.tracer.Start(ctx, rpc,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String(tracing.RPC, rpc),
				attribute.String(tracing.JobType, req.TaskType),
				attribute.String(tracing.Worker, req.Worker),
			))
		defer span.End()

		invalid := func(st *status.Status) error {
			if st.Code() == codes.InvalidArgument {
				return &zeebeerrors.ErrStreamActivateJobsRequestInvalid{
					TaskType: req.TaskType,
					Worker:   req.Worker,
					Timeout:  req.Timeout,
					Cause:    st.Err(),
				}
			}

			return nil
		}

		stream, err := a.gateway.StreamActivatedJobs(sctx, &pb.StreamActivatedJobsRequest{
			Type:          req.TaskType,
			Worker:        req.Worker,
			Timeout:       req.Timeout.Milliseconds(),
			FetchVariable: req.VariablesToFetch,
			TenantIds:     req.TenantIDs,
		})
		if err != nil {
			yield(nil, tracing.WithSpanError(span, a.handleError(ctx, rpc, err, invalid)))
			return
		}

		for {
			aj, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				a.onSuccess()
				return
			}

			if err != nil {
				if ctx.Err() != nil {
					// Closed by the caller
					return
				}

				yield(nil, tracing.WithSpanError(span, a.handleError(ctx, rpc, err, invalid)))
				return
			}

			a.onSuccess()

			j, err := newJob(aj)
			if err != nil {
				yield(nil, tracing.WithSpanError(span, err))
				return
			}

			if !yield(j, nil) {
				return
			}
		}
	}
}

func (a *Adapter) CompleteJob(ctx context.Context, key int64, variables job.Variables) error {
	doc, err := variables.Encode()
	if err != nil {
		return &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	_, err = invoke(ctx, a, "CompleteJob", jobRule(key), func(ctx context.Context) (*pb.CompleteJobResponse, error) {
		return a.gateway.CompleteJob(ctx, &pb.CompleteJobRequest{
			JobKey:    key,
			Variables: doc,
		})
	}, attribute.Int64(tracing.JobKey, key))

	return err
}

func (a *Adapter) FailJob(
	ctx context.Context, key int64, retries int32, message string, retryBackOff time.Duration, variables job.Variables,
) error {
	doc, err := variables.Encode()
	if err != nil {
		return &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	_, err = invoke(ctx, a, "FailJob", jobRule(key), func(ctx context.Context) (*pb.FailJobResponse, error) {
		return a.gateway.FailJob(ctx, &pb.FailJobRequest{
			JobKey:       key,
			Retries:      retries,
			ErrorMessage: message,
			RetryBackOff: retryBackOff.Milliseconds(),
			Variables:    doc,
		})
	}, attribute.Int64(tracing.JobKey, key), attribute.Int(tracing.JobRetries, int(retries)))

	return err
}

func (a *Adapter) ThrowError(ctx context.Context, key int64, message, errorCode string, variables job.Variables) error {
	doc, err := variables.Encode()
	if err != nil {
		return &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	_, err = invoke(ctx, a, "ThrowError", jobRule(key), func(ctx context.Context) (*pb.ThrowErrorResponse, error) {
		return a.gateway.ThrowError(ctx, &pb.ThrowErrorRequest{
			JobKey:       key,
			ErrorCode:    errorCode,
			ErrorMessage: message,
			Variables:    doc,
		})
	}, attribute.Int64(tracing.JobKey, key))

	return err
}

func (a *Adapter) UpdateJobTimeout(ctx context.Context, key int64, timeout time.Duration) error {
	_, err := invoke(ctx, a, "UpdateJobTimeout", jobRule(key), func(ctx context.Context) (*pb.UpdateJobTimeoutResponse, error) {
		return a.gateway.UpdateJobTimeout(ctx, &pb.UpdateJobTimeoutRequest{
			JobKey:  key,
			Timeout: timeout.Milliseconds(),
		})
	}, attribute.Int64(tracing.JobKey, key))

	return err
}

var _ job.Acknowledger = (*Adapter)(nil)

func jobRule(key int64) errorRule {
	return func(st *status.Status) error {
		switch st.Code() {
		case codes.NotFound:
			return &zeebeerrors.ErrJobNotFound{Key: key}
		case codes.FailedPrecondition:
			return &zeebeerrors.ErrJobAlreadyDeactivated{Key: key}
		default:
			return nil
		}
	}
}

func newJob(aj *pb.ActivatedJob) (*job.Job, error) {
	variables, err := job.DecodeVariables(aj.GetVariables())
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	headers, err := job.DecodeHeaders(aj.GetCustomHeaders())
	if err != nil {
		return nil, &zeebeerrors.ErrInvalidJSON{Cause: err}
	}

	var deadline time.Time
	if aj.GetDeadline() > 0 {
		deadline = time.UnixMilli(aj.GetDeadline())
	}

	return job.New(job.Job{
		Key:                      aj.GetKey(),
		Type:                     aj.GetType(),
		ProcessInstanceKey:       aj.GetProcessInstanceKey(),
		BpmnProcessID:            aj.GetBpmnProcessId(),
		ProcessDefinitionVersion: aj.GetProcessDefinitionVersion(),
		ProcessDefinitionKey:     aj.GetProcessDefinitionKey(),
		ElementID:                aj.GetElementId(),
		ElementInstanceKey:       aj.GetElementInstanceKey(),
		CustomHeaders:            headers,
		Worker:                   aj.GetWorker(),
		Retries:                  aj.GetRetries(),
		Deadline:                 deadline,
		Variables:                variables,
		TenantID:                 aj.GetTenantId(),
	}), nil
}
