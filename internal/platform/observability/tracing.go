// Package observability wraps OpenTelemetry span management for guarded
// invocations. The span manager uses the global OTel tracer provider;
// configure the provider before constructing guards, or use Noop when
// tracing is disabled.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("auditflow")

// SpanManager handles trace span lifecycle for one guarded invocation.
type SpanManager interface {
	// StartInvocationSpan starts a span covering a guarded operation call.
	StartInvocationSpan(ctx context.Context, operation, invocationID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OTel provider.
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartInvocationSpan(ctx context.Context, operation, invocationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "enforce."+operation,
		trace.WithAttributes(
			attribute.String("audit.operation", operation),
			attribute.String("audit.invocation_id", invocationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NoopSpanManager disables tracing without branching at call sites.
type NoopSpanManager struct{}

func (NoopSpanManager) StartInvocationSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, nil
}

func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}
