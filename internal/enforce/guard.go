// Package enforce binds audit specifications to operations and validates
// every invocation's emitted event sequence on completion. It is the only
// place where a compliance outcome is decided.
package enforce

import (
	"context"
	"log/slog"
	"time"

	"auditflow/internal/emission"
	"auditflow/internal/pipeline"
	"auditflow/internal/platform/metrics"
	"auditflow/internal/platform/observability"
	"auditflow/internal/registry"
)

// Guard enforces the finalized bindings of one type. Construct it after the
// registry's startup pass has succeeded; a Guard never re-checks definitions.
type Guard struct {
	typeName string
	bindings registry.Bindings
	sink     emission.Sink
	logger   *slog.Logger
	metrics  *metrics.Metrics
	spans    observability.SpanManager
	gapLevel slog.Level
}

// Option configures optional guard behavior.
type Option func(*Guard)

// WithMetrics attaches Prometheus metrics to the guard.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// WithSpans attaches a span manager; defaults to no tracing.
func WithSpans(s observability.SpanManager) Option {
	return func(g *Guard) { g.spans = s }
}

// WithExceptionGapLevel sets the log level used when an operation fails with
// its own error before completing its audit trail. The gap is always logged
// and never raised as a competing error; only its severity is configurable.
func WithExceptionGapLevel(level slog.Level) Option {
	return func(g *Guard) { g.gapLevel = level }
}

// New creates a guard for one enforced type.
func New(typeName string, bindings registry.Bindings, sink emission.Sink, logger *slog.Logger, opts ...Option) *Guard {
	g := &Guard{
		typeName: typeName,
		bindings: bindings,
		sink:     sink,
		logger:   logger,
		spans:    observability.NoopSpanManager{},
		gapLevel: slog.LevelWarn,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Operation is a guarded asynchronous operation. It receives an emitter
// bound to its own invocation log; nested guarded calls must go through
// their own Guard and get an independent log.
type Operation[T any] func(ctx context.Context, em *emission.Emitter) (T, error)

// Run executes one guarded invocation of the named operation:
//
//  1. a fresh emission log and emitter are created for this call;
//  2. every emitted event is forwarded to the sink immediately, regardless
//     of the eventual compliance outcome;
//  3. on normal return, the log is validated against the bound
//     specification and a ComplianceViolation replaces the result if no
//     alternative is satisfied;
//  4. on error return (including context cancellation) the operation's own
//     error propagates unchanged, and an unsatisfied specification is
//     reported only as a logged gap, never as a competing error.
func Run[T any](ctx context.Context, g *Guard, operation string, op Operation[T]) (T, error) {
	var zero T

	spec, ok := g.bindings[operation]
	if !ok {
		return zero, &registry.DefinitionError{
			Type:      g.typeName,
			Operation: operation,
			Reason:    ErrUnboundOperation.Error(),
		}
	}

	log := emission.NewLog(g.typeName + "." + operation)
	inv := log.Invocation()

	ctx, span := g.spans.StartInvocationSpan(ctx, inv.Operation, inv.ID.String())
	em := emission.NewEmitter(log, g.sink, g.logger)

	result, opErr := op(ctx, em)

	start := time.Now()
	satisfied := spec.Satisfied(log.Symbols())
	if g.metrics != nil {
		g.metrics.ValidationDuration.Observe(time.Since(start).Seconds())
	}

	if opErr != nil {
		// A cancelled invocation has no result to gate, so its trail is
		// not judged; events already forwarded stay in the sink.
		if !satisfied && ctx.Err() == nil {
			g.logger.Log(ctx, g.gapLevel, "audit trail incomplete on failed operation",
				"operation", inv.Operation,
				"invocation_id", inv.ID,
				"emitted", log.Symbols(),
				"required", spec.String(),
				"error", opErr,
			)
			if g.metrics != nil {
				g.metrics.ExceptionGaps.Inc()
			}
		}
		if g.metrics != nil {
			g.metrics.ObserveInvocation(inv.Operation, metrics.OutcomeError, log.Len())
		}
		g.spans.EndSpanWithError(span, opErr)
		return zero, opErr
	}

	if !satisfied {
		violation := &ComplianceViolation{
			Operation:    inv.Operation,
			InvocationID: inv.ID,
			Spec:         spec,
			Emitted:      log.Symbols(),
		}
		g.logger.Error("compliance violation",
			"operation", inv.Operation,
			"invocation_id", inv.ID,
			"emitted", log.Symbols(),
			"required", spec.String(),
		)
		if g.metrics != nil {
			g.metrics.Violations.Inc()
			g.metrics.ObserveInvocation(inv.Operation, metrics.OutcomeViolation, log.Len())
		}
		g.spans.EndSpanWithError(span, violation)
		return zero, violation
	}

	if g.metrics != nil {
		g.metrics.ObserveInvocation(inv.Operation, metrics.OutcomeOK, log.Len())
	}
	g.spans.EndSpanWithError(span, nil)
	return result, nil
}

// Spec returns the specification bound to an operation, if any. Used by
// transport layers and tests to introspect the contract without running it.
func (g *Guard) Spec(operation string) (pipeline.Set, bool) {
	spec, ok := g.bindings[operation]
	return spec, ok
}

// Type returns the enforced type's registered name.
func (g *Guard) Type() string { return g.typeName }
