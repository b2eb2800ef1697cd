// Package emission records the ordered event log of a single guarded
// invocation and forwards every event to the audit sink as it is emitted.
// A Log belongs to exactly one invocation; nested guarded calls get their
// own Log rather than appending to the caller's, so no locking is needed.
package emission

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auditflow/internal/pipeline"
)

// Event is one emitted audit event, immutable once created. Seq is the
// event's position within its invocation, monotonic from zero.
type Event struct {
	Symbol    pipeline.Symbol
	Seq       int
	Timestamp time.Time
	Details   map[string]any
}

// Invocation identifies one guarded call. Every event forwarded to the sink
// carries its invocation so downstream storage can correlate trails.
type Invocation struct {
	ID        uuid.UUID
	Operation string
	StartedAt time.Time
}

// Sink is the consumed audit storage contract. Implementations must be safe
// for concurrent use; delivery may be buffered or fire-and-forget, and the
// engine never waits on durability before proceeding. Adapters live in
// internal/sink.
type Sink interface {
	Record(ctx context.Context, ev Event, inv Invocation) error
}

// Log is the append-only event record of one invocation.
type Log struct {
	inv    Invocation
	events []Event
}

// NewLog creates a fresh log for one invocation of the named operation.
func NewLog(operation string) *Log {
	return &Log{inv: Invocation{
		ID:        uuid.New(),
		Operation: operation,
		StartedAt: time.Now(),
	}}
}

func (l *Log) Invocation() Invocation { return l.inv }

// Events returns a copy of the recorded events in emission order.
func (l *Log) Events() []Event {
	return append([]Event(nil), l.events...)
}

// Symbols returns the emitted symbols in order, the validator's input.
func (l *Log) Symbols() []pipeline.Symbol {
	syms := make([]pipeline.Symbol, len(l.events))
	for i, ev := range l.events {
		syms[i] = ev.Symbol
	}
	return syms
}

func (l *Log) Len() int { return len(l.events) }

// Emitter is handed to a guarded operation so it can emit events against its
// own Log. It is bound to one invocation and must not outlive it.
type Emitter struct {
	log    *Log
	sink   Sink
	logger *slog.Logger
}

// NewEmitter binds an emitter to a log and sink. A nil sink disables
// forwarding, which only tests should do.
func NewEmitter(log *Log, sink Sink, logger *slog.Logger) *Emitter {
	return &Emitter{log: log, sink: sink, logger: logger}
}

// Emit appends an event at the next sequence position and forwards it to the
// sink immediately. Forwarding does not depend on the invocation's eventual
// compliance outcome, and a sink failure never fails the guarded operation;
// it is logged and the event stays in the invocation log for validation.
func (e *Emitter) Emit(ctx context.Context, sym pipeline.Symbol, details map[string]any) {
	ev := Event{
		Symbol:    sym,
		Seq:       len(e.log.events),
		Timestamp: time.Now(),
		Details:   details,
	}
	e.log.events = append(e.log.events, ev)

	if e.sink == nil {
		return
	}
	if err := e.sink.Record(ctx, ev, e.log.inv); err != nil {
		e.logger.Warn("audit sink record failed",
			"invocation_id", e.log.inv.ID,
			"operation", e.log.inv.Operation,
			"symbol", sym,
			"error", err,
		)
	}
}
