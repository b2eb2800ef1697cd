// Package async wraps a sink with a bounded buffer and a background worker
// so sink latency never delays a guarded operation. Delivery is best-effort
// when the buffer is full: the event is dropped and counted rather than
// blocking the caller, since backpressure belongs to the downstream sink.
package async

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"auditflow/internal/emission"
)

// Sink forwards records to a downstream sink from a background goroutine.
// Close drains buffered records before returning.
type Sink struct {
	downstream emission.Sink
	logger     *slog.Logger
	inbox      chan record
	done       chan struct{}
	closeOnce  sync.Once
	dropped    atomic.Int64

	// mu guards closed and the inbox send so a Record racing Close drops
	// the event instead of panicking on a closed channel.
	mu     sync.Mutex
	closed bool
}

type record struct {
	event      emission.Event
	invocation emission.Invocation
}

// New starts the worker. Buffer must be positive.
func New(downstream emission.Sink, buffer int, logger *slog.Logger) *Sink {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &Sink{
		downstream: downstream,
		logger:     logger,
		inbox:      make(chan record, buffer),
		done:       make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues without blocking. A full buffer or a closed sink drops
// the record; the caller never waits on downstream durability.
func (s *Sink) Record(_ context.Context, ev emission.Event, inv emission.Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.dropped.Add(1)
		s.logger.Warn("async audit sink closed, dropping event",
			"invocation_id", inv.ID,
			"symbol", ev.Symbol,
		)
		return nil
	}
	select {
	case s.inbox <- record{event: ev, invocation: inv}:
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("async audit buffer full, dropping event",
			"invocation_id", inv.ID,
			"symbol", ev.Symbol,
		)
		return nil
	}
}

func (s *Sink) run() {
	defer close(s.done)
	// Delivery uses a background context: a cancelled caller must not
	// retroactively withdraw records already forwarded.
	ctx := context.Background()
	for r := range s.inbox {
		if err := s.downstream.Record(ctx, r.event, r.invocation); err != nil {
			s.logger.Warn("async audit delivery failed",
				"invocation_id", r.invocation.ID,
				"symbol", r.event.Symbol,
				"error", err,
			)
		}
	}
}

// Close stops accepting records and drains the buffer. Records arriving
// after Close are dropped and counted.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.inbox)
		s.mu.Unlock()
	})
	<-s.done
	return nil
}

// Dropped reports how many records were discarded due to a full buffer.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}
