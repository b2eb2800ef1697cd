// Package memory provides an in-memory audit sink for tests and development.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"auditflow/internal/emission"
)

// Record pairs an emitted event with its invocation for later inspection.
type Record struct {
	Event      emission.Event
	Invocation emission.Invocation
}

// Store is an append-only in-memory sink, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Record(_ context.Context, ev emission.Event, inv emission.Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Event: ev, Invocation: inv})
	return nil
}

// All returns a copy of every record in arrival order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}

// ByInvocation returns the records of one invocation in arrival order.
func (s *Store) ByInvocation(id uuid.UUID) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.Invocation.ID == id {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
