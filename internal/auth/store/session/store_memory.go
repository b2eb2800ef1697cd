// Package session provides session stores: in-memory for tests and
// development, Redis for distributed deployments.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"auditflow/internal/auth"
	"auditflow/pkg/platform/sentinel"
)

// MemoryStore keeps sessions in a map, safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]auth.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]auth.Session)}
}

func (s *MemoryStore) Create(_ context.Context, sess auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return auth.Session{}, sentinel.ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	sess.Revoked = true
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStore) RevokeAllExcept(_ context.Context, userID, keep uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID && id != keep && !sess.Revoked {
			sess.Revoked = true
			s.sessions[id] = sess
			revoked++
		}
	}
	return revoked, nil
}
