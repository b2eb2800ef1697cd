// Package user provides the in-memory user and credential stores used by
// tests and development wiring.
package user

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"auditflow/internal/auth"
	"auditflow/internal/auth/secrets"
	"auditflow/pkg/platform/sentinel"
)

// MemoryStore holds users and their credentials in memory. Credentials are
// stored as bcrypt hashes; the plaintext is discarded at Seed and Change.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]auth.User
	byName map[string]uuid.UUID
	hashes map[uuid.UUID]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]auth.User),
		byName: make(map[string]uuid.UUID),
		hashes: make(map[uuid.UUID]string),
	}
}

// Seed adds a user with a password. Intended for tests and dev bootstrap.
func (s *MemoryStore) Seed(u auth.User, password string) error {
	hash, err := secrets.Hash(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	s.byName[u.Username] = u.ID
	s.hashes[u.ID] = hash
	return nil
}

func (s *MemoryStore) ByUsername(_ context.Context, username string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return auth.User{}, sentinel.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) ByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return auth.User{}, sentinel.ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) Verify(_ context.Context, userID uuid.UUID, password string) (bool, error) {
	s.mu.RLock()
	hash, ok := s.hashes[userID]
	s.mu.RUnlock()
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if err := secrets.Verify(password, hash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Change(_ context.Context, userID uuid.UUID, newPassword string) error {
	hash, err := secrets.Hash(newPassword)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[userID]; !ok {
		return sentinel.ErrNotFound
	}
	s.hashes[userID] = hash
	return nil
}
