package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditflow/internal/auth"
	"auditflow/internal/auth/store/session"
	"auditflow/pkg/platform/sentinel"
)

func newSession(userID uuid.UUID) auth.Session {
	return auth.Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	sess := newSession(uuid.New())

	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.False(t, got.Revoked)
}

func TestMemoryStore_CreateDuplicateConflicts(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	sess := newSession(uuid.New())

	require.NoError(t, store.Create(ctx, sess))
	assert.ErrorIs(t, store.Create(ctx, sess), sentinel.ErrConflict)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := session.NewMemoryStore()
	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_Revoke(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	sess := newSession(uuid.New())
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.Revoke(ctx, sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	assert.ErrorIs(t, store.Revoke(ctx, uuid.New()), sentinel.ErrNotFound)
}

func TestMemoryStore_RevokeAllExcept(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	kept := newSession(userID)
	other1 := newSession(userID)
	other2 := newSession(userID)
	foreign := newSession(uuid.New())
	for _, s := range []auth.Session{kept, other1, other2, foreign} {
		require.NoError(t, store.Create(ctx, s))
	}

	revoked, err := store.RevokeAllExcept(ctx, userID, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	got, err := store.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	got, err = store.Get(ctx, foreign.ID)
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	// Revoking again finds nothing left to revoke.
	revoked, err = store.RevokeAllExcept(ctx, userID, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, revoked)
}
