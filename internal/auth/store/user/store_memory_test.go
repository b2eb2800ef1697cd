package user_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditflow/internal/auth"
	"auditflow/internal/auth/store/user"
	"auditflow/pkg/platform/sentinel"
)

func seedUser(t *testing.T, store *user.MemoryStore, username, password string) auth.User {
	t.Helper()
	u := auth.User{ID: uuid.New(), Username: username, Roles: []string{"user"}}
	require.NoError(t, store.Seed(u, password))
	return u
}

func TestMemoryStore_VerifyHashedCredential(t *testing.T) {
	store := user.NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "demo", "correct-horse")

	ok, err := store.Verify(ctx, u.ID, "correct-horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Verify(ctx, u.ID, "wrong-password")
	require.NoError(t, err, "a mismatch is a verdict, not an error")
	assert.False(t, ok)

	// The stored hash is never the password itself: a caller presenting the
	// would-be stored value must still be rejected.
	ok, err = store.Verify(ctx, u.ID, "$2a$10$fakehashfakehashfakehash")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_VerifyUnknownUser(t *testing.T) {
	store := user.NewMemoryStore()
	_, err := store.Verify(context.Background(), uuid.New(), "whatever")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_ChangeRehashes(t *testing.T) {
	store := user.NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "demo", "old-secret")

	require.NoError(t, store.Change(ctx, u.ID, "new-secret"))

	ok, err := store.Verify(ctx, u.ID, "old-secret")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, u.ID, "new-secret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_ChangeUnknownUser(t *testing.T) {
	store := user.NewMemoryStore()
	err := store.Change(context.Background(), uuid.New(), "new-secret")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStore_SeedRejectsOverlongPassword(t *testing.T) {
	store := user.NewMemoryStore()
	u := auth.User{ID: uuid.New(), Username: "demo"}
	// bcrypt caps input at 72 bytes.
	err := store.Seed(u, strings.Repeat("x", 100))
	assert.Error(t, err)
}

func TestMemoryStore_Lookup(t *testing.T) {
	store := user.NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, store, "demo", "pw")

	got, err := store.ByUsername(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = store.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Username)

	_, err = store.ByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
