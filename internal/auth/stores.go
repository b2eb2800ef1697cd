package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserStore resolves accounts. Implementations live under store/ and return
// sentinel errors so the service can translate them without knowing the
// backend.
type UserStore interface {
	ByUsername(ctx context.Context, username string) (User, error)
	ByID(ctx context.Context, id uuid.UUID) (User, error)
}

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	// RevokeAllExcept revokes every session of a user except the named one
	// and returns how many were revoked.
	RevokeAllExcept(ctx context.Context, userID, keep uuid.UUID) (int, error)
}

// CredentialVerifier checks and updates credentials. Implementations store
// bcrypt hashes, never plaintext; see internal/auth/secrets. The in-memory
// implementation is for tests and development.
type CredentialVerifier interface {
	Verify(ctx context.Context, userID uuid.UUID, password string) (bool, error)
	Change(ctx context.Context, userID uuid.UUID, newPassword string) error
}
