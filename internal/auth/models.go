package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal account model the enforcement examples need. Real
// credential storage and hashing live behind CredentialVerifier.
type User struct {
	ID       uuid.UUID
	Username string
	Roles    []string
}

// Session is one authenticated session.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// LoginRequest carries the credentials of a login attempt.
type LoginRequest struct {
	Username string
	Password string
}

// LoginResult is returned on a compliant, successful login.
type LoginResult struct {
	UserID       uuid.UUID
	SessionID    uuid.UUID
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string
}

// RefreshResult carries the re-issued token pair.
type RefreshResult struct {
	AccessToken string
	ExpiresIn   int
}

// ChangePasswordRequest verifies the old credential before changing it.
type ChangePasswordRequest struct {
	UserID      uuid.UUID
	SessionID   uuid.UUID
	OldPassword string
	NewPassword string
}

// AuthorizeRequest asks whether a user may perform an action on a resource.
type AuthorizeRequest struct {
	UserID   uuid.UUID
	Action   string
	Resource string
}

// AuthorizeResult is the authorization decision.
type AuthorizeResult struct {
	Allowed bool
	Reason  string
}
