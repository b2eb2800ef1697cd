package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditflow/internal/auth"
	"auditflow/pkg/platform/sentinel"
)

func TestTokenService_AccessTokenRoundTrip(t *testing.T) {
	svc := auth.NewTokenService("secret", "auditflow-test")
	userID := uuid.New()
	sessionID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, sessionID, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
}

func TestTokenService_RefreshTokenRoundTrip(t *testing.T) {
	svc := auth.NewTokenService("secret", "auditflow-test")
	userID := uuid.New()
	sessionID := uuid.New()

	token, err := svc.GenerateRefreshToken(userID, sessionID, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ParseRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
}

func TestTokenService_RejectsWrongTokenUse(t *testing.T) {
	svc := auth.NewTokenService("secret", "auditflow-test")

	refresh, err := svc.GenerateRefreshToken(uuid.New(), uuid.New(), time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(refresh)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	access, err := svc.GenerateAccessToken(uuid.New(), uuid.New(), time.Minute)
	require.NoError(t, err)
	_, err = svc.ParseRefreshToken(access)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc := auth.NewTokenService("secret", "auditflow-test")

	token, err := svc.GenerateAccessToken(uuid.New(), uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	issuer := auth.NewTokenService("secret-a", "auditflow-test")
	verifier := auth.NewTokenService("secret-b", "auditflow-test")

	token, err := issuer.GenerateAccessToken(uuid.New(), uuid.New(), time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := auth.NewTokenService("secret", "auditflow-test")
	_, err := svc.ValidateToken("definitely-not-a-jwt")
	assert.Error(t, err)
}

func TestLockout_LocksAfterMaxFailures(t *testing.T) {
	l := auth.NewLockout(2, time.Minute)

	assert.False(t, l.Locked("alice"))
	l.RecordFailure("alice")
	assert.False(t, l.Locked("alice"))
	l.RecordFailure("alice")
	assert.True(t, l.Locked("alice"))

	// Other usernames are unaffected.
	assert.False(t, l.Locked("bob"))
}

func TestLockout_ClearResets(t *testing.T) {
	l := auth.NewLockout(1, time.Minute)
	l.RecordFailure("alice")
	require.True(t, l.Locked("alice"))

	l.Clear("alice")
	assert.False(t, l.Locked("alice"))
}
