package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"auditflow/internal/emission"
	"auditflow/internal/enforce"
	"auditflow/pkg/platform/sentinel"
)

// Domain errors returned to callers. Compliance outcomes are separate:
// a ComplianceViolation from the guard means the operation's audit trail was
// absent, not that the credentials were wrong.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many failed attempts")
	ErrSessionRevoked     = errors.New("session revoked")
)

const refreshTokenTTL = 30 * 24 * time.Hour

// Service implements the security-sensitive authentication operations. Every
// public operation runs through the enforcement guard and emits its declared
// event pipeline; the guard validates the trail on completion.
type Service struct {
	guard    *enforce.Guard
	users    UserStore
	sessions SessionStore
	creds    CredentialVerifier
	tokens   *TokenService
	lockout  *Lockout
	tokenTTL time.Duration

	// policy maps an action to the roles allowed to perform it. Actions
	// absent from the map are open to any authenticated user.
	policy map[string][]string
}

func NewService(
	guard *enforce.Guard,
	users UserStore,
	sessions SessionStore,
	creds CredentialVerifier,
	tokens *TokenService,
	lockout *Lockout,
	tokenTTL time.Duration,
	policy map[string][]string,
) *Service {
	return &Service{
		guard:    guard,
		users:    users,
		sessions: sessions,
		creds:    creds,
		tokens:   tokens,
		lockout:  lockout,
		tokenTTL: tokenTTL,
		policy:   policy,
	}
}

// Login authenticates a user and issues a session with a token pair.
// Trail: attempt -> success -> session.create -> token.issue, or
// attempt -> (failure | rate_limited).
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	return enforce.Run(ctx, s.guard, OpLogin, func(ctx context.Context, em *emission.Emitter) (LoginResult, error) {
		em.Emit(ctx, EventAttempt, map[string]any{"username": req.Username})

		if s.lockout.Locked(req.Username) {
			em.Emit(ctx, EventRateLimited, map[string]any{"username": req.Username})
			return LoginResult{}, ErrRateLimited
		}

		user, err := s.users.ByUsername(ctx, req.Username)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.lockout.RecordFailure(req.Username)
				em.Emit(ctx, EventFailure, map[string]any{"username": req.Username, "reason": "unknown_user"})
				return LoginResult{}, ErrInvalidCredentials
			}
			return LoginResult{}, fmt.Errorf("lookup user: %w", err)
		}

		ok, err := s.creds.Verify(ctx, user.ID, req.Password)
		if err != nil {
			return LoginResult{}, fmt.Errorf("verify credentials: %w", err)
		}
		if !ok {
			s.lockout.RecordFailure(req.Username)
			em.Emit(ctx, EventFailure, map[string]any{"user_id": user.ID.String(), "reason": "bad_password"})
			return LoginResult{}, ErrInvalidCredentials
		}

		s.lockout.Clear(req.Username)
		em.Emit(ctx, EventSuccess, map[string]any{"user_id": user.ID.String()})

		session := Session{
			ID:        uuid.New(),
			UserID:    user.ID,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(refreshTokenTTL),
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return LoginResult{}, fmt.Errorf("create session: %w", err)
		}
		em.Emit(ctx, EventSessionCreate, map[string]any{"session_id": session.ID.String()})

		access, err := s.tokens.GenerateAccessToken(user.ID, session.ID, s.tokenTTL)
		if err != nil {
			return LoginResult{}, fmt.Errorf("issue access token: %w", err)
		}
		refresh, err := s.tokens.GenerateRefreshToken(user.ID, session.ID, refreshTokenTTL)
		if err != nil {
			return LoginResult{}, fmt.Errorf("issue refresh token: %w", err)
		}
		em.Emit(ctx, EventTokenIssue, map[string]any{"session_id": session.ID.String()})

		return LoginResult{
			UserID:       user.ID,
			SessionID:    session.ID,
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int(s.tokenTTL.Seconds()),
		}, nil
	})
}

// Refresh exchanges a valid refresh token for a new access token.
// Trail: token.refresh -> (token.issue | failure).
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (RefreshResult, error) {
	return enforce.Run(ctx, s.guard, OpRefresh, func(ctx context.Context, em *emission.Emitter) (RefreshResult, error) {
		em.Emit(ctx, EventTokenRefresh, nil)

		claims, err := s.tokens.ParseRefreshToken(req.RefreshToken)
		if err != nil {
			em.Emit(ctx, EventFailure, map[string]any{"reason": "invalid_refresh_token"})
			return RefreshResult{}, ErrInvalidCredentials
		}

		sessionID, err := uuid.Parse(claims.SessionID)
		if err != nil {
			em.Emit(ctx, EventFailure, map[string]any{"reason": "malformed_session_id"})
			return RefreshResult{}, ErrInvalidCredentials
		}
		session, err := s.sessions.Get(ctx, sessionID)
		if err != nil || session.Revoked {
			em.Emit(ctx, EventFailure, map[string]any{"session_id": claims.SessionID, "reason": "session_revoked"})
			return RefreshResult{}, ErrSessionRevoked
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			em.Emit(ctx, EventFailure, map[string]any{"reason": "malformed_user_id"})
			return RefreshResult{}, ErrInvalidCredentials
		}
		access, err := s.tokens.GenerateAccessToken(userID, session.ID, s.tokenTTL)
		if err != nil {
			return RefreshResult{}, fmt.Errorf("issue access token: %w", err)
		}
		em.Emit(ctx, EventTokenIssue, map[string]any{"session_id": session.ID.String()})

		return RefreshResult{
			AccessToken: access,
			ExpiresIn:   int(s.tokenTTL.Seconds()),
		}, nil
	})
}

// ChangePassword verifies the current credential, changes it, and revokes
// every other session of the user.
// Trail: credential.verify -> credential.change -> session.revoke, or
// credential.verify -> failure.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) (int, error) {
	return enforce.Run(ctx, s.guard, OpChangePassword, func(ctx context.Context, em *emission.Emitter) (int, error) {
		em.Emit(ctx, EventCredVerify, map[string]any{"user_id": req.UserID.String()})

		ok, err := s.creds.Verify(ctx, req.UserID, req.OldPassword)
		if err != nil {
			return 0, fmt.Errorf("verify credentials: %w", err)
		}
		if !ok {
			em.Emit(ctx, EventFailure, map[string]any{"user_id": req.UserID.String(), "reason": "bad_password"})
			return 0, ErrInvalidCredentials
		}

		if err := s.creds.Change(ctx, req.UserID, req.NewPassword); err != nil {
			return 0, fmt.Errorf("change credentials: %w", err)
		}
		em.Emit(ctx, EventCredChange, map[string]any{"user_id": req.UserID.String()})

		revoked, err := s.sessions.RevokeAllExcept(ctx, req.UserID, req.SessionID)
		if err != nil {
			return 0, fmt.Errorf("revoke sessions: %w", err)
		}
		em.Emit(ctx, EventSessionRevoke, map[string]any{
			"user_id": req.UserID.String(),
			"kept":    req.SessionID.String(),
			"count":   revoked,
		})

		return revoked, nil
	})
}

// Authorize decides whether a user may perform an action.
// Trail: authz.check -> (authz.allow | authz.deny).
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (AuthorizeResult, error) {
	return enforce.Run(ctx, s.guard, OpAuthorize, func(ctx context.Context, em *emission.Emitter) (AuthorizeResult, error) {
		em.Emit(ctx, EventAuthzCheck, map[string]any{
			"user_id":  req.UserID.String(),
			"action":   req.Action,
			"resource": req.Resource,
		})

		user, err := s.users.ByID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				em.Emit(ctx, EventAuthzDeny, map[string]any{"reason": "unknown_user"})
				return AuthorizeResult{Allowed: false, Reason: "unknown user"}, nil
			}
			return AuthorizeResult{}, fmt.Errorf("lookup user: %w", err)
		}

		required, restricted := s.policy[req.Action]
		if !restricted {
			em.Emit(ctx, EventAuthzAllow, map[string]any{"user_id": user.ID.String()})
			return AuthorizeResult{Allowed: true}, nil
		}
		for _, role := range user.Roles {
			for _, want := range required {
				if role == want {
					em.Emit(ctx, EventAuthzAllow, map[string]any{"user_id": user.ID.String(), "role": role})
					return AuthorizeResult{Allowed: true}, nil
				}
			}
		}

		em.Emit(ctx, EventAuthzDeny, map[string]any{"user_id": user.ID.String(), "reason": "missing_role"})
		return AuthorizeResult{Allowed: false, Reason: "missing required role"}, nil
	})
}

// Logout revokes one session. Trail: session.revoke.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) (struct{}, error) {
	return enforce.Run(ctx, s.guard, OpLogout, func(ctx context.Context, em *emission.Emitter) (struct{}, error) {
		if err := s.sessions.Revoke(ctx, sessionID); err != nil {
			return struct{}{}, fmt.Errorf("revoke session: %w", err)
		}
		em.Emit(ctx, EventSessionRevoke, map[string]any{"session_id": sessionID.String()})
		return struct{}{}, nil
	})
}
