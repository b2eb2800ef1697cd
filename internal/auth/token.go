package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auditflow/internal/platform/middleware"
	"auditflow/pkg/platform/sentinel"
)

// Claims represents the JWT claims for our access and refresh tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	TokenUse  string `json:"token_use"`
	jwt.RegisteredClaims
}

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
}

func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), issuer: issuer}
}

func (s *TokenService) generate(userID, sessionID uuid.UUID, use string, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		TokenUse:  use,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateAccessToken issues a short-lived access token.
func (s *TokenService) GenerateAccessToken(userID, sessionID uuid.UUID, expiresIn time.Duration) (string, error) {
	return s.generate(userID, sessionID, tokenUseAccess, expiresIn)
}

// GenerateRefreshToken issues a refresh token bound to the same session.
func (s *TokenService) GenerateRefreshToken(userID, sessionID uuid.UUID, expiresIn time.Duration) (string, error) {
	return s.generate(userID, sessionID, tokenUseRefresh, expiresIn)
}

func (s *TokenService) parse(tokenString, use string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, sentinel.ErrExpired
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TokenUse != use {
		return nil, sentinel.ErrInvalidState
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (s *TokenService) ParseRefreshToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenUseRefresh)
}

// ValidateToken satisfies middleware.JWTValidator for access tokens.
func (s *TokenService) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := s.parse(tokenString, tokenUseAccess)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
	}, nil
}
