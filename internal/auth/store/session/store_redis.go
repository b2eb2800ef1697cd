package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"auditflow/internal/auth"
	"auditflow/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix  = "session:"
	userIndexPrefix   = "user-sessions:"
	defaultSessionTTL = 24 * time.Hour
)

// RedisStore is the production session store for distributed deployments.
// Sessions expire with their key; a user index set supports bulk revocation.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: defaultSessionTTL}
}

func sessionKey(id uuid.UUID) string { return sessionKeyPrefix + id.String() }
func userKey(id uuid.UUID) string    { return userIndexPrefix + id.String() }

func (s *RedisStore) Create(ctx context.Context, sess auth.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := s.ttl
	if !sess.ExpiresAt.IsZero() {
		if until := time.Until(sess.ExpiresAt); until > 0 {
			ttl = until
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), payload, ttl)
	pipe.SAdd(ctx, userKey(sess.UserID), sess.ID.String())
	pipe.Expire(ctx, userKey(sess.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (auth.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Session{}, sentinel.ErrNotFound
	}
	if err != nil {
		return auth.Session{}, fmt.Errorf("get session: %w", err)
	}
	var sess auth.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return auth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Revoke(ctx context.Context, id uuid.UUID) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Revoked = true
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	// Keep the revoked marker around as long as the session would have
	// lived so token validation can see it.
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, sessionKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) RevokeAllExcept(ctx context.Context, userID, keep uuid.UUID) (int, error) {
	members, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	revoked := 0
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil || id == keep {
			continue
		}
		if err := s.Revoke(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue // already expired
			}
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}
