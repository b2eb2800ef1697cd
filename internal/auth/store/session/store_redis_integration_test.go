//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"auditflow/internal/auth"
	"auditflow/internal/auth/store/session"
	"auditflow/pkg/platform/sentinel"
	"auditflow/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = session.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeSession(userID uuid.UUID) auth.Session {
	return auth.Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func (s *RedisStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	sess := makeSession(uuid.New())

	s.Require().NoError(s.store.Create(ctx, sess))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(sess.UserID, got.UserID)
	s.False(got.Revoked)
}

func (s *RedisStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestRevokedMarkerSurvives() {
	ctx := context.Background()
	sess := makeSession(uuid.New())
	s.Require().NoError(s.store.Create(ctx, sess))

	s.Require().NoError(s.store.Revoke(ctx, sess.ID))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.True(got.Revoked)

	// The key keeps a TTL so the marker eventually expires with the session.
	ttl := s.redis.Client.TTL(ctx, "session:"+sess.ID.String()).Val()
	s.Positive(ttl)
}

func (s *RedisStoreSuite) TestRevokeAllExcept() {
	ctx := context.Background()
	userID := uuid.New()

	kept := makeSession(userID)
	other1 := makeSession(userID)
	other2 := makeSession(userID)
	foreign := makeSession(uuid.New())
	for _, sess := range []auth.Session{kept, other1, other2, foreign} {
		s.Require().NoError(s.store.Create(ctx, sess))
	}

	revoked, err := s.store.RevokeAllExcept(ctx, userID, kept.ID)
	s.Require().NoError(err)
	s.Equal(2, revoked)

	got, err := s.store.Get(ctx, kept.ID)
	s.Require().NoError(err)
	s.False(got.Revoked)

	got, err = s.store.Get(ctx, other1.ID)
	s.Require().NoError(err)
	s.True(got.Revoked)

	got, err = s.store.Get(ctx, foreign.ID)
	s.Require().NoError(err)
	s.False(got.Revoked)
}

func (s *RedisStoreSuite) TestExpiredSessionSkippedDuringBulkRevoke() {
	ctx := context.Background()
	userID := uuid.New()

	shortLived := makeSession(userID)
	shortLived.ExpiresAt = time.Now().Add(50 * time.Millisecond)
	longLived := makeSession(userID)
	s.Require().NoError(s.store.Create(ctx, shortLived))
	s.Require().NoError(s.store.Create(ctx, longLived))

	time.Sleep(100 * time.Millisecond)

	revoked, err := s.store.RevokeAllExcept(ctx, userID, uuid.New())
	s.Require().NoError(err)
	s.Equal(1, revoked)
}
