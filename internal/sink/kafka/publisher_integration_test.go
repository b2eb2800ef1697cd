//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"auditflow/internal/emission"
	"auditflow/internal/pipeline"
	"auditflow/internal/sink/kafka"
	"auditflow/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	broker string
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.broker = mgr.GetRedpanda(s.T()).Broker
}

type wirePayload struct {
	InvocationID string         `json:"invocation_id"`
	Operation    string         `json:"operation"`
	Symbol       string         `json:"symbol"`
	Seq          int            `json:"seq"`
	Details      map[string]any `json:"details"`
}

func (s *PublisherSuite) consume(ctx context.Context, topic string, want int) []wirePayload {
	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var out []wirePayload
	deadline := time.Now().Add(15 * time.Second)
	for len(out) < want && time.Now().Before(deadline) {
		pollCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		fetches := consumer.PollFetches(pollCtx)
		cancel()
		fetches.EachRecord(func(r *kgo.Record) {
			var p wirePayload
			s.Require().NoError(json.Unmarshal(r.Value, &p))
			out = append(out, p)
		})
	}
	return out
}

func (s *PublisherSuite) TestPublishAndConsumeTrail() {
	ctx := context.Background()
	topic := "audit.events." + uuid.NewString()

	pub, err := kafka.New(ctx, []string{s.broker}, topic, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)

	inv := emission.Invocation{
		ID:        uuid.New(),
		Operation: "AuthService.Login",
		StartedAt: time.Now(),
	}
	symbols := []string{"auth.attempt", "auth.success", "session.create", "token.issue"}
	for i, sym := range symbols {
		err := pub.Record(ctx, emission.Event{
			Symbol:    pipeline.Symbol(sym),
			Seq:       i,
			Timestamp: time.Now(),
			Details:   map[string]any{"username": "demo"},
		}, inv)
		s.Require().NoError(err)
	}
	s.Require().NoError(pub.Close())

	got := s.consume(ctx, topic, len(symbols))
	s.Require().Len(got, len(symbols))
	for i, p := range got {
		s.Equal(inv.ID.String(), p.InvocationID)
		s.Equal("AuthService.Login", p.Operation)
		s.Equal(symbols[i], p.Symbol)
		s.Equal(i, p.Seq)
	}
}

func (s *PublisherSuite) TestTopicBootstrapIsIdempotent() {
	ctx := context.Background()
	topic := "audit.events." + uuid.NewString()

	first, err := kafka.New(ctx, []string{s.broker}, topic, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.Require().NoError(first.Close())

	// Reconnecting to an existing topic must not fail.
	second, err := kafka.New(ctx, []string{s.broker}, topic, slog.New(slog.DiscardHandler))
	s.Require().NoError(err)
	s.Require().NoError(second.Close())
}
