// Package kafka publishes audit events to a Kafka topic. The topic is the
// durable trail; downstream consumers route events into long-term storage.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"auditflow/internal/emission"
)

// DefaultTopic is where audit events land unless configured otherwise.
const DefaultTopic = "audit.events"

// Publisher implements emission.Sink over a Kafka producer. Produce is
// asynchronous: delivery failures are logged, never surfaced to the guarded
// operation, and Close flushes outstanding records.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// payload is the JSON wire format. The record key is the invocation ID so
// one invocation's events stay ordered within a partition.
type payload struct {
	InvocationID string         `json:"invocation_id"`
	Operation    string         `json:"operation"`
	Symbol       string         `json:"symbol"`
	Seq          int            `json:"seq"`
	EmittedAt    string         `json:"emitted_at"`
	Details      map[string]any `json:"details,omitempty"`
}

// New connects a producer and ensures the topic exists. Events produced to a
// missing topic would be silently dropped by some cluster configurations, so
// bootstrap is part of construction.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	// Already-exists is the common case on restart.
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func (p *Publisher) Record(ctx context.Context, ev emission.Event, inv emission.Invocation) error {
	body, err := json.Marshal(payload{
		InvocationID: inv.ID.String(),
		Operation:    inv.Operation,
		Symbol:       string(ev.Symbol),
		Seq:          ev.Seq,
		EmittedAt:    ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Details:      ev.Details,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(inv.ID.String()),
		Value: body,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Warn("audit event produce failed",
				"invocation_id", inv.ID,
				"symbol", ev.Symbol,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes outstanding records and releases the producer.
func (p *Publisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("audit producer flush incomplete", "error", err)
	}
	p.client.Close()
	return nil
}
