// Package sequence emits the enqueue signal that hands Nurture-tier leads to
// the automated follow-up system. The sequence itself runs elsewhere; this
// side only guarantees an observable, durable signal.
package sequence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"leadgate/internal/lead"
)

// Publisher enqueues a lead into the automated nurture sequence.
type Publisher interface {
	EnqueueNurture(ctx context.Context, l *lead.Lead) error
}

// enqueueEvent is the wire payload consumed by the sequence runner.
type enqueueEvent struct {
	LeadID           string `json:"lead_id"`
	OrganizationName string `json:"organization_name"`
	ContactName      string `json:"contact_name"`
	ContactEmail     string `json:"contact_email"`
	Score            int    `json:"qualification_score"`
	EnqueuedAt       string `json:"enqueued_at"`
}

// Kafka publishes enqueue events to a topic, keyed by lead ID so re-submits
// for the same lead land in order.
type Kafka struct {
	client *kgo.Client
	topic  string
}

// NewKafka connects a producer to the given brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

func (k *Kafka) EnqueueNurture(ctx context.Context, l *lead.Lead) error {
	payload, err := json.Marshal(enqueueEvent{
		LeadID:           l.ID.String(),
		OrganizationName: l.OrganizationName,
		ContactName:      l.ContactName,
		ContactEmail:     l.ContactEmail,
		Score:            l.QualificationScore,
		EnqueuedAt:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal enqueue event: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(l.ID.String()),
		Value: payload,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce enqueue event: %w", err)
	}
	return nil
}

// Close flushes and shuts down the producer.
func (k *Kafka) Close() {
	k.client.Close()
}

// Log is the fallback publisher for deployments without Kafka: the signal is
// still observable in the structured log stream.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (p *Log) EnqueueNurture(ctx context.Context, l *lead.Lead) error {
	p.logger.InfoContext(ctx, "nurture sequence enqueue",
		"lead_id", l.ID,
		"organization", l.OrganizationName,
		"score", l.QualificationScore,
	)
	return nil
}
