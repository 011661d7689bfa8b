package repository

import (
	"context"
	"time"

	"EquityLens/internal/domain/models"
	pkgkafka "EquityLens/pkg/kafka"
	applogger "EquityLens/pkg/logger"
)

// bundleEvent is the compact wire form emitted after each successful run.
// Consumers needing the full bundle fetch it over the API; the event only
// carries enough to decide whether to.
type bundleEvent struct {
	Symbol         string    `json:"symbol"`
	AsOf           time.Time `json:"as_of"`
	Composite      *float64  `json:"composite,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	Partial        bool      `json:"partial"`
	Missing        []string  `json:"missing,omitempty"`
}

// KafkaPublisher implements EventPublisher over a Kafka topic, keyed by
// symbol so per-symbol ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (p *KafkaPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaPublisher) BundleUpdated(ctx context.Context, b *models.Bundle) error {
	ev := bundleEvent{
		Symbol:  b.Symbol,
		AsOf:    b.AsOf,
		Partial: b.Partial(),
	}
	if b.Score != nil {
		ev.Composite = &b.Score.Composite
		ev.Recommendation = b.Score.Recommendation
	}
	for category := range b.Missing {
		ev.Missing = append(ev.Missing, string(category))
	}

	if err := p.producer.Publish(ctx, p.topic, []byte(b.Symbol), ev); err != nil {
		return err
	}
	if p.l != nil {
		p.l.Debug("bundle event published",
			applogger.String("topic", p.topic),
			applogger.String("symbol", b.Symbol),
			applogger.Bool("partial", ev.Partial),
		)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
