package repository

import (
	"context"

	"BandView/internal/domain/models"
	"BandView/internal/domain/repository"
)

type snapshotProducer interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaBandPublisher writes band snapshots as JSON keyed by symbol.
type KafkaBandPublisher struct {
	producer snapshotProducer
}

// NewKafkaBandPublisher creates a Kafka publisher. The producer carries the topic.
func NewKafkaBandPublisher(producer snapshotProducer) repository.BandPublisher {
	return &KafkaBandPublisher{producer: producer}
}

func (p *KafkaBandPublisher) Publish(ctx context.Context, s models.BandSnapshot) error {
	return p.producer.Publish(ctx, []byte(s.Symbol), s)
}

func (p *KafkaBandPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopBandPublisher drops snapshots. Used when Kafka is disabled.
type NoopBandPublisher struct{}

func (NoopBandPublisher) Publish(context.Context, models.BandSnapshot) error { return nil }

func (NoopBandPublisher) Close() error { return nil }
