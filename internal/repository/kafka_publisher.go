package repository

import (
	"context"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgkafka "SignalEngine/pkg/kafka"
)

// KafkaPublisher emits prediction events to a Kafka topic, keyed by symbol
// so per-instrument ordering is preserved.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishPrediction(ctx context.Context, ev models.PredictionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Prediction.Symbol), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)
