package repository

import (
	"context"

	"CourtCast/internal/domain/models"
	"CourtCast/internal/domain/repository"
	pkgkafka "CourtCast/pkg/kafka"
)

// KafkaPredictionPublisher pushes finished predictions to a Kafka topic for
// downstream consumers (dashboards, bet trackers).
type KafkaPredictionPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPredictionPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) PublishPrediction(ctx context.Context, pred *models.Prediction) error {
	// Keyed by match id when present so replays for the same match land on
	// one partition.
	key := pred.Match.ID
	if key == "" {
		key = pred.ID
	}
	return p.producer.Publish(ctx, p.topic, []byte(key), pred)
}

func (p *KafkaPredictionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
