package repository

import (
	"context"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	pkgkafka "IEXCast/pkg/kafka"
)

// KafkaResultPublisher announces run summaries, keyed by result key so
// repeated runs of one series land on one partition.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishRun(ctx context.Context, summary models.RunSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(summary.Key), summary)
}

func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
