package repository

import (
	"context"

	"stockprob/internal/domain/repository"
	pkgkafka "stockprob/pkg/kafka"
)

// DefaultAnalysisTopic carries one event per persisted period table.
const DefaultAnalysisTopic = "stockprob.analysis.completed"

// Producer is the subset of the Kafka producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher implements EventPublisher for Kafka.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka publisher.
func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultAnalysisTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

var (
	_ repository.EventPublisher = (*KafkaPublisher)(nil)
	_ Producer                  = (*pkgkafka.Producer)(nil)
)

// PublishAnalysis sends ev keyed by instrument code, so events for one code
// stay ordered on a partition.
func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, ev repository.AnalysisEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Code), ev)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) PublishAnalysis(context.Context, repository.AnalysisEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
