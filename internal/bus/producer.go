package bus

import (
	"context"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// Producer publishes messages keyed by notification identifier, preserving
// partition affinity for a given notification across republishes (outbox,
// retry, delayed). One Producer is shared by a component; the topic is
// supplied per call so the outbox publisher can route rows of different
// topics through a single writer.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
			Async:        false,
		},
	}
}

// Publish writes one message, keyed for partition affinity, to topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
