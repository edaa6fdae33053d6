package bus

import (
	"context"

	kafka "github.com/segmentio/kafka-go"
)

// Consumer wraps a single-topic, single-consumer-group Kafka reader under a
// manual-commit discipline: CommitMessages must only be called after a
// message's handler has returned without error, so that a mid-processing
// crash causes redelivery rather than silent loss.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Fetch blocks until a message is available, ctx is cancelled, or an error
// occurs. The caller must Commit after successfully handling the message.
func (c *Consumer) Fetch(ctx context.Context) (kafka.Message, error) {
	return c.reader.FetchMessage(ctx)
}

// Commit advances the consumer group's offset past msg.
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
