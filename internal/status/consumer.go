package status

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// Consumer drains the status topic and is the single writer that applies a
// terminal status to the notification row: every other producer onto this
// topic (the channel consumer, the recovery cron's status-outbox) only
// announces the outcome here rather than writing the notification itself.
// Once the status is applied, it delivers the client's webhook, if one was
// supplied at submission time.
type Consumer struct {
	reader    *bus.Consumer
	notifs    repository.NotificationRepository
	deliverer *WebhookDeliverer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewConsumer(reader *bus.Consumer, notifs repository.NotificationRepository, deliverer *WebhookDeliverer, m *metrics.Metrics, logger *zap.Logger) *Consumer {
	return &Consumer{reader: reader, notifs: notifs, deliverer: deliverer, metrics: m, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("status consumer started")
	for {
		msg, err := c.reader.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info("status consumer stopping")
				return
			}
			c.logger.Error("fetch failed", zap.Error(err))
			continue
		}

		var sm domain.StatusMessage
		if err := json.Unmarshal(msg.Value, &sm); err != nil {
			c.logger.Error("malformed status message, committing to drop it", zap.Error(err))
			_ = c.reader.Commit(ctx, msg)
			continue
		}

		c.process(ctx, sm)
		if err := c.reader.Commit(ctx, msg); err != nil {
			c.logger.Error("commit failed", zap.String("notification_id", sm.NotificationID), zap.Error(err))
		}
	}
}

func (c *Consumer) process(ctx context.Context, sm domain.StatusMessage) {
	log := c.logger.With(zap.String("notification_id", sm.NotificationID), zap.String("status", string(sm.Status)))

	if err := c.notifs.ApplyTerminalStatus(ctx, sm.NotificationID, sm.Status, sm.Message); err != nil {
		log.Error("failed to apply terminal status", zap.Error(err))
	}

	if sm.WebhookURL == "" {
		return
	}

	payload := domain.WebhookPayload{
		RequestID:      sm.RequestID,
		NotificationID: sm.NotificationID,
		Status:         sm.Status,
		Channel:        sm.Channel,
		Message:        sm.Message,
		OccurredAt:     sm.OccurredAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	if err := c.deliverer.Deliver(ctx, sm.WebhookURL, payload); err != nil {
		log.Warn("webhook delivery failed", zap.Error(err))
		c.metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		return
	}
	c.metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
}
