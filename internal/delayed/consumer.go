package delayed

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/cache"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
)

// Consumer drains the delayed topic and stages each message into the
// cache's ordered set, scored by its due instant. It never publishes
// anything itself — the Poller is the only thing that moves a message
// off the delayed set and onto its target topic.
type Consumer struct {
	reader  *bus.Consumer
	set     *cache.DelayedSet
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewConsumer(reader *bus.Consumer, set *cache.DelayedSet, m *metrics.Metrics, logger *zap.Logger) *Consumer {
	return &Consumer{reader: reader, set: set, metrics: m, logger: logger}
}

func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("delayed consumer started")
	for {
		msg, err := c.reader.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info("delayed consumer stopping")
				return
			}
			c.logger.Error("fetch failed", zap.Error(err))
			continue
		}

		var dm domain.DelayedMessage
		if err := json.Unmarshal(msg.Value, &dm); err != nil {
			c.logger.Error("malformed delayed message, committing to drop it", zap.Error(err))
			_ = c.reader.Commit(ctx, msg)
			continue
		}

		if err := c.set.Stage(ctx, string(msg.Value), dm.ScheduledAt); err != nil {
			c.logger.Error("stage failed", zap.String("notification_id", dm.NotificationID), zap.Error(err))
			continue
		}
		c.metrics.DelayedStaged.Inc()

		if err := c.reader.Commit(ctx, msg); err != nil {
			c.logger.Error("commit failed", zap.String("notification_id", dm.NotificationID), zap.Error(err))
		}
	}
}
