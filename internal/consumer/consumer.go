package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/backoff"
	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/cache"
	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// Consumer drains one channel's bus topic. It is generic over
// channel.Entry: the same Consumer type serves email, sms, push, or any
// channel later registered, with no per-channel branch anywhere in this
// file.
type Consumer struct {
	tag       string
	entry     channel.Entry
	reader    *bus.Consumer
	producer  *bus.Producer
	notifs    repository.NotificationRepository
	idem      *cache.Idempotency
	limiter   *cache.RateLimiter
	metrics   *metrics.Metrics
	logger    *zap.Logger

	maxRetryCount int
	retryBaseMS   int64
	retryCapMS    int64
}

func New(
	tag string,
	entry channel.Entry,
	reader *bus.Consumer,
	producer *bus.Producer,
	notifs repository.NotificationRepository,
	idem *cache.Idempotency,
	limiter *cache.RateLimiter,
	m *metrics.Metrics,
	logger *zap.Logger,
	maxRetryCount int,
	retryBaseMS, retryCapMS int64,
) *Consumer {
	return &Consumer{
		tag: tag, entry: entry, reader: reader, producer: producer,
		notifs: notifs, idem: idem, limiter: limiter, metrics: m, logger: logger,
		maxRetryCount: maxRetryCount, retryBaseMS: retryBaseMS, retryCapMS: retryCapMS,
	}
}

// Run blocks until ctx is cancelled, processing one message per iteration.
func (c *Consumer) Run(ctx context.Context) {
	log := c.logger.With(zap.String("channel", c.tag))
	log.Info("channel consumer started")
	for {
		msg, err := c.reader.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("channel consumer stopping")
				return
			}
			log.Error("fetch failed", zap.Error(err))
			continue
		}

		var cm domain.ChannelMessage
		if err := json.Unmarshal(msg.Value, &cm); err != nil {
			log.Error("malformed channel message, committing to drop it", zap.Error(err))
			_ = c.reader.Commit(ctx, msg)
			continue
		}

		c.process(ctx, cm)
		if err := c.reader.Commit(ctx, msg); err != nil {
			log.Error("commit failed", zap.String("notification_id", cm.NotificationID), zap.Error(err))
		}
	}
}

// process runs the idempotency/rate-limit/send/outcome sequence for one
// message. Every exit path that reaches the bottom leaves the cache in a
// well-defined state and, for a terminal outcome, announces it on the
// status topic before the caller commits the Kafka offset; applying the
// status to the notification row itself is the status consumer's job, not
// this one's — see internal/status.Consumer.
func (c *Consumer) process(ctx context.Context, cm domain.ChannelMessage) {
	log := c.logger.With(zap.String("notification_id", cm.NotificationID), zap.String("channel", c.tag))
	start := time.Now()

	outcome, err := c.idem.AcquireProcessing(ctx, cm.NotificationID)
	if err != nil {
		log.Error("idempotency lock failed", zap.Error(err))
		return
	}
	switch outcome {
	case cache.AcquireAlreadyActive, cache.AcquireAlreadyDone:
		log.Debug("skipping duplicate delivery", zap.String("outcome", string(outcome)))
		return
	}

	allowed, err := c.limiter.Allow(ctx, c.tag, time.Now().UnixMilli())
	if err != nil {
		log.Error("rate limiter check failed", zap.Error(err))
		return
	}
	if !allowed {
		c.metrics.RateLimited.WithLabelValues(c.tag).Inc()
		c.retry(ctx, cm, errors.New("rate limit exhausted"))
		return
	}

	providerMsgID, err := c.entry.Provider.Send(ctx, cm.Recipient, cm.Content, cm.Variables)
	latency := time.Since(start)

	if err != nil {
		log.Warn("provider send failed", zap.Error(err), zap.Int("retry_count", cm.RetryCount))
		c.retry(ctx, cm, err)
		return
	}

	// The notification row itself is left untouched here — the status
	// consumer is the single writer that applies a terminal status, so
	// this only records the side effect (cache) and announces it (bus).
	if err := c.idem.MarkDelivered(ctx, cm.NotificationID); err != nil {
		log.Error("failed to mark delivered in cache", zap.Error(err))
	}
	c.publishStatus(ctx, cm, domain.StatusDelivered, "")

	c.metrics.NotificationsSent.WithLabelValues(c.tag).Inc()
	c.metrics.NotificationLatency.WithLabelValues(c.tag).Observe(latency.Seconds())
	log.Info("notification delivered", zap.String("provider_msg_id", providerMsgID), zap.Duration("latency", latency))
}

// retry either re-stages cm onto the delayed topic with an incremented
// retry count, or — once MAX_RETRY_COUNT is exhausted — marks the
// notification permanently failed.
func (c *Consumer) retry(ctx context.Context, cm domain.ChannelMessage, sendErr error) {
	log := c.logger.With(zap.String("notification_id", cm.NotificationID), zap.String("channel", c.tag))

	if cm.RetryCount >= c.maxRetryCount {
		// As above: no direct notification write — the status consumer
		// applies the terminal failure once this status event lands.
		if err := c.idem.MarkFailed(ctx, cm.NotificationID); err != nil {
			log.Error("failed to mark failed in cache", zap.Error(err))
		}
		c.publishStatus(ctx, cm, domain.StatusFailed, sendErr.Error())
		c.metrics.NotificationsFailed.WithLabelValues(c.tag).Inc()
		return
	}

	nextRetry := cm.RetryCount + 1
	if err := c.notifs.ScheduleRetry(ctx, cm.NotificationID, nextRetry, sendErr.Error()); err != nil {
		log.Error("failed to record retry", zap.Error(err))
	}
	if err := c.idem.MarkFailed(ctx, cm.NotificationID); err != nil {
		log.Error("failed to mark retry-pending in cache", zap.Error(err))
	}

	delay := backoff.Delay(cm.RetryCount, c.retryBaseMS, c.retryCapMS)
	cm.RetryCount = nextRetry
	delayed := domain.DelayedMessage{
		ChannelMessage: cm,
		TargetTopic:    c.entry.Topic,
		ScheduledAt:    time.Now().Add(delay).UnixMilli(),
	}
	payload, err := json.Marshal(delayed)
	if err != nil {
		log.Error("failed to marshal delayed message", zap.Error(err))
		return
	}
	if err := c.producer.Publish(ctx, bus.DelayedTopic, cm.NotificationID, payload); err != nil {
		log.Error("failed to publish retry to delayed topic", zap.Error(err))
		return
	}
	c.metrics.RetriesQueued.WithLabelValues(c.tag).Inc()
}

func (c *Consumer) publishStatus(ctx context.Context, cm domain.ChannelMessage, status domain.Status, message string) {
	sm := domain.StatusMessage{
		NotificationID: cm.NotificationID,
		RequestID:      cm.RequestID,
		ClientID:       cm.ClientID,
		Channel:        cm.Channel,
		Status:         status,
		Message:        message,
		RetryCount:     cm.RetryCount,
		WebhookURL:     cm.WebhookURL,
		OccurredAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(sm)
	if err != nil {
		c.logger.Error("failed to marshal status message", zap.Error(err))
		return
	}
	if err := c.producer.Publish(ctx, bus.StatusTopic, cm.NotificationID, payload); err != nil {
		c.logger.Error("failed to publish status message", zap.Error(err))
	}
}
