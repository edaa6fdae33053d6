package publisher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// StatusPublisher drains status-outbox rows raised by the recovery cron
// onto the status topic, the same path the channel consumer's own status
// publishes travel. Downstream webhook delivery cannot distinguish a
// recovery-originated status from a consumer-originated one, by design.
// The status-outbox row itself carries only the notification reference
// and the target status, so each drained row is joined back against the
// notification to recover the request/client/channel identifiers and the
// webhook URL the status message needs.
type StatusPublisher struct {
	workerID     string
	statusOutbox repository.StatusOutboxRepository
	notifs       repository.NotificationRepository
	producer     *bus.Producer
	metrics      *metrics.Metrics
	logger       *zap.Logger

	pollInterval time.Duration
	batchSize    int
	claimTimeout time.Duration
}

func NewStatusPublisher(
	workerID string,
	statusOutbox repository.StatusOutboxRepository,
	notifs repository.NotificationRepository,
	producer *bus.Producer,
	m *metrics.Metrics,
	logger *zap.Logger,
	pollInterval time.Duration,
	batchSize int,
	claimTimeout time.Duration,
) *StatusPublisher {
	return &StatusPublisher{
		workerID: workerID, statusOutbox: statusOutbox, notifs: notifs, producer: producer,
		metrics: m, logger: logger, pollInterval: pollInterval, batchSize: batchSize, claimTimeout: claimTimeout,
	}
}

func (p *StatusPublisher) Run(ctx context.Context) {
	p.logger.Info("status-outbox publisher started")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("status-outbox publisher stopping")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *StatusPublisher) drain(ctx context.Context) {
	entries, err := p.statusOutbox.ClaimPending(ctx, p.workerID, p.batchSize, p.claimTimeout)
	if err != nil {
		p.logger.Error("claim failed", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}
	p.metrics.StatusOutboxClaimed.Add(float64(len(entries)))

	processed := make([]string, 0, len(entries))
	for _, e := range entries {
		n, err := p.notifs.GetByID(ctx, e.NotificationID)
		if err != nil {
			p.logger.Error("notification lookup failed, leaving claim for stale-reclaim",
				zap.String("status_outbox_id", e.ID), zap.Error(err))
			continue
		}

		sm := domain.StatusMessage{
			NotificationID: e.NotificationID,
			RequestID:      n.RequestID,
			ClientID:       n.ClientID,
			Channel:        n.Channel,
			Status:         e.TargetStatus,
			Message:        e.Message,
			RetryCount:     n.RetryCount,
			WebhookURL:     n.WebhookURL,
			OccurredAt:     time.Now().UTC(),
		}
		payload, err := json.Marshal(sm)
		if err != nil {
			p.logger.Error("marshal failed", zap.String("status_outbox_id", e.ID), zap.Error(err))
			continue
		}
		if err := p.producer.Publish(ctx, bus.StatusTopic, e.NotificationID, payload); err != nil {
			p.logger.Error("publish failed, leaving claim for stale-reclaim",
				zap.String("status_outbox_id", e.ID), zap.Error(err))
			continue
		}
		p.metrics.StatusOutboxPublished.Inc()
		processed = append(processed, e.ID)
	}

	if len(processed) == 0 {
		return
	}
	if err := p.statusOutbox.MarkProcessed(ctx, processed); err != nil {
		p.logger.Error("mark processed failed", zap.Error(err))
	}
}
