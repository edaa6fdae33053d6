package publisher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// Publisher drains the outbox table onto the bus. Multiple Publisher
// workers can run concurrently against the same table: FOR UPDATE SKIP
// LOCKED at the repository layer guarantees no two workers ever claim the
// same row.
type Publisher struct {
	id       int
	workerID string
	outbox   repository.OutboxRepository
	notifs   repository.NotificationRepository
	producer *bus.Producer
	metrics  *metrics.Metrics
	logger   *zap.Logger

	pollInterval time.Duration
	batchSize    int
	claimTimeout time.Duration
}

func New(
	id int,
	workerID string,
	outbox repository.OutboxRepository,
	notifs repository.NotificationRepository,
	producer *bus.Producer,
	m *metrics.Metrics,
	logger *zap.Logger,
	pollInterval time.Duration,
	batchSize int,
	claimTimeout time.Duration,
) *Publisher {
	return &Publisher{
		id: id, workerID: workerID, outbox: outbox, notifs: notifs, producer: producer,
		metrics: m, logger: logger, pollInterval: pollInterval, batchSize: batchSize, claimTimeout: claimTimeout,
	}
}

// Run polls the outbox on a fixed interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	log := p.logger.With(zap.Int("publisher_id", p.id))
	log.Info("outbox publisher started")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("outbox publisher stopping")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	if depth, err := p.outbox.CountPending(ctx); err == nil {
		p.metrics.OutboxPendingDepth.Set(float64(depth))
	}

	entries, err := p.outbox.ClaimPending(ctx, p.workerID, p.batchSize, p.claimTimeout)
	if err != nil {
		p.logger.Error("claim failed", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}

	published := make([]string, 0, len(entries))
	for _, e := range entries {
		p.metrics.OutboxClaimed.WithLabelValues(e.Topic).Inc()
		if err := p.producer.Publish(ctx, e.Topic, e.NotificationID, e.Payload); err != nil {
			p.logger.Error("publish failed, leaving claim for stale-reclaim",
				zap.String("outbox_id", e.ID), zap.String("topic", e.Topic), zap.Error(err))
			continue
		}
		p.metrics.OutboxPublished.WithLabelValues(e.Topic).Inc()
		published = append(published, e.ID)

		if err := p.notifs.UpdateStatusInformational(ctx, e.NotificationID, domain.StatusProcessing); err != nil {
			p.logger.Warn("best-effort status update failed", zap.String("notification_id", e.NotificationID), zap.Error(err))
		}
	}

	if len(published) == 0 {
		return
	}
	if err := p.outbox.MarkPublished(ctx, published); err != nil {
		p.logger.Error("mark published failed", zap.Error(err))
	}
}

// Pool runs N Publisher workers concurrently, all against the same table.
type Pool struct {
	workers []*Publisher
	wg      sync.WaitGroup
}

func NewPool(workers []*Publisher) *Pool {
	return &Pool{workers: workers}
}

func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Publisher) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

func (p *Pool) Wait() {
	p.wg.Wait()
}
