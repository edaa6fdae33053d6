package recovery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/cache"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// Cron reconciles the durable store against the side-effect cache on a
// fixed interval. It is the only component allowed to move a notification
// out of processing/pending without a bus message driving the change —
// every other transition is event-driven.
type Cron struct {
	store        repository.TxStore
	notifs       repository.NotificationRepository
	alerts       repository.AlertRepository
	outbox       repository.OutboxRepository
	statusOutbox repository.StatusOutboxRepository
	idem         *cache.Idempotency
	metrics      *metrics.Metrics
	logger       *zap.Logger

	maxRetryCount int

	pollInterval             time.Duration
	processingStuckThreshold time.Duration
	pendingStuckThreshold    time.Duration
	batchSize                int

	cleanupEvery                 int
	cleanupOutboxRetention       time.Duration
	cleanupStatusOutboxRetention time.Duration
	cleanupAlertRetention        time.Duration
	ticks                        int
}

func New(
	store repository.TxStore,
	notifs repository.NotificationRepository,
	alerts repository.AlertRepository,
	outbox repository.OutboxRepository,
	statusOutbox repository.StatusOutboxRepository,
	idem *cache.Idempotency,
	m *metrics.Metrics,
	logger *zap.Logger,
	maxRetryCount int,
	pollInterval, processingStuckThreshold, pendingStuckThreshold time.Duration,
	batchSize int,
	cleanupOutboxRetention, cleanupStatusOutboxRetention, cleanupAlertRetention time.Duration,
) *Cron {
	return &Cron{
		store: store, notifs: notifs, alerts: alerts, outbox: outbox, statusOutbox: statusOutbox,
		idem: idem, metrics: m, logger: logger, maxRetryCount: maxRetryCount,
		pollInterval: pollInterval, processingStuckThreshold: processingStuckThreshold,
		pendingStuckThreshold: pendingStuckThreshold, batchSize: batchSize,
		cleanupEvery:                 20, // roughly once per 20 polls, e.g. every ~10 minutes at the default 30s interval
		cleanupOutboxRetention:       cleanupOutboxRetention,
		cleanupStatusOutboxRetention: cleanupStatusOutboxRetention,
		cleanupAlertRetention:        cleanupAlertRetention,
	}
}

func (c *Cron) Run(ctx context.Context) {
	c.logger.Info("recovery cron started")
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("recovery cron stopping")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick requires both the store and the cache to be reachable before
// reconciling anything; a half-reachable pass would misdiagnose every
// notification whose state lives in the unreachable half.
func (c *Cron) tick(ctx context.Context) {
	if err := c.store.HealthCheck(ctx); err != nil {
		c.logger.Warn("recovery pass skipped: store unreachable", zap.Error(err))
		return
	}
	// A read of an absent idempotency key returns no error when the cache
	// is reachable, so it doubles as the cache probe.
	if _, err := c.idem.Status(ctx, "recovery-healthcheck"); err != nil {
		c.logger.Warn("recovery pass skipped: cache unreachable", zap.Error(err))
		return
	}

	c.reconcileStuckProcessing(ctx)
	c.alertOrphanedPending(ctx)

	c.ticks++
	if c.ticks%c.cleanupEvery == 0 {
		c.cleanup(ctx)
	}
}

// cleanup is Pass 3: it deletes rows that have already done their job and
// are only retained for a bounded audit window — published outbox rows,
// processed status-outbox rows, and resolved alerts.
func (c *Cron) cleanup(ctx context.Context) {
	if n, err := c.outbox.DeletePublishedOlderThan(ctx, c.cleanupOutboxRetention); err != nil {
		c.logger.Error("outbox cleanup failed", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("cleaned up published outbox rows", zap.Int64("count", n))
	}

	if n, err := c.statusOutbox.DeleteProcessedOlderThan(ctx, c.cleanupStatusOutboxRetention); err != nil {
		c.logger.Error("status-outbox cleanup failed", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("cleaned up processed status-outbox rows", zap.Int64("count", n))
	}

	if n, err := c.alerts.DeleteResolvedOlderThan(ctx, c.cleanupAlertRetention); err != nil {
		c.logger.Error("alert cleanup failed", zap.Error(err))
	} else if n > 0 {
		c.logger.Info("cleaned up resolved alerts", zap.Int64("count", n))
	}
}

// reconcileStuckProcessing is Pass 1: a notification stuck in processing
// past the threshold is either a ghost delivery (the cache says delivered
// but the store never heard back) or a genuine stall. The cache's
// idempotency record is consulted to tell the two apart.
func (c *Cron) reconcileStuckProcessing(ctx context.Context) {
	stuck, err := c.notifs.FindStuckProcessing(ctx, c.processingStuckThreshold, c.batchSize)
	if err != nil {
		c.logger.Error("find stuck processing failed", zap.Error(err))
		return
	}

	for _, n := range stuck {
		log := c.logger.With(zap.String("notification_id", n.ID))

		cacheStatus, err := c.idem.Status(ctx, n.ID)
		if err != nil {
			log.Error("idempotency lookup failed", zap.Error(err))
			continue
		}

		var target domain.Status
		var kind domain.AlertKind
		var reason string
		autoHeal := true
		switch {
		case cacheStatus == "delivered":
			target = domain.StatusDelivered
			kind = domain.AlertGhostDelivery
			reason = "cache reports delivered but store never recorded the transition"
		case cacheStatus == "failed" && n.RetryCount >= c.maxRetryCount:
			target = domain.StatusFailed
			kind = domain.AlertGhostDelivery
			reason = "cache reports failed at max retries but store never recorded the transition"
		case cacheStatus == "failed":
			kind = domain.AlertStuckProcessing
			reason = "cache reports failed with retries remaining; retry is a manual decision"
			autoHeal = false
		default:
			kind = domain.AlertStuckProcessing
			reason = "no terminal cache record found before the stuck threshold elapsed"
			autoHeal = false
		}

		if !autoHeal {
			c.metrics.AlertsRaised.WithLabelValues(string(kind)).Inc()
			if err := c.alerts.Raise(ctx, &domain.Alert{
				NotificationID: n.ID,
				Kind:           kind,
				Reason:         reason,
				CacheStatus:    cacheStatus,
				StoreStatus:    string(n.Status),
				RetryCount:     n.RetryCount,
			}); err != nil {
				log.Error("raise alert failed", zap.Error(err))
			}
			log.Warn("stuck processing notification left for manual triage", zap.String("cache_status", cacheStatus))
			continue
		}

		applied, err := c.store.ClaimGhostOrTerminalDelivery(ctx, n.ID, target, reason)
		if err != nil {
			log.Error("claim ghost delivery failed", zap.Error(err))
			continue
		}
		if !applied {
			continue // already moved by a concurrent recovery pass or a late consumer commit
		}

		// Ghost deliveries are resolved synthetically by the auto-heal itself, so no alert is raised here.
		log.Warn("reconciled stuck processing notification", zap.String("target_status", string(target)), zap.String("cache_status", cacheStatus))
	}
}

// alertOrphanedPending is Pass 2: a notification stuck in pending past the
// threshold means its outbox row was never claimed or never published —
// this is surfaced as an alert for operator attention rather than
// auto-healed, since there is no safe default terminal status to assign.
func (c *Cron) alertOrphanedPending(ctx context.Context) {
	orphaned, err := c.notifs.FindOrphanedPending(ctx, c.pendingStuckThreshold, c.batchSize)
	if err != nil {
		c.logger.Error("find orphaned pending failed", zap.Error(err))
		return
	}

	for _, n := range orphaned {
		c.metrics.AlertsRaised.WithLabelValues(string(domain.AlertOrphanedPending)).Inc()
		if err := c.alerts.Raise(ctx, &domain.Alert{
			NotificationID: n.ID,
			Kind:           domain.AlertOrphanedPending,
			Reason:         "pending notification never reached processing before the orphan threshold elapsed",
			StoreStatus:    string(n.Status),
			RetryCount:     n.RetryCount,
		}); err != nil {
			c.logger.Error("raise alert failed", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
}
