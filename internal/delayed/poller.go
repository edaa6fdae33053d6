package delayed

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/cache"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/metrics"
)

// Poller runs the two-phase claim/confirm protocol over the delayed set:
// Claim reserves due members without removing them, Confirm removes a
// member only after its target-topic publish has succeeded. A poller that
// crashes between Claim and Confirm leaves its claims to expire and be
// re-claimed by the next poller — no message is lost, and none is
// published twice once the claim lock is held by exactly one poller.
type Poller struct {
	set      *cache.DelayedSet
	producer *bus.Producer
	metrics  *metrics.Metrics
	logger   *zap.Logger

	pollInterval     time.Duration
	batchSize        int64
	claimTTLSeconds  int
	maxPollerRetries int
}

func NewPoller(
	set *cache.DelayedSet,
	producer *bus.Producer,
	m *metrics.Metrics,
	logger *zap.Logger,
	pollInterval time.Duration,
	batchSize int64,
	claimTTL time.Duration,
	maxPollerRetries int,
) *Poller {
	return &Poller{
		set: set, producer: producer, metrics: m, logger: logger,
		pollInterval: pollInterval, batchSize: batchSize,
		claimTTLSeconds: int(claimTTL.Seconds()), maxPollerRetries: maxPollerRetries,
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("delayed poller started")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("delayed poller stopping")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	members, err := p.set.Claim(ctx, time.Now().UnixMilli(), p.batchSize, p.claimTTLSeconds)
	if err != nil {
		p.logger.Error("claim failed", zap.Error(err))
		return
	}
	if len(members) == 0 {
		return
	}
	p.metrics.DelayedClaimed.Add(float64(len(members)))

	confirmed := make([]string, 0, len(members))
	for _, member := range members {
		if p.deliver(ctx, member) {
			confirmed = append(confirmed, member)
		}
	}
	if err := p.set.Confirm(ctx, confirmed); err != nil {
		p.logger.Error("confirm failed", zap.Error(err))
	}
}

// deliver publishes one claimed member to its target topic. On success it
// reports true so the caller confirms (removes) it. On failure it releases
// the claim lock and either re-stages the message with an incremented
// poller-retry counter, or — once exhausted — drops it to the dead-letter
// path: a failed status publish plus outright removal from the set.
func (p *Poller) deliver(ctx context.Context, member string) bool {
	var dm domain.DelayedMessage
	if err := json.Unmarshal([]byte(member), &dm); err != nil {
		p.logger.Error("malformed delayed set member, dropping", zap.Error(err))
		return true
	}
	log := p.logger.With(zap.String("notification_id", dm.NotificationID))

	if err := p.producer.Publish(ctx, dm.TargetTopic, dm.NotificationID, []byte(member)); err == nil {
		return true
	} else {
		log.Warn("target publish failed", zap.Error(err), zap.Int("poller_retries", dm.PollerRetries))
	}

	if err := p.set.ReleaseClaim(ctx, member); err != nil {
		log.Error("release claim failed", zap.Error(err))
	}

	if dm.PollerRetries >= p.maxPollerRetries {
		p.deadLetter(ctx, member, dm)
		return false
	}

	dm.PollerRetries++
	restaged, err := json.Marshal(dm)
	if err != nil {
		log.Error("failed to marshal restaged member", zap.Error(err))
		return false
	}
	// Claim never removes a member from the set, so the stale copy (with
	// the old poller_retries count) must be dropped explicitly before the
	// incremented one is staged under its new member text. The score stays
	// at the member's original due time — releasing the claim lock is
	// supposed to make it immediately reclaimable, not push it into the
	// future by a poll interval.
	if err := p.set.Remove(ctx, member); err != nil {
		log.Error("failed to remove stale member before restage", zap.Error(err))
	}
	if err := p.set.Stage(ctx, string(restaged), dm.ScheduledAt); err != nil {
		log.Error("restage failed", zap.Error(err))
	}
	return false
}

func (p *Poller) deadLetter(ctx context.Context, member string, dm domain.DelayedMessage) {
	log := p.logger.With(zap.String("notification_id", dm.NotificationID))
	log.Error("delayed message exhausted poller retries, dead-lettering", zap.Int("poller_retries", dm.PollerRetries))

	sm := domain.StatusMessage{
		NotificationID: dm.NotificationID,
		RequestID:      dm.RequestID,
		ClientID:       dm.ClientID,
		Channel:        dm.Channel,
		Status:         domain.StatusFailed,
		Message:        "delayed delivery exhausted poller retries",
		RetryCount:     dm.RetryCount,
		WebhookURL:     dm.WebhookURL,
		OccurredAt:     time.Now().UTC(),
	}
	payload, err := json.Marshal(sm)
	if err == nil {
		if err := p.producer.Publish(ctx, bus.StatusTopic, dm.NotificationID, payload); err != nil {
			log.Error("failed to publish dead-letter status", zap.Error(err))
		}
	}
	p.metrics.DelayedDLQTotal.Inc()

	if err := p.set.Remove(ctx, member); err != nil {
		log.Error("failed to remove dead-lettered member", zap.Error(err))
	}
}
