package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	NotificationLatency *prometheus.HistogramVec

	RateLimited   *prometheus.CounterVec
	RetriesQueued *prometheus.CounterVec

	OutboxClaimed      *prometheus.CounterVec
	OutboxPublished    *prometheus.CounterVec
	OutboxPendingDepth prometheus.Gauge

	StatusOutboxClaimed   prometheus.Counter
	StatusOutboxPublished prometheus.Counter

	DelayedStaged   prometheus.Counter
	DelayedClaimed  prometheus.Counter
	DelayedDLQTotal prometheus.Counter

	WebhookDeliveries *prometheus.CounterVec

	AlertsRaised *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of successfully delivered notifications.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of permanently failed notifications (retries exhausted).",
		}, []string{"channel"}),

		NotificationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_processing_seconds",
			Help:    "End-to-end processing latency from dequeue to provider ack.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_rate_limited_total",
			Help: "Total number of consume attempts rejected by the per-channel rate limiter.",
		}, []string{"channel"}),

		RetriesQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_retries_queued_total",
			Help: "Total number of delivery attempts re-staged onto the delayed queue.",
		}, []string{"channel"}),

		OutboxClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_claimed_total",
			Help: "Total number of outbox rows claimed by a publisher worker.",
		}, []string{"topic"}),

		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Total number of outbox rows successfully published to the bus.",
		}, []string{"topic"}),

		OutboxPendingDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_depth",
			Help: "Last observed count of pending or processing (not yet published) outbox rows.",
		}),

		StatusOutboxClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "status_outbox_claimed_total",
			Help: "Total number of status-outbox rows claimed for publication.",
		}),

		StatusOutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "status_outbox_published_total",
			Help: "Total number of status-outbox rows published to the status topic.",
		}),

		DelayedStaged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delayed_staged_total",
			Help: "Total number of messages staged into the delayed set.",
		}),

		DelayedClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delayed_claimed_total",
			Help: "Total number of due delayed messages claimed by the poller.",
		}),

		DelayedDLQTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delayed_dead_letter_total",
			Help: "Total number of delayed messages dropped to the dead letter path after exhausting poller retries.",
		}),

		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of webhook callback attempts, labeled by outcome.",
		}, []string{"outcome"}),

		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_alerts_raised_total",
			Help: "Total number of alerts raised by the recovery cron, labeled by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.NotificationLatency,
		m.RateLimited,
		m.RetriesQueued,
		m.OutboxClaimed,
		m.OutboxPublished,
		m.OutboxPendingDepth,
		m.StatusOutboxClaimed,
		m.StatusOutboxPublished,
		m.DelayedStaged,
		m.DelayedClaimed,
		m.DelayedDLQTotal,
		m.WebhookDeliveries,
		m.AlertsRaised,
	)

	return m
}
