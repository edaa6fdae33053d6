package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/api/handler"
	apimw "github.com/notifyrelay/pipeline/internal/api/middleware"
	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/ingest"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *ingest.Service,
	store repository.TxStore,
	notifs handler.NotificationReader,
	batches handler.BatchReader,
	outbox repository.OutboxRepository,
	registry *channel.Registry,
	rdb *redis.Client,
	reg prometheus.Gatherer,
	authToken string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(svc, notifs, logger)
	bh := handler.NewBatchHandler(svc, batches, logger)
	ah := handler.NewAdminHandler(store, notifs, registry, logger)
	mh := handler.NewMetricsHandler(outbox)
	hh := handler.NewHealthHandler(store, rdb)

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apimw.BearerAuth(authToken))

		// Notifications — note: /batch must be registered before /{id}
		// so chi does not treat the literal string "batch" as an ID.
		r.Post("/notifications/batch", bh.SubmitBatch)
		r.Post("/notifications", nh.Submit)
		r.Get("/notifications", nh.List)
		r.Get("/notifications/{id}", nh.GetByID)
		r.Post("/notifications/{id}/retry", ah.Retry)

		// Batches
		r.Get("/batches/{id}", bh.GetBatch)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
