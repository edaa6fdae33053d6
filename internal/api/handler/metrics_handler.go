package handler

import (
	"net/http"

	"github.com/notifyrelay/pipeline/internal/repository"
)

// MetricsHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	outbox repository.OutboxRepository
}

func NewMetricsHandler(outbox repository.OutboxRepository) *MetricsHandler {
	return &MetricsHandler{outbox: outbox}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time outbox backlog snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	depth, err := h.outbox.CountPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read outbox depth")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"outbox_pending_depth": depth,
	})
}
