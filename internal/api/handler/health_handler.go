package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notifyrelay/pipeline/internal/repository"
)

// HealthHandler serves the liveness/readiness probe endpoint. Readiness
// additionally probes the store and cache — the same prerequisite the
// recovery cron enforces before each reconciliation pass.
type HealthHandler struct {
	store repository.TxStore
	rdb   *redis.Client
}

func NewHealthHandler(store repository.TxStore, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{store: store, rdb: rdb}
}

// Health handles GET /health
//
// @Summary  Liveness and readiness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "component": "store"})
		return
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "component": "cache"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
