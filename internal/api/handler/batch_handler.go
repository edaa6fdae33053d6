package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/ingest"
)

// BatchReader is the read-side surface GetBatch needs; it is satisfied by
// repository.BatchRepository.
type BatchReader interface {
	GetBatch(ctx context.Context, id string) (*domain.Batch, []*domain.Notification, error)
}

// BatchHandler handles batch-submission and batch read-back endpoints.
type BatchHandler struct {
	svc     *ingest.Service
	batches BatchReader
	logger  *zap.Logger
}

func NewBatchHandler(svc *ingest.Service, batches BatchReader, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{svc: svc, batches: batches, logger: logger}
}

// SubmitBatch handles POST /api/v1/notifications/batch
//
// @Summary  Submit up to 1000 recipients across one or more channels
// @Tags     batches
// @Accept   json
// @Produce  json
// @Param    body  body      domain.BatchSubmitRequest  true  "Batch payload"
// @Success  202   {array}   domain.Notification
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications/batch [post]
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	notifications, err := h.svc.SubmitBatch(r.Context(), req)
	if err != nil {
		h.logger.Warn("submit batch failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, notifications)
}

// batchResponse is the read-back shape for GET /batches/{id}: the batch's
// own bookkeeping row plus every notification submitted under it.
type batchResponse struct {
	Batch         *domain.Batch         `json:"batch"`
	Notifications []*domain.Notification `json:"notifications"`
}

// GetBatch handles GET /api/v1/batches/{id}
//
// @Summary  Get a batch and its notifications by batch ID
// @Tags     batches
// @Produce  json
// @Param    id   path      string  true  "Batch UUID"
// @Success  200  {object}  batchResponse
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/batches/{id} [get]
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, notifications, err := h.batches.GetBatch(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, batchResponse{Batch: b, Notifications: notifications})
}
