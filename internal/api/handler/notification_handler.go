package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyrelay/pipeline/internal/api/middleware"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/ingest"
)

// NotificationReader is the read-side surface the handler needs; it is
// satisfied by repository.NotificationRepository.
type NotificationReader interface {
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, status, channelTag string, limit int) ([]*domain.Notification, error)
}

// NotificationHandler handles single-notification ingest and read endpoints.
type NotificationHandler struct {
	svc    *ingest.Service
	notifs NotificationReader
	logger *zap.Logger
}

func NewNotificationHandler(svc *ingest.Service, notifs NotificationReader, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, notifs: notifs, logger: logger}
}

// Submit handles POST /api/v1/notifications
//
// @Summary  Submit a notification across one or more channels
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      domain.SubmitRequest  true  "Submission payload"
// @Success  202   {array}   domain.Notification
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications [post]
func (h *NotificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	notifications, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.logger.Warn("submit failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, notifications)
}

// GetByID handles GET /api/v1/notifications/{id}
//
// @Summary  Get a notification by ID
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Notification UUID"
// @Success  200  {object}  domain.Notification
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.notifs.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// List handles GET /api/v1/notifications
//
// @Summary  List notifications filtered by status and channel
// @Tags     notifications
// @Produce  json
// @Param    status   query  string  false  "Filter by status"
// @Param    channel  query  string  false  "Filter by channel"
// @Param    limit    query  int     false  "Max rows returned (default 50, max 500)"
// @Success  200      {array}  domain.Notification
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l, err := parsePositiveInt(q.Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}

	notifications, err := h.notifs.List(r.Context(), q.Get("status"), q.Get("channel"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}
