package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// AdminHandler exposes operator-facing endpoints gated behind the bearer
// token middleware — currently just the manual retry contract.
type AdminHandler struct {
	store    repository.TxStore
	notifs   NotificationReader
	registry *channel.Registry
	logger   *zap.Logger
}

func NewAdminHandler(store repository.TxStore, notifs NotificationReader, registry *channel.Registry, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, notifs: notifs, registry: registry, logger: logger}
}

// Retry handles POST /api/v1/notifications/{id}/retry
//
// @Summary  Reset a permanently failed notification back to pending
// @Tags     admin
// @Param    id   path  string  true  "Notification UUID"
// @Success  202
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/retry [post]
func (h *AdminHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.notifs.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}

	entry, ok := h.registry.Lookup(n.Channel)
	if !ok {
		mapError(w, domain.ErrUnknownChannel)
		return
	}

	msg := domain.ChannelMessage{
		NotificationID: n.ID,
		RequestID:      n.RequestID,
		ClientID:       n.ClientID,
		Channel:        n.Channel,
		Recipient:      n.Recipient,
		Content:        n.Content,
		Variables:      n.Variables,
		WebhookURL:     n.WebhookURL,
		RetryCount:     0,
		CreatedAt:      time.Now().UTC(),
		Provider:       n.Provider,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build retry message")
		return
	}

	if err := h.store.AdminRetry(r.Context(), n.ID, entry.Topic, payload); err != nil {
		h.logger.Warn("admin retry failed", zap.String("notification_id", n.ID), zap.Error(err))
		mapError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
