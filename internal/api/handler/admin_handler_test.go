package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/api/handler"
	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/repository"
)

func newAdminRouter(store *repository.MockStore, reg *channel.Registry) http.Handler {
	ah := handler.NewAdminHandler(store, store.Notifications, reg, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/notifications/{id}/retry", ah.Retry)
	return r
}

func TestAdminHandler_Retry_ResetsFailedNotification(t *testing.T) {
	store := repository.NewMockStore()
	reg := channel.NewRegistry()
	reg.Register("email", "email_notification", nil)

	n := &domain.Notification{
		ID: "n1", RequestID: "r1", ClientID: "c1", Channel: "email",
		Status: domain.StatusFailed, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	store.Notifications.Put(n)

	r := newAdminRouter(store, reg)
	req := httptest.NewRequest(http.MethodPost, "/notifications/n1/retry", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	got, _ := store.Notifications.GetByID(req.Context(), "n1")
	if got.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", got.Status)
	}
}

func TestAdminHandler_Retry_NotFound(t *testing.T) {
	store := repository.NewMockStore()
	reg := channel.NewRegistry()

	r := newAdminRouter(store, reg)
	req := httptest.NewRequest(http.MethodPost, "/notifications/does-not-exist/retry", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminHandler_Retry_NotRetryableWhenNotFailed(t *testing.T) {
	store := repository.NewMockStore()
	reg := channel.NewRegistry()
	reg.Register("email", "email_notification", nil)

	n := &domain.Notification{
		ID: "n1", RequestID: "r1", ClientID: "c1", Channel: "email",
		Status: domain.StatusDelivered, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	store.Notifications.Put(n)

	r := newAdminRouter(store, reg)
	req := httptest.NewRequest(http.MethodPost, "/notifications/n1/retry", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}
