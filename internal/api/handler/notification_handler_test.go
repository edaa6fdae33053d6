package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/api/handler"
	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/ingest"
	"github.com/notifyrelay/pipeline/internal/repository"
)

func newTestService() (*ingest.Service, *repository.MockStore) {
	store := repository.NewMockStore()
	reg := channel.NewRegistry()
	noop := channel.ProviderFunc(func(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error) {
		return "msg-1", nil
	})
	reg.Register("email", channel.DefaultTopic("email"), noop)
	return ingest.NewService(store, reg, zap.NewNop()), store
}

func newRouter(svc *ingest.Service, store *repository.MockStore) http.Handler {
	nh := handler.NewNotificationHandler(svc, store.Notifications, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/notifications", nh.Submit)
	r.Get("/notifications/{id}", nh.GetByID)
	r.Get("/notifications", nh.List)
	return r
}

func TestNotificationHandler_Submit(t *testing.T) {
	svc, store := newTestService()
	r := newRouter(svc, store)

	body := `{"request_id":"` + uuid.New().String() + `","client_id":"` + uuid.New().String() + `","channel":["email"],"recipient":{"user_id":"u1"},"content":{"subject":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var notifications []domain.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &notifications); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
}

func TestNotificationHandler_Submit_InvalidBody(t *testing.T) {
	svc, store := newTestService()
	r := newRouter(svc, store)

	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestNotificationHandler_Submit_ValidationFailure(t *testing.T) {
	svc, store := newTestService()
	r := newRouter(svc, store)

	body := `{"request_id":"not-a-uuid","client_id":"` + uuid.New().String() + `","channel":["email"],"recipient":{"user_id":"u1"}}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNotificationHandler_GetByID_NotFound(t *testing.T) {
	svc, store := newTestService()
	r := newRouter(svc, store)

	req := httptest.NewRequest(http.MethodGet, "/notifications/does-not-exist", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNotificationHandler_List(t *testing.T) {
	svc, store := newTestService()
	r := newRouter(svc, store)

	body := `{"request_id":"` + uuid.New().String() + `","client_id":"` + uuid.New().String() + `","channel":["email"],"recipient":{"user_id":"u1"},"content":{"subject":"hi"}}`
	postReq := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	postRec := httptest.NewRecorder()
	r.ServeHTTP(postRec, postReq)
	if postRec.Code != http.StatusAccepted {
		t.Fatalf("seed submit failed: %d %s", postRec.Code, postRec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/notifications?channel=email&limit=10", nil)
	listRec := httptest.NewRecorder()
	r.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listRec.Code)
	}
	var notifications []domain.Notification
	if err := json.Unmarshal(listRec.Body.Bytes(), &notifications); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
}
