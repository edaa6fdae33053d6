package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/notifyrelay/pipeline/internal/api/handler"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/repository"
)

func TestMetricsHandler_GetMetrics(t *testing.T) {
	store := repository.NewMockStore()
	store.Outbox.Put(&domain.OutboxEntry{ID: "o1", NotificationID: "n1", Topic: "email_notification", Status: domain.OutboxPending})
	store.Outbox.Put(&domain.OutboxEntry{ID: "o2", NotificationID: "n2", Topic: "email_notification", Status: domain.OutboxPublished})

	mh := handler.NewMetricsHandler(store.Outbox)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	rec := httptest.NewRecorder()
	mh.GetMetrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	depth, ok := body["outbox_pending_depth"].(float64)
	if !ok || depth != 1 {
		t.Fatalf("expected outbox_pending_depth=1, got %v", body["outbox_pending_depth"])
	}

	_, err := store.Outbox.CountPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
