package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/api/handler"
	"github.com/notifyrelay/pipeline/internal/domain"
)

func TestBatchHandler_SubmitBatch(t *testing.T) {
	svc, store := newTestService()
	bh := handler.NewBatchHandler(svc, store.Batches, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/notifications/batch", bh.SubmitBatch)

	body := `{"client_id":"` + uuid.New().String() + `","channel":["email"],"recipients":[{"request_id":"` +
		uuid.New().String() + `","recipient":{"user_id":"u1"}},{"request_id":"` + uuid.New().String() +
		`","recipient":{"user_id":"u2"}}],"content":{"subject":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/notifications/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var notifications []domain.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &notifications); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	if notifications[0].BatchID == nil || *notifications[0].BatchID != *notifications[1].BatchID {
		t.Fatalf("expected both notifications to share a batch ID, got %+v and %+v", notifications[0].BatchID, notifications[1].BatchID)
	}
}

func TestBatchHandler_SubmitBatch_Empty(t *testing.T) {
	svc, store := newTestService()
	bh := handler.NewBatchHandler(svc, store.Batches, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/notifications/batch", bh.SubmitBatch)

	body := `{"client_id":"` + uuid.New().String() + `","channel":["email"],"recipients":[],"content":{"subject":"hi"}}`
	req := httptest.NewRequest(http.MethodPost, "/notifications/batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBatchHandler_GetBatch(t *testing.T) {
	svc, store := newTestService()
	bh := handler.NewBatchHandler(svc, store.Batches, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/notifications/batch", bh.SubmitBatch)
	r.Get("/batches/{id}", bh.GetBatch)

	body := `{"client_id":"` + uuid.New().String() + `","channel":["email"],"recipients":[{"request_id":"` +
		uuid.New().String() + `","recipient":{"user_id":"u1"}}],"content":{"subject":"hi"}}`
	submitReq := httptest.NewRequest(http.MethodPost, "/notifications/batch", strings.NewReader(body))
	submitRec := httptest.NewRecorder()
	r.ServeHTTP(submitRec, submitReq)

	var notifications []domain.Notification
	if err := json.Unmarshal(submitRec.Body.Bytes(), &notifications); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}
	batchID := *notifications[0].BatchID

	req := httptest.NewRequest(http.MethodGet, "/batches/"+batchID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Batch         domain.Batch         `json:"batch"`
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode get-batch response: %v", err)
	}
	if resp.Batch.ID != batchID {
		t.Fatalf("expected batch id %s, got %s", batchID, resp.Batch.ID)
	}
	if resp.Batch.Total != 1 {
		t.Fatalf("expected total 1, got %d", resp.Batch.Total)
	}
	if len(resp.Notifications) != 1 {
		t.Fatalf("expected 1 notification in batch, got %d", len(resp.Notifications))
	}
}

func TestBatchHandler_GetBatch_NotFound(t *testing.T) {
	svc, store := newTestService()
	bh := handler.NewBatchHandler(svc, store.Batches, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/batches/{id}", bh.GetBatch)

	req := httptest.NewRequest(http.MethodGet, "/batches/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
