package handler_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/notifyrelay/pipeline/internal/api/handler"
	"github.com/notifyrelay/pipeline/internal/repository"
)

func TestHealthHandler_DegradedWhenStoreUnreachable(t *testing.T) {
	store := repository.NewMockStore()
	store.HealthErr = errors.New("connection refused")
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})

	hh := handler.NewHealthHandler(store, rdb)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	hh.Health(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}
