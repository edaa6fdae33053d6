package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/repository"
)

func seedNotification(store *repository.MockStore, status domain.Status) *domain.Notification {
	n := &domain.Notification{
		ID:        "notif-1",
		RequestID: "req-1",
		ClientID:  "client-1",
		Channel:   "email",
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	store.Notifications.Put(n)
	return n
}

func TestMockStore_SubmitNotifications_ConflictsOnInFlightDuplicate(t *testing.T) {
	store := repository.NewMockStore()
	ctx := context.Background()

	draft := repository.NotificationDraft{
		Notification: &domain.Notification{
			ID: "n1", RequestID: "req-1", Channel: "email", Status: domain.StatusPending,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		},
		OutboxTopic: "email_notification",
	}
	if err := store.SubmitNotifications(ctx, []repository.NotificationDraft{draft}); err != nil {
		t.Fatalf("first insert: unexpected error: %v", err)
	}

	dup := draft
	dup.Notification = &domain.Notification{
		ID: "n2", RequestID: "req-1", Channel: "email", Status: domain.StatusPending,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	if err := store.SubmitNotifications(ctx, []repository.NotificationDraft{dup}); err != domain.ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMockStore_SubmitNotifications_AllowsRetryAfterFailure(t *testing.T) {
	store := repository.NewMockStore()
	ctx := context.Background()
	seedNotification(store, domain.StatusFailed)

	draft := repository.NotificationDraft{
		Notification: &domain.Notification{
			ID: "n2", RequestID: "req-1", Channel: "email", Status: domain.StatusPending,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		},
		OutboxTopic: "email_notification",
	}
	if err := store.SubmitNotifications(ctx, []repository.NotificationDraft{draft}); err != nil {
		t.Fatalf("expected a failed row to not block a fresh submission, got %v", err)
	}
}

func TestMockStore_ClaimGhostOrTerminalDelivery(t *testing.T) {
	store := repository.NewMockStore()
	ctx := context.Background()
	n := seedNotification(store, domain.StatusProcessing)

	applied, err := store.ClaimGhostOrTerminalDelivery(ctx, n.ID, domain.StatusDelivered, "reconciled")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected the CAS to apply for a processing row")
	}

	got, _ := store.Notifications.GetByID(ctx, n.ID)
	if got.Status != domain.StatusDelivered {
		t.Fatalf("expected status delivered, got %s", got.Status)
	}
	if len(store.StatusOutbox.ListForTest()) != 1 {
		t.Fatalf("expected one status-outbox row to be raised")
	}
}

func TestMockStore_ClaimGhostOrTerminalDelivery_NoOpWhenNotProcessing(t *testing.T) {
	store := repository.NewMockStore()
	ctx := context.Background()
	n := seedNotification(store, domain.StatusDelivered)

	applied, err := store.ClaimGhostOrTerminalDelivery(ctx, n.ID, domain.StatusFailed, "too late")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected no-op for a notification no longer processing")
	}
}

func TestMockStore_AdminRetry_RequiresFailedStatus(t *testing.T) {
	store := repository.NewMockStore()
	ctx := context.Background()
	n := seedNotification(store, domain.StatusPending)

	if err := store.AdminRetry(ctx, n.ID, "email_notification", []byte("{}")); err != domain.ErrNotRetryable {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}
}

func TestMockStore_AdminRetry_ResetsFailedToPending(t *testing.T) {
	store := repository.NewMockStore()
	ctx := context.Background()
	n := seedNotification(store, domain.StatusFailed)

	if err := store.AdminRetry(ctx, n.ID, "email_notification", []byte("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := store.Notifications.GetByID(ctx, n.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", got.Status)
	}

	var pending int
	for _, e := range store.Outbox.ListForTest() {
		if e.NotificationID == n.ID {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("expected exactly one fresh outbox row, got %d", pending)
	}
}

func TestMockStore_HealthCheck(t *testing.T) {
	store := repository.NewMockStore()
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected nil error by default, got %v", err)
	}

	store.HealthErr = context.DeadlineExceeded
	if err := store.HealthCheck(context.Background()); err != context.DeadlineExceeded {
		t.Fatalf("expected the configured error, got %v", err)
	}
}
