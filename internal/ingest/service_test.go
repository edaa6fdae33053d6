package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/ingest"
	"github.com/notifyrelay/pipeline/internal/repository"
)

func newService() (*ingest.Service, *repository.MockStore) {
	store := repository.NewMockStore()
	reg := channel.NewRegistry()
	noop := channel.ProviderFunc(func(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error) {
		return "provider-msg-id", nil
	})
	reg.Register("email", channel.DefaultTopic("email"), noop)
	reg.Register("sms", channel.DefaultTopic("sms"), noop)
	return ingest.NewService(store, reg, zap.NewNop()), store
}

func validSubmitRequest() domain.SubmitRequest {
	return domain.SubmitRequest{
		RequestID: uuid.New().String(),
		ClientID:  uuid.New().String(),
		Channel:   []string{"email"},
		Recipient: map[string]any{"user_id": "u-1"},
		Content:   map[string]any{"subject": "hi"},
	}
}

func TestService_Submit_CreatesOneNotificationPerChannel(t *testing.T) {
	svc, store := newService()
	req := validSubmitRequest()
	req.Channel = []string{"email", "sms"}

	notifications, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
	for _, n := range notifications {
		if n.Status != domain.StatusPending {
			t.Errorf("expected status pending, got %s", n.Status)
		}
		if _, err := store.Notifications.GetByID(context.Background(), n.ID); err != nil {
			t.Errorf("expected notification %s to be persisted: %v", n.ID, err)
		}
	}
}

func TestService_Submit_UnknownChannel(t *testing.T) {
	svc, _ := newService()
	req := validSubmitRequest()
	req.Channel = []string{"carrier-pigeon"}

	if _, err := svc.Submit(context.Background(), req); err == nil {
		t.Fatal("expected an error for an unregistered channel")
	}
}

func TestService_Submit_InvalidRequest(t *testing.T) {
	svc, _ := newService()
	req := validSubmitRequest()
	req.RequestID = "not-a-uuid"

	if _, err := svc.Submit(context.Background(), req); err != domain.ErrInvalidRequestID {
		t.Fatalf("expected ErrInvalidRequestID, got %v", err)
	}
}

func TestService_Submit_DuplicateRequestIDConflicts(t *testing.T) {
	svc, _ := newService()
	req := validSubmitRequest()

	if _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("first submit: unexpected error: %v", err)
	}
	if _, err := svc.Submit(context.Background(), req); err == nil {
		t.Fatal("expected second submit with the same request_id/channel to conflict")
	}
}

func TestService_Submit_FutureScheduleRoutesToDelayedTopic(t *testing.T) {
	svc, store := newService()
	req := validSubmitRequest()
	future := time.Now().Add(time.Hour)
	req.ScheduledAt = &future

	notifications, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outboxed := false
	for _, e := range store.Outbox.ListForTest() {
		if e.NotificationID == notifications[0].ID {
			outboxed = true
			if e.Topic != "delayed_notification" {
				t.Errorf("expected delayed_notification topic, got %s", e.Topic)
			}
		}
	}
	if !outboxed {
		t.Fatal("expected an outbox row for the scheduled notification")
	}
}

func TestService_SubmitBatch_FansOutAcrossRecipients(t *testing.T) {
	svc, _ := newService()
	req := domain.BatchSubmitRequest{
		ClientID: uuid.New().String(),
		Channel:  []string{"email"},
		Recipients: []domain.BatchRecipient{
			{RequestID: uuid.New().String(), Recipient: map[string]any{"user_id": "u-1"}},
			{RequestID: uuid.New().String(), Recipient: map[string]any{"user_id": "u-2"}},
		},
		Content: map[string]any{"subject": "hi"},
	}

	notifications, err := svc.SubmitBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
}

func TestService_SubmitBatch_TooLarge(t *testing.T) {
	svc, _ := newService()
	recipients := make([]domain.BatchRecipient, domain.MaxBatchSize+1)
	for i := range recipients {
		recipients[i] = domain.BatchRecipient{RequestID: uuid.New().String(), Recipient: map[string]any{"user_id": "u"}}
	}
	req := domain.BatchSubmitRequest{
		ClientID:   uuid.New().String(),
		Channel:    []string{"email"},
		Recipients: recipients,
		Content:    map[string]any{"subject": "hi"},
	}

	if _, err := svc.SubmitBatch(context.Background(), req); err != domain.ErrBatchTooLarge {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
}
