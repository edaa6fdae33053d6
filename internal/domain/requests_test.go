package domain_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/notifyrelay/pipeline/internal/domain"
)

func validSubmitRequest() domain.SubmitRequest {
	return domain.SubmitRequest{
		RequestID: uuid.New().String(),
		ClientID:  uuid.New().String(),
		Channel:   []string{"email"},
		Recipient: map[string]any{"user_id": "u-1"},
		Content:   map[string]any{"subject": "hi"},
	}
}

func TestSubmitRequest_Validate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		r := validSubmitRequest()
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("invalid request_id", func(t *testing.T) {
		r := validSubmitRequest()
		r.RequestID = "not-a-uuid"
		if err := r.Validate(); err != domain.ErrInvalidRequestID {
			t.Fatalf("expected ErrInvalidRequestID, got %v", err)
		}
	})

	t.Run("invalid client_id", func(t *testing.T) {
		r := validSubmitRequest()
		r.ClientID = "not-a-uuid"
		if err := r.Validate(); err != domain.ErrInvalidClientID {
			t.Fatalf("expected ErrInvalidClientID, got %v", err)
		}
	})

	t.Run("no channels", func(t *testing.T) {
		r := validSubmitRequest()
		r.Channel = nil
		if err := r.Validate(); err != domain.ErrNoChannels {
			t.Fatalf("expected ErrNoChannels, got %v", err)
		}
	})

	t.Run("missing recipient user_id", func(t *testing.T) {
		r := validSubmitRequest()
		r.Recipient = map[string]any{"email": "a@b.com"}
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("nil recipient", func(t *testing.T) {
		r := validSubmitRequest()
		r.Recipient = nil
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})
}

func validBatchRequest() domain.BatchSubmitRequest {
	return domain.BatchSubmitRequest{
		ClientID: uuid.New().String(),
		Channel:  []string{"email"},
		Recipients: []domain.BatchRecipient{
			{RequestID: uuid.New().String(), Recipient: map[string]any{"user_id": "u-1"}},
		},
		Content: map[string]any{"subject": "hi"},
	}
}

func TestBatchSubmitRequest_Validate(t *testing.T) {
	t.Run("valid batch passes", func(t *testing.T) {
		r := validBatchRequest()
		if err := r.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty recipients", func(t *testing.T) {
		r := validBatchRequest()
		r.Recipients = nil
		if err := r.Validate(); err != domain.ErrBatchEmpty {
			t.Fatalf("expected ErrBatchEmpty, got %v", err)
		}
	})

	t.Run("too many recipients", func(t *testing.T) {
		r := validBatchRequest()
		recipients := make([]domain.BatchRecipient, domain.MaxBatchSize+1)
		for i := range recipients {
			recipients[i] = domain.BatchRecipient{RequestID: uuid.New().String(), Recipient: map[string]any{"user_id": "u"}}
		}
		r.Recipients = recipients
		if err := r.Validate(); err != domain.ErrBatchTooLarge {
			t.Fatalf("expected ErrBatchTooLarge, got %v", err)
		}
	})

	t.Run("recipient missing user_id", func(t *testing.T) {
		r := validBatchRequest()
		r.Recipients[0].Recipient = map[string]any{"email": "a@b.com"}
		if err := r.Validate(); err != domain.ErrInvalidRecipient {
			t.Fatalf("expected ErrInvalidRecipient, got %v", err)
		}
	})

	t.Run("recipient invalid request_id", func(t *testing.T) {
		r := validBatchRequest()
		r.Recipients[0].RequestID = "not-a-uuid"
		if err := r.Validate(); err != domain.ErrInvalidRequestID {
			t.Fatalf("expected ErrInvalidRequestID, got %v", err)
		}
	})
}

func TestNotification_IsTerminal(t *testing.T) {
	tests := []struct {
		status domain.Status
		want   bool
	}{
		{domain.StatusPending, false},
		{domain.StatusProcessing, false},
		{domain.StatusDelivered, true},
		{domain.StatusFailed, true},
	}
	for _, tc := range tests {
		n := domain.Notification{Status: tc.status}
		if got := n.IsTerminal(); got != tc.want {
			t.Errorf("status=%s: expected IsTerminal=%v, got %v", tc.status, tc.want, got)
		}
	}
}
