package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmitRequest is the inbound payload for POST /notifications.
// The HTTP request validator is an external collaborator (out of core
// scope); Validate here only enforces the shape the core itself depends on.
type SubmitRequest struct {
	RequestID   string            `json:"request_id"`
	ClientID    string            `json:"client_id"`
	Channel     []string          `json:"channel"`
	Recipient   map[string]any    `json:"recipient"`
	Content     map[string]any    `json:"content"`
	Variables   map[string]string `json:"variables,omitempty"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	Provider    any               `json:"provider,omitempty"`
}

func (r *SubmitRequest) Validate() error {
	if _, err := uuid.Parse(r.RequestID); err != nil {
		return ErrInvalidRequestID
	}
	if _, err := uuid.Parse(r.ClientID); err != nil {
		return ErrInvalidClientID
	}
	if len(r.Channel) == 0 {
		return ErrNoChannels
	}
	if r.Recipient == nil || r.Recipient["user_id"] == nil {
		return ErrInvalidRecipient
	}
	return nil
}

// BatchRecipient is one entry of a batch submission: it carries its own
// request_id, distinct from the rest of the batch's shared fields.
type BatchRecipient struct {
	RequestID string         `json:"request_id"`
	Recipient map[string]any `json:"recipient"`
}

// BatchSubmitRequest fans out to one notification per (recipient, channel).
type BatchSubmitRequest struct {
	ClientID    string            `json:"client_id"`
	Channel     []string          `json:"channel"`
	Recipients  []BatchRecipient  `json:"recipients"`
	Content     map[string]any    `json:"content"`
	Variables   map[string]string `json:"variables,omitempty"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
	ScheduledAt *time.Time        `json:"scheduled_at,omitempty"`
	Provider    any               `json:"provider,omitempty"`
}

const MaxBatchSize = 1000

func (r *BatchSubmitRequest) Validate() error {
	if _, err := uuid.Parse(r.ClientID); err != nil {
		return ErrInvalidClientID
	}
	if len(r.Channel) == 0 {
		return ErrNoChannels
	}
	if len(r.Recipients) == 0 {
		return ErrBatchEmpty
	}
	if len(r.Recipients) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	for _, rec := range r.Recipients {
		if _, err := uuid.Parse(rec.RequestID); err != nil {
			return ErrInvalidRequestID
		}
		if rec.Recipient == nil || rec.Recipient["user_id"] == nil {
			return ErrInvalidRecipient
		}
	}
	return nil
}

// ChannelMessage is the JSON body published to a channel's bus topic and
// to the delayed topic (embedded via DelayedMessage).
type ChannelMessage struct {
	NotificationID string            `json:"notification_id"`
	RequestID      string            `json:"request_id"`
	ClientID       string            `json:"client_id"`
	Channel        string            `json:"channel"`
	Recipient      map[string]any    `json:"recipient"`
	Content        map[string]any    `json:"content"`
	Variables      map[string]string `json:"variables,omitempty"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
	RetryCount     int               `json:"retry_count"`
	CreatedAt      time.Time         `json:"created_at"`
	Provider       string            `json:"provider,omitempty"`
}

// DelayedMessage is a ChannelMessage plus delayed-pipeline bookkeeping.
type DelayedMessage struct {
	ChannelMessage
	TargetTopic   string `json:"target_topic"`
	ScheduledAt   int64  `json:"scheduled_at"`
	PollerRetries int    `json:"poller_retries,omitempty"`
}

// StatusMessage is the JSON body published to the status topic.
type StatusMessage struct {
	NotificationID string    `json:"notification_id"`
	RequestID      string    `json:"request_id"`
	ClientID       string    `json:"client_id"`
	Channel        string    `json:"channel"`
	Status         Status    `json:"status"`
	Message        string    `json:"message,omitempty"`
	RetryCount     int       `json:"retry_count"`
	WebhookURL     string    `json:"webhook_url,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// WebhookPayload is the body POSTed to the client's webhook URL.
type WebhookPayload struct {
	RequestID      string `json:"request_id"`
	NotificationID string `json:"notification_id"`
	Status         Status `json:"status"`
	Channel        string `json:"channel"`
	Message        string `json:"message,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}
