package domain

import "time"

// Status tracks the lifecycle of a notification. Terminal states are
// Delivered and Failed; every other state is expected to progress.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// Notification is the canonical record of one delivery attempt on one
// channel. Channel is an open string tag — the channel registry, not this
// type, decides which tags are valid.
type Notification struct {
	ID             string            `json:"id"`
	RequestID      string            `json:"request_id"`
	ClientID       string            `json:"client_id"`
	BatchID        *string           `json:"batch_id,omitempty"`
	Channel        string            `json:"channel"`
	Recipient      map[string]any    `json:"recipient"`
	Content        map[string]any    `json:"content"`
	Variables      map[string]string `json:"variables,omitempty"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
	Provider       string            `json:"provider,omitempty"`
	Status         Status            `json:"status"`
	ScheduledAt    *time.Time        `json:"scheduled_at,omitempty"`
	RetryCount     int               `json:"retry_count"`
	LastError      string            `json:"last_error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// IsTerminal reports whether the notification has reached an end state.
func (n *Notification) IsTerminal() bool {
	return n.Status == StatusDelivered || n.Status == StatusFailed
}

// Batch is a lightweight convenience projection over the notifications
// submitted together via a single batch request. It has no bearing on the
// delivery guarantee, which is tracked per notification; it exists purely
// for the batch read-back endpoint.
type Batch struct {
	ID        string    `json:"id"`
	Total     int       `json:"total"`
	Pending   int       `json:"pending"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
