package domain

import "time"

// OutboxStatus tracks the lifecycle of a transactional outbox row.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxPublished  OutboxStatus = "published"
)

// OutboxEntry is the transactional bridge from the store to the bus: it is
// written in the same transaction as the notification it accompanies and
// later drained onto the bus by the outbox publisher.
type OutboxEntry struct {
	ID             string       `json:"id"`
	NotificationID string       `json:"notification_id"`
	Topic          string       `json:"topic"`
	Payload        []byte       `json:"-"`
	Status         OutboxStatus `json:"status"`
	ClaimedBy      *string      `json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time   `json:"claimed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// StatusOutboxEntry is the transactional bridge recovery uses to push a
// terminal status onto the status topic without talking to the bus inside
// the recovery transaction itself.
type StatusOutboxEntry struct {
	ID             string     `json:"id"`
	NotificationID string     `json:"notification_id"`
	TargetStatus   Status     `json:"target_status"`
	Message        string     `json:"message,omitempty"`
	Processed      bool       `json:"processed"`
	ClaimedBy      *string    `json:"claimed_by,omitempty"`
	ClaimedAt      *time.Time `json:"claimed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
