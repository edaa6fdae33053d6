package domain

import "time"

// AlertKind categorises an open incident raised by the recovery cron.
type AlertKind string

const (
	AlertGhostDelivery    AlertKind = "ghost_delivery"
	AlertStuckProcessing  AlertKind = "stuck_processing"
	AlertOrphanedPending  AlertKind = "orphaned_pending"
	AlertRecoveryError    AlertKind = "recovery_error"
)

// Alert records an incident that requires admin attention. Unique on
// (NotificationID, Kind): a repeated detection updates Timestamps rather
// than inserting a duplicate row.
type Alert struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	Kind           AlertKind `json:"kind"`
	Reason         string    `json:"reason"`
	CacheStatus    string    `json:"cache_status,omitempty"`
	StoreStatus    string    `json:"store_status,omitempty"`
	RetryCount     int       `json:"retry_count"`
	Resolved       bool      `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
