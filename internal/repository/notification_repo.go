package repository

import (
	"context"
	"time"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// NotificationRepository covers all read/update operations on the
// notifications table that do not require a cross-table transaction.
// Cross-table writes (ingest's notification+outbox insert, recovery's
// ghost-delivery claim, admin retry) live on Store instead.
type NotificationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, status, channelTag string, limit int) ([]*domain.Notification, error)

	// UpdateStatusInformational is the publisher's best-effort
	// pending->processing transition after a successful outbox publish.
	UpdateStatusInformational(ctx context.Context, id string, status domain.Status) error

	// ApplyTerminalStatus is used by the status consumer: sets the
	// notification's status to delivered/failed and records the message.
	ApplyTerminalStatus(ctx context.Context, id string, status domain.Status, message string) error

	// ScheduleRetry advances retry_count and last_error for a notification
	// that is being redelivered via the delayed topic.
	ScheduleRetry(ctx context.Context, id string, retryCount int, lastError string) error

	FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Notification, error)
	FindOrphanedPending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Notification, error)
}
