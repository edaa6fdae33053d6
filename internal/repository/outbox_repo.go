package repository

import (
	"context"
	"time"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// OutboxRepository is the publisher's view of the outbox table: claim a
// batch atomically, then mark the claimed rows published once they have
// actually been written to the bus.
type OutboxRepository interface {
	// ClaimPending selects up to limit rows that are pending, or processing
	// and claimed longer ago than staleAfter, and atomically marks them
	// processing/claimed by workerID. FIFO by creation instant.
	ClaimPending(ctx context.Context, workerID string, limit int, staleAfter time.Duration) ([]*domain.OutboxEntry, error)

	MarkPublished(ctx context.Context, ids []string) error

	// DeletePublishedOlderThan implements the cleanup cron's contract for
	// the outbox table (out of core scope, but the core owns the query).
	DeletePublishedOlderThan(ctx context.Context, retention time.Duration) (int64, error)

	// CountPending reports the current backlog: every row pending or in
	// processing (claimed, whether stale or not, but not yet published),
	// used by the queue-depth metrics endpoint.
	CountPending(ctx context.Context) (int64, error)
}
