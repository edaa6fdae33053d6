package repository

import (
	"context"
	"time"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// StatusOutboxRepository is the publisher's view of recovery-originated
// status transitions: claim unprocessed rows, publish them to the status
// topic, mark them processed.
type StatusOutboxRepository interface {
	ClaimPending(ctx context.Context, workerID string, limit int, staleAfter time.Duration) ([]*domain.StatusOutboxEntry, error)
	MarkProcessed(ctx context.Context, ids []string) error
	DeleteProcessedOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}
