package repository

import (
	"context"
	"time"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// AlertRepository raises and resolves incidents. Raise is an upsert on the
// (notification, kind) unique constraint: a repeated detection refreshes
// the existing row's timestamp instead of duplicating it.
type AlertRepository interface {
	Raise(ctx context.Context, a *domain.Alert) error
	DeleteResolvedOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}
