package repository

import (
	"context"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// BatchRepository serves the batch read-back endpoint. A batch itself is
// never written by this repository — it is created atomically alongside
// its notifications by Store.SubmitBatch — so this interface is read-only.
type BatchRepository interface {
	// GetBatch returns the batch row and every notification submitted
	// under it, ordered by creation instant. Pending/Delivered/Failed on
	// the returned Batch are computed live from the notifications rather
	// than maintained as running counters.
	GetBatch(ctx context.Context, id string) (*domain.Batch, []*domain.Notification, error)
}
