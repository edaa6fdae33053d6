package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/pipeline/internal/domain"
)

type pgAlertRepository struct {
	pool *pgxpool.Pool
}

func NewPgAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &pgAlertRepository{pool: pool}
}

func (r *pgAlertRepository) Raise(ctx context.Context, a *domain.Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alerts (id, notification_id, kind, reason, cache_status, store_status, retry_count, resolved, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8,$8)
		ON CONFLICT (notification_id, kind) DO UPDATE SET
			reason = EXCLUDED.reason,
			cache_status = EXCLUDED.cache_status,
			store_status = EXCLUDED.store_status,
			retry_count = EXCLUDED.retry_count,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.NotificationID, a.Kind, a.Reason, a.CacheStatus, a.StoreStatus, a.RetryCount, now,
	)
	return err
}

func (r *pgAlertRepository) DeleteResolvedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM alerts WHERE resolved = TRUE AND resolved_at < $1`,
		time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
