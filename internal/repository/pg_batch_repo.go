package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/pipeline/internal/domain"
)

type pgBatchRepository struct {
	pool *pgxpool.Pool
}

func NewPgBatchRepository(pool *pgxpool.Pool) BatchRepository {
	return &pgBatchRepository{pool: pool}
}

func (r *pgBatchRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, []*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, total, created_at, updated_at FROM batches WHERE id = $1`, id)

	var b domain.Batch
	if err := row.Scan(&b.ID, &b.Total, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get batch: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications WHERE batch_id = $1 ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get batch notifications: %w", err)
	}
	defer rows.Close()

	notifications, err := scanNotifications(rows)
	if err != nil {
		return nil, nil, err
	}

	for _, n := range notifications {
		switch n.Status {
		case domain.StatusDelivered:
			b.Delivered++
		case domain.StatusFailed:
			b.Failed++
		default:
			b.Pending++
		}
	}
	return &b, notifications, nil
}
