package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/pipeline/internal/domain"
)

type pgOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPgOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &pgOutboxRepository{pool: pool}
}

// ClaimPending uses FOR UPDATE SKIP LOCKED to make the per-row selection
// atomic across concurrent publisher workers, so no two workers can ever
// claim the same row — the Postgres equivalent of a compare-and-set claim.
func (r *pgOutboxRepository) ClaimPending(ctx context.Context, workerID string, limit int, staleAfter time.Duration) ([]*domain.OutboxEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `
		SELECT id, notification_id, topic, payload, status, claimed_by, claimed_at, created_at, updated_at
		FROM outbox
		WHERE status = 'pending'
		   OR (status = 'processing' AND claimed_at < $1)
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		time.Now().UTC().Add(-staleAfter), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select claimable outbox rows: %w", err)
	}

	entries, err := scanOutboxEntries(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]string, len(entries))
	now := time.Now().UTC()
	for i, e := range entries {
		ids[i] = e.ID
		e.Status = domain.OutboxProcessing
		e.ClaimedBy = &workerID
		e.ClaimedAt = &now
	}

	if _, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'processing', claimed_by = $1, claimed_at = $2, updated_at = $2
		WHERE id = ANY($3)`, workerID, now, ids,
	); err != nil {
		return nil, fmt.Errorf("stamp claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return entries, nil
}

func (r *pgOutboxRepository) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE outbox SET status = 'published', updated_at = now() WHERE id = ANY($1)`, ids)
	return err
}

func (r *pgOutboxRepository) DeletePublishedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM outbox WHERE status = 'published' AND updated_at < $1`,
		time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgOutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE status IN ('pending', 'processing')`).Scan(&count)
	return count, err
}

func scanOutboxEntries(rows pgx.Rows) ([]*domain.OutboxEntry, error) {
	var result []*domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		if err := rows.Scan(&e.ID, &e.NotificationID, &e.Topic, &e.Payload, &e.Status, &e.ClaimedBy, &e.ClaimedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
