package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/pipeline/internal/domain"
)

type pgStatusOutboxRepository struct {
	pool *pgxpool.Pool
}

func NewPgStatusOutboxRepository(pool *pgxpool.Pool) StatusOutboxRepository {
	return &pgStatusOutboxRepository{pool: pool}
}

func (r *pgStatusOutboxRepository) ClaimPending(ctx context.Context, workerID string, limit int, staleAfter time.Duration) ([]*domain.StatusOutboxEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `
		SELECT id, notification_id, target_status, message, processed, claimed_by, claimed_at, created_at, updated_at
		FROM status_outbox
		WHERE processed = FALSE
		  AND (claimed_at IS NULL OR claimed_at < $1)
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		time.Now().UTC().Add(-staleAfter), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select claimable status-outbox rows: %w", err)
	}
	entries, err := scanStatusOutboxEntries(rows)
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
		e.ClaimedBy = &workerID
		e.ClaimedAt = &now
	}
	if _, err := tx.Exec(ctx, `
		UPDATE status_outbox SET claimed_by = $1, claimed_at = $2, updated_at = $2 WHERE id = ANY($3)`,
		workerID, now, ids,
	); err != nil {
		return nil, fmt.Errorf("stamp claim: %w", err)
	}
	return entries, tx.Commit(ctx)
}

func (r *pgStatusOutboxRepository) MarkProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE status_outbox SET processed = TRUE, updated_at = now() WHERE id = ANY($1)`, ids)
	return err
}

func (r *pgStatusOutboxRepository) DeleteProcessedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM status_outbox WHERE processed = TRUE AND updated_at < $1`,
		time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanStatusOutboxEntries(rows pgx.Rows) ([]*domain.StatusOutboxEntry, error) {
	var result []*domain.StatusOutboxEntry
	for rows.Next() {
		var e domain.StatusOutboxEntry
		if err := rows.Scan(&e.ID, &e.NotificationID, &e.TargetStatus, &e.Message, &e.Processed, &e.ClaimedBy, &e.ClaimedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
