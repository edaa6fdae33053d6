package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/pipeline/internal/domain"
)

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

func NewPgNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

const notificationColumns = `
	id, request_id, client_id, batch_id, channel, recipient, content, variables,
	webhook_url, provider, status, scheduled_at, retry_count, last_error,
	created_at, updated_at`

func (r *pgNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) List(ctx context.Context, status, channelTag string, limit int) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE 1=1`
	var args []any
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if channelTag != "" {
		args = append(args, channelTag)
		query += fmt.Sprintf(" AND channel = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *pgNotificationRepository) UpdateStatusInformational(ctx context.Context, id string, status domain.Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

func (r *pgNotificationRepository) ApplyTerminalStatus(ctx context.Context, id string, status domain.Status, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3`, status, message, id)
	return err
}

func (r *pgNotificationRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET retry_count = $1, last_error = $2, updated_at = now()
		WHERE id = $3`, retryCount, lastError, id)
	return err
}

func (r *pgNotificationRepository) FindStuckProcessing(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'processing' AND updated_at < $1
		LIMIT $2`, time.Now().UTC().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("find stuck processing: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *pgNotificationRepository) FindOrphanedPending(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE status = 'pending' AND updated_at < $1
		LIMIT $2`, time.Now().UTC().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("find orphaned pending: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ---- helpers ----

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var recipient, content, variables []byte
	err := row.Scan(
		&n.ID, &n.RequestID, &n.ClientID, &n.BatchID, &n.Channel, &recipient, &content, &variables,
		&n.WebhookURL, &n.Provider, &n.Status, &n.ScheduledAt, &n.RetryCount, &n.LastError,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recipient, &n.Recipient); err != nil {
		return nil, fmt.Errorf("decode recipient: %w", err)
	}
	if err := json.Unmarshal(content, &n.Content); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &n.Variables); err != nil {
			return nil, fmt.Errorf("decode variables: %w", err)
		}
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
