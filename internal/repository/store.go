package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// NotificationDraft is one notification-plus-outbox pair to be inserted
// atomically by Store.SubmitNotifications.
type NotificationDraft struct {
	Notification *domain.Notification
	OutboxTopic  string
	OutboxPayload []byte
}

// TxStore is the cross-table transactional surface that ingest, recovery,
// and the admin retry handler depend on. Both *Store and *MockStore satisfy
// it, so those packages can be tested without a database.
type TxStore interface {
	SubmitNotifications(ctx context.Context, drafts []NotificationDraft) error
	SubmitBatch(ctx context.Context, batchID string, drafts []NotificationDraft) error
	ClaimGhostOrTerminalDelivery(ctx context.Context, notificationID string, target domain.Status, message string) (bool, error)
	AdminRetry(ctx context.Context, notificationID, topic string, payload []byte) error
	HealthCheck(ctx context.Context) error
}

// Store owns the transactional operations that span more than one table:
// the ingest gate's notification+outbox insert, the recovery cron's
// ghost-delivery reconciliation, and the admin retry contract. Every
// other operation is served by the single-table repositories.
type Store struct {
	Pool          *pgxpool.Pool
	Notifications NotificationRepository
	Outbox        OutboxRepository
	StatusOutbox  StatusOutboxRepository
	Alerts        AlertRepository
	Batches       BatchRepository
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Pool:          pool,
		Notifications: NewPgNotificationRepository(pool),
		Outbox:        NewPgOutboxRepository(pool),
		StatusOutbox:  NewPgStatusOutboxRepository(pool),
		Alerts:        NewPgAlertRepository(pool),
		Batches:       NewPgBatchRepository(pool),
	}
}

// SubmitNotifications inserts every draft's notification and outbox row in
// a single transaction: either both collections advance for every draft, or
// neither does. A uniqueness violation on (request_id, channel) is
// translated to domain.ErrConflict.
func (s *Store) SubmitNotifications(ctx context.Context, drafts []NotificationDraft) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertDraftsTx(ctx, tx, drafts); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	return nil
}

// SubmitBatch is SubmitNotifications plus a batches bookkeeping row,
// inserted in the same transaction: the batch read-back endpoint can only
// ever see a batch whose notifications were durably persisted alongside
// it, and vice versa. Every draft's notification must already have
// BatchID set to batchID.
func (s *Store) SubmitBatch(ctx context.Context, batchID string, drafts []NotificationDraft) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO batches (id, total, created_at, updated_at) VALUES ($1,$2,$3,$3)`,
		batchID, len(drafts), now,
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	if err := insertDraftsTx(ctx, tx, drafts); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	return nil
}

// insertDraftsTx inserts every draft's notification and outbox row within
// an already-open transaction, shared by SubmitNotifications and
// SubmitBatch.
func insertDraftsTx(ctx context.Context, tx pgx.Tx, drafts []NotificationDraft) error {
	for _, d := range drafts {
		n := d.Notification
		_, err := tx.Exec(ctx, `
			INSERT INTO notifications
				(id, request_id, client_id, batch_id, channel, recipient, content, variables,
				 webhook_url, provider, status, scheduled_at, retry_count, last_error,
				 created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			n.ID, n.RequestID, n.ClientID, n.BatchID, n.Channel, jsonOf(n.Recipient), jsonOf(n.Content), jsonOf(n.Variables),
			n.WebhookURL, n.Provider, n.Status, n.ScheduledAt, n.RetryCount, n.LastError,
			n.CreatedAt, n.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrConflict
			}
			return fmt.Errorf("insert notification: %w", err)
		}

		outboxID := uuid.New().String()
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			INSERT INTO outbox (id, notification_id, topic, payload, status, created_at, updated_at)
			VALUES ($1,$2,$3,$4,'pending',$5,$5)`,
			outboxID, n.ID, d.OutboxTopic, d.OutboxPayload, now,
		); err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// ClaimGhostOrTerminalDelivery implements the recovery cron's Pass 1
// auto-heal branches: inside one transaction, it compare-and-set the
// notification from processing to the target terminal status, and inserts
// a matching status-outbox row so the publisher drains it onto the status
// topic. Returns (false, nil) if the CAS did not apply (another writer
// already moved the row), which the caller treats as a no-op, not an error.
func (s *Store) ClaimGhostOrTerminalDelivery(ctx context.Context, notificationID string, target domain.Status, message string) (bool, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE notifications SET status = $1, last_error = $2, updated_at = now()
		WHERE id = $3 AND status = 'processing'`,
		target, message, notificationID,
	)
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO status_outbox (id, notification_id, target_status, message, processed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,FALSE,now(),now())`,
		uuid.New().String(), notificationID, target, message,
	); err != nil {
		return false, fmt.Errorf("insert status-outbox entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	return true, nil
}

// AdminRetry resets a failed notification to pending and inserts a fresh
// outbox row for the same channel topic. The partial unique index excludes
// failed rows, so this never collides with the uniqueness constraint.
func (s *Store) AdminRetry(ctx context.Context, notificationID, topic string, payload []byte) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE notifications SET status = 'pending', updated_at = now()
		WHERE id = $1 AND status = 'failed'`, notificationID)
	if err != nil {
		return fmt.Errorf("reset notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotRetryable
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, notification_id, topic, payload, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,'pending',$5,$5)`,
		uuid.New().String(), notificationID, topic, payload, now,
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
	return nil
}

// HealthCheck confirms the store is reachable — used by the recovery
// cron's prerequisite check before each tick.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func jsonOf(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
