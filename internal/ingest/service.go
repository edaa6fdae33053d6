package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyrelay/pipeline/internal/bus"
	"github.com/notifyrelay/pipeline/internal/channel"
	"github.com/notifyrelay/pipeline/internal/domain"
	"github.com/notifyrelay/pipeline/internal/repository"
)

// Service is the ingest gate: it validates submissions, resolves one
// notification per (request_id, channel) pair, and persists the
// notification alongside its outbox row in a single transaction so a
// notification can never exist without a matching publish intent.
type Service struct {
	store    repository.TxStore
	registry *channel.Registry
	logger   *zap.Logger
}

func NewService(store repository.TxStore, registry *channel.Registry, logger *zap.Logger) *Service {
	return &Service{store: store, registry: registry, logger: logger}
}

// Submit fans a single request out to one notification per requested
// channel and persists all of them atomically.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) ([]*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	drafts, notifications, err := s.buildDrafts(req.RequestID, req.ClientID, nil, req.Channel,
		req.Recipient, req.Content, req.Variables, req.WebhookURL, req.ScheduledAt, req.Provider)
	if err != nil {
		return nil, err
	}

	if err := s.store.SubmitNotifications(ctx, drafts); err != nil {
		return nil, fmt.Errorf("submit notifications: %w", err)
	}
	return notifications, nil
}

// SubmitBatch fans every recipient out across every requested channel,
// capped at domain.MaxBatchSize recipients, and persists the full batch in
// one transaction alongside a batches row, so the batch read-back endpoint
// can resolve every notification submitted together.
func (s *Service) SubmitBatch(ctx context.Context, req domain.BatchSubmitRequest) ([]*domain.Notification, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	batchID := uuid.New().String()

	var allDrafts []repository.NotificationDraft
	var allNotifications []*domain.Notification
	for _, rec := range req.Recipients {
		drafts, notifications, err := s.buildDrafts(rec.RequestID, req.ClientID, &batchID, req.Channel,
			rec.Recipient, req.Content, req.Variables, req.WebhookURL, req.ScheduledAt, req.Provider)
		if err != nil {
			return nil, fmt.Errorf("recipient %s: %w", rec.RequestID, err)
		}
		allDrafts = append(allDrafts, drafts...)
		allNotifications = append(allNotifications, notifications...)
	}

	if err := s.store.SubmitBatch(ctx, batchID, allDrafts); err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}
	return allNotifications, nil
}

func (s *Service) buildDrafts(
	requestID, clientID string,
	batchID *string,
	channels []string,
	recipient, content map[string]any,
	variables map[string]string,
	webhookURL string,
	scheduledAt *time.Time,
	provider any,
) ([]repository.NotificationDraft, []*domain.Notification, error) {
	providerTag, _ := provider.(string)

	drafts := make([]repository.NotificationDraft, 0, len(channels))
	notifications := make([]*domain.Notification, 0, len(channels))
	now := time.Now().UTC()

	for _, tag := range channels {
		if _, ok := s.registry.Lookup(tag); !ok {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, tag)
		}

		n := &domain.Notification{
			ID:          uuid.New().String(),
			RequestID:   requestID,
			ClientID:    clientID,
			BatchID:     batchID,
			Channel:     tag,
			Recipient:   recipient,
			Content:     content,
			Variables:   variables,
			WebhookURL:  webhookURL,
			Provider:    providerTag,
			Status:      domain.StatusPending,
			ScheduledAt: scheduledAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		msg := domain.ChannelMessage{
			NotificationID: n.ID,
			RequestID:      n.RequestID,
			ClientID:       n.ClientID,
			Channel:        n.Channel,
			Recipient:      n.Recipient,
			Content:        n.Content,
			Variables:      n.Variables,
			WebhookURL:     n.WebhookURL,
			RetryCount:     0,
			CreatedAt:      now,
			Provider:       providerTag,
		}

		topic, payload, err := s.routeOutbound(tag, msg, scheduledAt)
		if err != nil {
			return nil, nil, err
		}

		drafts = append(drafts, repository.NotificationDraft{
			Notification:  n,
			OutboxTopic:   topic,
			OutboxPayload: payload,
		})
		notifications = append(notifications, n)
	}

	return drafts, notifications, nil
}

// routeOutbound decides whether the outbox row targets the channel's own
// topic directly, or the shared delayed topic when scheduled_at is in the
// future — consumed later by the delayed pipeline, which restages it onto
// the channel topic once due.
func (s *Service) routeOutbound(tag string, msg domain.ChannelMessage, scheduledAt *time.Time) (string, []byte, error) {
	entry, ok := s.registry.Lookup(tag)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, tag)
	}

	if scheduledAt == nil || !scheduledAt.After(time.Now().UTC()) {
		payload, err := json.Marshal(msg)
		if err != nil {
			return "", nil, fmt.Errorf("marshal channel message: %w", err)
		}
		return entry.Topic, payload, nil
	}

	delayed := domain.DelayedMessage{
		ChannelMessage: msg,
		TargetTopic:    entry.Topic,
		ScheduledAt:    scheduledAt.UnixMilli(),
	}
	payload, err := json.Marshal(delayed)
	if err != nil {
		return "", nil, fmt.Errorf("marshal delayed message: %w", err)
	}
	return bus.DelayedTopic, payload, nil
}
