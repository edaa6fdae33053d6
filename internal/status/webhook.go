package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/notifyrelay/pipeline/internal/domain"
)

// WebhookDeliverer POSTs a terminal-status payload to the client's
// callback URL, retrying transport errors and 5xx responses up to
// maxRetries times. A 4xx response is treated as the client's own
// rejection of the payload and is never retried.
type WebhookDeliverer struct {
	httpClient *http.Client
	maxRetries int
}

func NewWebhookDeliverer(timeout time.Duration, maxRetries int) *WebhookDeliverer {
	return &WebhookDeliverer{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

func (d *WebhookDeliverer) Deliver(ctx context.Context, webhookURL string, payload domain.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("webhook rejected payload: status %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return lastErr
}
