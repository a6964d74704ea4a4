package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// Webhook delivery settings.
const (
	webhookTimeout     = 10 * time.Second
	webhookMaxAttempts = 3
)

// newWebhookBackoff returns the delay schedule between delivery attempts.
var newWebhookBackoff = func() *util.Backoff {
	return util.NewBackoff(2*time.Second, 10*time.Second)
}

// errPermanent marks a webhook failure that retrying cannot fix.
var errPermanent = errors.New("permanent webhook failure")

// SendFailedInspectionWebhook posts a failed inspection to the webhook URL.
func SendFailedInspectionWebhook(ctx context.Context, webhookURL string, r session.Report) error {
	return sendWebhook(ctx, webhookURL, map[string]any{
		"event":         "inspection_failed",
		"inspection_id": r.ID,
		"checklist":     r.ChecklistID,
		"title":         r.ChecklistTitle,
		"inspector":     r.Inspector(),
		"identity":      r.Identity,
		"failed_items":  failedItems(r),
		"completed_at":  r.CompletedAt.UTC().Format(time.RFC3339),
		"timestamp":     util.RFC3339Now(),
	})
}

// SendTestWebhook sends a test POST request to verify webhook configuration.
func SendTestWebhook(ctx context.Context, webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	return sendWebhook(ctx, webhookURL, map[string]any{
		"event":     "test",
		"message":   "This is a test notification from the crane checklist",
		"timestamp": util.RFC3339Now(),
	})
}

// sendWebhook posts the JSON payload, retrying transport errors and 5xx
// responses with exponential backoff.
func sendWebhook(ctx context.Context, webhookURL string, payload map[string]any) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	backoff := newWebhookBackoff()

	var lastErr error
	for attempt := range webhookMaxAttempts {
		if attempt > 0 {
			if err := backoff.Wait(ctx); err != nil {
				return util.WrapError("send webhook request", err)
			}
		}
		lastErr = postWebhook(ctx, client, webhookURL, jsonData)
		if lastErr == nil || errors.Is(lastErr, errPermanent) {
			return lastErr
		}
	}
	return lastErr
}

func postWebhook(ctx context.Context, client *http.Client, webhookURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", errPermanent, util.WrapError("create webhook request", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeClose(resp.Body, "webhook response body")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	default:
		return fmt.Errorf("%w: webhook returned status %d", errPermanent, resp.StatusCode)
	}
}

// failedItems returns the question texts of the failed answers.
func failedItems(r session.Report) []string {
	items := make([]string, len(r.Failed))
	for i, a := range r.Failed {
		items[i] = a.Question
	}
	return items
}
