package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Deatojef/vumeter/internal/util"
)

// Webhook delivery settings.
const (
	webhookTimeout    = 10 * time.Second
	webhookMaxRetries = 3
	webhookRetryBase  = 2 * time.Second
	webhookRetryMax   = 30 * time.Second
)

// logNotifyResult executes a notification sender and logs the outcome.
// Delivery errors are logged, not returned; notifications are best-effort.
func logNotifyResult(fn func() error, notifyType string) {
	if err := fn(); err != nil {
		slog.Warn("notification failed", "type", notifyType, "error", err)
	} else {
		slog.Info("notification sent", "type", notifyType)
	}
}

// SendClipWebhook sends a POST request to the webhook URL when the signal
// starts clipping.
func SendClipWebhook(webhookURL string, threshold float64) error {
	return sendWebhook(webhookURL, map[string]any{
		"event":        "clip_start",
		"threshold_db": threshold,
		"timestamp":    util.RFC3339Now(),
	})
}

// SendRecoveryWebhook sends a POST request to the webhook URL when the
// signal drops back below the clip threshold.
func SendRecoveryWebhook(webhookURL string, clipDuration float64) error {
	return sendWebhook(webhookURL, map[string]any{
		"event":         "clip_end",
		"clip_duration": clipDuration,
		"timestamp":     util.RFC3339Now(),
	})
}

// SendTestWebhook sends a test POST request to verify webhook configuration.
func SendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	return sendWebhook(webhookURL, map[string]any{
		"event":     "test",
		"message":   "This is a test notification from the VU meter",
		"timestamp": util.RFC3339Now(),
	})
}

// sendWebhook posts a JSON payload to the webhook URL, retrying transient
// failures with exponential backoff.
func sendWebhook(webhookURL string, payload map[string]any) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	backoff := util.NewBackoff(webhookRetryBase, webhookRetryMax)
	var lastErr error
	for attempt := range webhookMaxRetries {
		if attempt > 0 {
			time.Sleep(backoff.Next())
		}
		if lastErr = postJSON(webhookURL, jsonData); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// postJSON performs a single webhook delivery attempt.
func postJSON(webhookURL string, jsonData []byte) error {
	client := &http.Client{Timeout: webhookTimeout}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
