// Package notify delivers user-facing notifications. One polling cycle
// produces at most one aggregate notification stating how many new
// markets appeared, never one notification per event.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notification is a single user-facing alert. URL is the click-through
// target; there is no per-event payload by design.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Count   int    `json:"count"`
}

// Notifier delivers a notification to its sink. Delivery failures are
// non-fatal to callers: they log and move on, there is no retry.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ForNewEvents builds the aggregate notification for a batch of novel
// events.
func ForNewEvents(count int, clickURL string) Notification {
	msg := fmt.Sprintf("%d new markets on Polymarket", count)
	if count == 1 {
		msg = "1 new market on Polymarket"
	}
	return Notification{
		Title:   "New Polymarket events",
		Message: msg,
		URL:     clickURL,
		Count:   count,
	}
}

// ---------------------------------------------------------------------------
// Webhook sink
// ---------------------------------------------------------------------------

// WebhookNotifier POSTs notifications as JSON to a configured URL.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier creates a notifier targeting the given webhook URL.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("posting notification: status %d", resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Log sink
// ---------------------------------------------------------------------------

// LogNotifier writes notifications to the structured log. It is the
// fallback sink when no webhook is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier writing to the given logger.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.log.Info("notification",
		"title", n.Title,
		"message", n.Message,
		"url", n.URL,
		"count", n.Count,
	)
	return nil
}

// New returns a WebhookNotifier when webhookURL is set, otherwise a
// LogNotifier.
func New(webhookURL string, timeout time.Duration, log *slog.Logger) Notifier {
	if webhookURL != "" {
		return NewWebhookNotifier(webhookURL, timeout)
	}
	return NewLogNotifier(log)
}
