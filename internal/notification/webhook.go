package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/crewkit/crewd/internal/config"
	"github.com/crewkit/crewd/internal/eventbus"
)

// WebhookSender POSTs orchestration events to the configured endpoints.
// Delivery is fire-and-forget: failures are logged, never returned, so a
// dead sink cannot affect the state transition that produced the event.
type WebhookSender struct {
	urls   []string
	client *http.Client
}

func NewWebhookSender(env *config.WebhookEnv) *WebhookSender {
	return &WebhookSender{
		urls: env.URLList(),
		client: &http.Client{
			Timeout: env.Timeout,
		},
	}
}

type webhookBody struct {
	Event     string            `json:"event"`
	Payload   map[string]string `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
}

func (s *WebhookSender) TriggerWebhook(ctx context.Context, eventName eventbus.EventType, payload map[string]string) {
	if len(s.urls) == 0 {
		return
	}
	body, err := json.Marshal(webhookBody{
		Event:     string(eventName),
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Error("webhook: failed to marshal payload", "event", eventName, "error", err)
		return
	}

	for _, url := range s.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			slog.Error("webhook: failed to build request", "url", url, "error", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			slog.Warn("webhook: delivery failed", "url", url, "event", eventName, "error", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			slog.Warn("webhook: unexpected status", "url", url, "event", eventName, "status", resp.StatusCode)
		}
	}
}
