package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
)

// WebhookSender POSTs the notification as JSON to the subscriber's
// registered webhook URL.
type WebhookSender struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewWebhookSender(timeout time.Duration, logger zerolog.Logger) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("sender", "webhook").Logger(),
	}
}

type webhookEnvelope struct {
	NotificationID int64                      `json:"notification_id"`
	Title          string                     `json:"title"`
	Body           string                     `json:"body"`
	Priority       models.Priority            `json:"priority"`
	Payload        models.NotificationPayload `json:"payload"`
	CreatedAt      time.Time                  `json:"created_at"`
}

func (s *WebhookSender) Send(ctx context.Context, sub models.Subscriber, n models.Notification) error {
	url := strings.TrimSpace(sub.WebhookURL)
	if url == "" {
		return fmt.Errorf("%w: no webhook url registered", models.ErrChannelUnavailable)
	}

	body, err := json.Marshal(webhookEnvelope{
		NotificationID: n.ID,
		Title:          n.Title,
		Body:           n.Body,
		Priority:       n.Priority,
		Payload:        n.Payload,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery failed status=%d", resp.StatusCode)
	}

	s.logger.Info().
		Int64("notification_id", n.ID).
		Str("event_type", string(n.Payload.EventType)).
		Msg("webhook notification delivered")
	return nil
}

func (s *WebhookSender) String() string {
	return "WebhookSender"
}
