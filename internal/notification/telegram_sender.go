package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/models"
)

// TelegramSender pushes chat-bot messages through the Telegram sendMessage
// API. The same client backs the per-subscriber channel and the operator
// broadcast feed; they differ only in where the chat id comes from.
type TelegramSender struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	// broadcastChatID, when set, overrides the subscriber chat id. Used by
	// the broadcast channel's sender instance.
	broadcastChatID string
}

func NewTelegramSender(cfg config.TelegramConfig, logger zerolog.Logger) *TelegramSender {
	baseURL := strings.TrimSpace(cfg.APIBaseURL)
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramSender{
		token:      cfg.BotToken,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("sender", "telegram").Logger(),
	}
}

// NewBroadcastSender returns a telegram sender pinned to the operator's
// public broadcast chat.
func NewBroadcastSender(cfg config.TelegramConfig, logger zerolog.Logger) *TelegramSender {
	s := NewTelegramSender(cfg, logger)
	s.broadcastChatID = strings.TrimSpace(cfg.BroadcastChatID)
	s.logger = logger.With().Str("sender", "broadcast").Logger()
	return s
}

func (s *TelegramSender) Send(ctx context.Context, sub models.Subscriber, n models.Notification) error {
	chatID := s.broadcastChatID
	if chatID == "" {
		chatID = strings.TrimSpace(sub.TelegramChatID)
	}
	if s.token == "" || chatID == "" {
		return fmt.Errorf("%w: no linked telegram chat", models.ErrChannelUnavailable)
	}

	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    fmt.Sprintf("%s\n%s", n.Title, n.Body),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
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
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram send failed status=%d body=%s", resp.StatusCode, string(raw))
	}

	s.logger.Info().
		Int64("notification_id", n.ID).
		Str("event_type", string(n.Payload.EventType)).
		Msg("telegram notification sent")
	return nil
}

func (s *TelegramSender) String() string {
	if s.broadcastChatID != "" {
		return "BroadcastSender"
	}
	return "TelegramSender"
}
