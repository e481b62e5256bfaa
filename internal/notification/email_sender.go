package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/models"
)

type EmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   zerolog.Logger
}

func NewEmailSender(cfg config.EmailConfig, logger zerolog.Logger) (*EmailSender, error) {
	host := strings.TrimSpace(cfg.SMTPHost)
	from := strings.TrimSpace(cfg.From)
	if host == "" {
		return nil, fmt.Errorf("smtp_host is required for email sender")
	}
	if from == "" {
		return nil, fmt.Errorf("from is required for email sender")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	return &EmailSender{
		host:     host,
		port:     port,
		username: strings.TrimSpace(cfg.Username),
		password: cfg.Password,
		from:     from,
		logger:   logger.With().Str("sender", "email").Logger(),
	}, nil
}

func (s *EmailSender) Send(_ context.Context, sub models.Subscriber, n models.Notification) error {
	if !sub.EmailVerified || strings.TrimSpace(sub.Email) == "" {
		return fmt.Errorf("%w: no verified email address", models.ErrChannelUnavailable)
	}

	subject := fmt.Sprintf("[Whilber] %s", strings.TrimSpace(n.Title))

	body := strings.Builder{}
	body.WriteString(n.Body)
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("Event: %s\n", n.Payload.EventType))
	body.WriteString(fmt.Sprintf("Priority: %s\n", n.Priority))
	body.WriteString(fmt.Sprintf("Created: %s\n", n.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		s.from, sub.Email, subject)

	message := []byte(headers + body.String())
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(addr, auth, s.from, []string{sub.Email}, message); err != nil {
		return err
	}

	s.logger.Info().
		Int64("notification_id", n.ID).
		Str("event_type", string(n.Payload.EventType)).
		Str("recipient", sub.Email).
		Msg("email notification sent")
	return nil
}

func (s *EmailSender) String() string {
	return "EmailSender"
}
