package notification

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/metrics"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/repository"
)

// Service is the dedup and notification store. It turns a (subscription,
// event) match into exactly one stored notification and owns read state.
type Service struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "notification_service").Logger(),
	}
}

// PollResult is the cursor-based response served to polling clients. All
// fields are stable and comparable: a client whose previous result has the
// same LastID and UnreadCount can skip its re-render entirely.
type PollResult struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	LastID        int64                 `json:"last_id"`
}

// Record idempotently stores the match. The second return reports whether a
// new notification was created; a lost dedup race is a no-op, not an error.
func (s *Service) Record(ctx context.Context, sub models.Subscription, ev models.Event) (models.Notification, bool, error) {
	payload := models.NotificationPayload{
		StrategyID:   ev.StrategyID,
		StrategyName: ev.StrategyName,
		Symbol:       ev.Symbol,
		EventType:    ev.Type,
		Direction:    ev.Direction,
		Price:        ev.Price,
		Confidence:   ev.Confidence,
		PnL:          ev.PnL,
		Detail:       ev.Detail,
	}

	delivery := make(map[models.Channel]models.DeliveryStatus, len(sub.Channels))
	for _, ch := range sub.Channels {
		if ch.IsEphemeral() {
			delivery[ch] = models.DeliveryStatus{State: models.DeliveryStored}
		} else {
			delivery[ch] = models.DeliveryStatus{State: models.DeliveryPending}
		}
	}

	n := models.Notification{
		SubscriberID:   sub.SubscriberID,
		SubscriptionID: sub.ID,
		EventID:        ev.ID,
		Title:          Title(payload),
		Body:           Body(payload),
		Priority:       models.PriorityFor(ev.Type),
		Payload:        payload,
		Delivery:       delivery,
	}

	created, err := s.repo.Insert(ctx, n)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return models.Notification{}, false, nil
		}
		return models.Notification{}, false, err
	}

	metrics.NotificationsCreated.Inc()
	s.logger.Debug().
		Int64("notification_id", created.ID).
		Int64("event_id", ev.ID).
		Str("subscription_id", sub.ID).
		Msg("notification recorded")
	return created, true, nil
}

// Poll returns the subscriber's notifications after the cursor, ascending by
// id. Re-polling with an unchanged cursor returns an empty list.
func (s *Service) Poll(ctx context.Context, subscriberID string, sinceID int64, limit int) (PollResult, error) {
	notifications, err := s.repo.PollSince(ctx, subscriberID, sinceID, limit)
	if err != nil {
		return PollResult{}, err
	}
	unread, err := s.repo.UnreadCount(ctx, subscriberID)
	if err != nil {
		return PollResult{}, err
	}

	lastID := sinceID
	if len(notifications) > 0 {
		lastID = notifications[len(notifications)-1].ID
	}
	return PollResult{
		Notifications: notifications,
		UnreadCount:   unread,
		LastID:        lastID,
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, subscriberID string, id int64) error {
	return s.repo.MarkRead(ctx, subscriberID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, subscriberID string) error {
	return s.repo.MarkAllRead(ctx, subscriberID)
}

func (s *Service) Clear(ctx context.Context, subscriberID string) error {
	return s.repo.Clear(ctx, subscriberID)
}

func (s *Service) UnreadCount(ctx context.Context, subscriberID string) (int, error) {
	return s.repo.UnreadCount(ctx, subscriberID)
}
