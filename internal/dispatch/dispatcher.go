package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
)

// WorkflowStarter launches one durable delivery run for a notification.
// The Temporal-backed implementation lives in temporal_starter.go; tests
// substitute a recorder.
type WorkflowStarter interface {
	StartDelivery(ctx context.Context, notificationID int64, subscriberID string, channels []models.Channel) error
}

// Dispatcher routes a freshly stored notification to its channels. Ephemeral
// channels are already satisfied by the store and the poll endpoint; only
// durable channels need a workflow.
type Dispatcher struct {
	starter WorkflowStarter
	logger  zerolog.Logger
	now     func() time.Time
}

func NewDispatcher(starter WorkflowStarter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		starter: starter,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
		now:     time.Now,
	}
}

// Dispatch starts delivery for the durable channels of the notification, if
// any. The owner's quiet-hours window mutes durable push; the notification
// stays in the store and surfaces on the next poll either way. Failing to
// start the workflow is logged and swallowed so one broken dispatch never
// stalls the event pipeline.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification, owner models.Subscriber, channels []models.Channel) {
	durable := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if !ch.IsEphemeral() {
			durable = append(durable, ch)
		}
	}
	if len(durable) == 0 {
		return
	}

	if owner.InQuietHours(d.now()) {
		d.logger.Debug().
			Int64("notification_id", n.ID).
			Str("subscriber_id", n.SubscriberID).
			Msg("quiet hours active, durable delivery muted")
		return
	}

	if err := d.starter.StartDelivery(ctx, n.ID, n.SubscriberID, durable); err != nil {
		d.logger.Error().
			Err(err).
			Int64("notification_id", n.ID).
			Str("subscriber_id", n.SubscriberID).
			Msg("failed to start delivery workflow")
		return
	}

	d.logger.Debug().
		Int64("notification_id", n.ID).
		Int("channels", len(durable)).
		Msg("delivery workflow started")
}
