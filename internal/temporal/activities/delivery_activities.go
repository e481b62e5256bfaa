package activities

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/whilber-ai/alert-engine/internal/metrics"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/notification"
	"github.com/whilber-ai/alert-engine/internal/repository"
	alerttemporal "github.com/whilber-ai/alert-engine/internal/temporal"
)

type Activities struct {
	Subscribers   repository.SubscriberRepository
	Notifications repository.NotificationRepository
	Senders       map[models.Channel]notification.Sender
}

// DeliverChannelActivity pushes one notification through one channel and
// records the outcome on the notification row. A channel the subscriber has
// not set up (no linked chat, unverified email) is marked unavailable and the
// error is non-retryable; transient send failures are left to the retry
// policy.
func (a *Activities) DeliverChannelActivity(ctx context.Context, task alerttemporal.ChannelTask) error {
	logger := activity.GetLogger(ctx)
	attempt := int(activity.GetInfo(ctx).Attempt)
	logger.Info("Delivering notification channel",
		"NotificationID", task.NotificationID, "Channel", string(task.Channel), "Attempt", attempt)

	sender, ok := a.Senders[task.Channel]
	if !ok {
		a.recordOutcome(ctx, task, models.DeliveryUnavailable, attempt, "no sender configured")
		metrics.ChannelDeliveries.WithLabelValues(string(task.Channel), "unavailable").Inc()
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no sender configured for channel %s", task.Channel), "ChannelUnavailable", nil)
	}

	n, err := a.Notifications.GetByID(ctx, task.NotificationID)
	if err != nil {
		logger.Error("Failed to load notification", "error", err)
		return err
	}
	sub, err := a.Subscribers.GetByID(ctx, task.SubscriberID)
	if err != nil {
		logger.Error("Failed to load subscriber", "error", err)
		return err
	}

	if err := sender.Send(ctx, sub, n); err != nil {
		if errors.Is(err, models.ErrChannelUnavailable) {
			a.recordOutcome(ctx, task, models.DeliveryUnavailable, attempt, err.Error())
			metrics.ChannelDeliveries.WithLabelValues(string(task.Channel), "unavailable").Inc()
			return temporal.NewNonRetryableApplicationError(err.Error(), "ChannelUnavailable", err)
		}
		a.recordOutcome(ctx, task, models.DeliveryFailed, attempt, err.Error())
		metrics.ChannelDeliveries.WithLabelValues(string(task.Channel), "failed").Inc()
		logger.Error("Channel delivery attempt failed", "error", err)
		return err
	}

	a.recordOutcome(ctx, task, models.DeliveryDelivered, attempt, "")
	metrics.ChannelDeliveries.WithLabelValues(string(task.Channel), "delivered").Inc()
	return nil
}

func (a *Activities) recordOutcome(ctx context.Context, task alerttemporal.ChannelTask, state models.DeliveryState, attempts int, errMsg string) {
	status := models.DeliveryStatus{
		State:    state,
		Attempts: attempts,
		Error:    errMsg,
	}
	if err := a.Notifications.SetDeliveryStatus(ctx, task.NotificationID, task.Channel, status); err != nil {
		activity.GetLogger(ctx).Error("Failed to record delivery status",
			"NotificationID", task.NotificationID, "Channel", string(task.Channel), "error", err)
	}
}
