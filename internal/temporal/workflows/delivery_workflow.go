package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	alerttemporal "github.com/whilber-ai/alert-engine/internal/temporal"
	"github.com/whilber-ai/alert-engine/internal/temporal/activities"
)

// DeliveryWorkflow fans one stored notification out to its durable channels.
// Each channel is its own activity with its own retry budget; a channel that
// exhausts retries never cancels its siblings, so a flaky webhook cannot
// block the telegram copy of the same alert.
func DeliveryWorkflow(ctx workflow.Context, params alerttemporal.DeliveryParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: alerttemporal.DefaultActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting delivery workflow", "NotificationID", params.NotificationID, "Channels", len(params.Channels))

	// Create an instance of activities struct.
	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	futures := make([]workflow.Future, 0, len(params.Channels))
	for _, ch := range params.Channels {
		task := alerttemporal.ChannelTask{
			NotificationID: params.NotificationID,
			SubscriberID:   params.SubscriberID,
			Channel:        ch,
		}
		futures = append(futures, workflow.ExecuteActivity(ctx, a.DeliverChannelActivity, task))
	}

	var failed int
	for i, fut := range futures {
		if err := fut.Get(ctx, nil); err != nil {
			failed++
			logger.Error("Channel delivery failed permanently.",
				"NotificationID", params.NotificationID,
				"Channel", string(params.Channels[i]),
				"error", err)
		}
	}

	if failed > 0 {
		logger.Warn("Delivery workflow finished with failed channels.",
			"NotificationID", params.NotificationID, "failed", failed)
	} else {
		logger.Info("Delivery workflow completed successfully.", "NotificationID", params.NotificationID)
	}
	// The per-channel outcome is already recorded on the notification row;
	// the workflow itself always completes.
	return nil
}
