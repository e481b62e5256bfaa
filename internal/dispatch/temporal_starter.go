package dispatch

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	tc "go.temporal.io/sdk/client"

	"github.com/whilber-ai/alert-engine/internal/models"
	alerttemporal "github.com/whilber-ai/alert-engine/internal/temporal"
	"github.com/whilber-ai/alert-engine/internal/temporal/workflows"
)

// TemporalStarter starts delivery workflows on the shared task queue.
type TemporalStarter struct {
	client tc.Client
}

func NewTemporalStarter(client tc.Client) *TemporalStarter {
	return &TemporalStarter{client: client}
}

func (s *TemporalStarter) StartDelivery(ctx context.Context, notificationID int64, subscriberID string, channels []models.Channel) error {
	opts := tc.StartWorkflowOptions{
		// One workflow per notification keeps replayed pipeline batches from
		// double-delivering: a duplicate start is rejected by id.
		ID:        fmt.Sprintf("%s%d", alerttemporal.DeliveryWorkflowIDPrefix, notificationID),
		TaskQueue: alerttemporal.TaskQueueName,
	}
	params := alerttemporal.DeliveryParams{
		NotificationID: notificationID,
		SubscriberID:   subscriberID,
		Channels:       channels,
	}

	if _, err := s.client.ExecuteWorkflow(ctx, opts, workflows.DeliveryWorkflow, params); err != nil {
		return errors.Wrap(err, "failed to execute delivery workflow")
	}
	return nil
}
