package temporal

import (
	"time"

	"github.com/whilber-ai/alert-engine/internal/models"
)

// TaskQueueName is the name of the Temporal task queue used for alert delivery workflows.
const TaskQueueName = "ALERT_DELIVERY"

// DeliveryWorkflowIDPrefix is the prefix used for alert delivery workflow IDs.
const DeliveryWorkflowIDPrefix = "alert-delivery-"

// DefaultActivityTimeout is the default timeout duration for a single channel delivery attempt.
const DefaultActivityTimeout = 30 * time.Second

// DeliveryParams defines the input for alert delivery workflows. Channels
// holds only the durable channels of the matched subscription; ephemeral
// channels are served straight from the store and never reach a workflow.
type DeliveryParams struct {
	NotificationID int64
	SubscriberID   string
	Channels       []models.Channel
}

// ChannelTask is the per-channel activity input.
type ChannelTask struct {
	NotificationID int64
	SubscriberID   string
	Channel        models.Channel
}
