package models

import "time"

// Priority signals how prominently a client should surface a notification.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// PriorityFor maps an event type to its display priority. Stop-loss events
// are the ones a trader must not miss.
func PriorityFor(t EventType) Priority {
	switch t {
	case EventNearSL, EventClosedSL:
		return PriorityHigh
	}
	return PriorityNormal
}

// DeliveryState tracks one channel's progress for a notification.
type DeliveryState string

const (
	// DeliveryStored covers ephemeral channels: the notification is in the
	// store and the client surfaces it on its next poll.
	DeliveryStored      DeliveryState = "stored"
	DeliveryPending     DeliveryState = "pending"
	DeliveryDelivered   DeliveryState = "delivered"
	DeliveryFailed      DeliveryState = "failed"
	DeliveryUnavailable DeliveryState = "unavailable"
)

type DeliveryStatus struct {
	State    DeliveryState `json:"state"`
	Attempts int           `json:"attempts,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// NotificationPayload is the denormalized snapshot of the originating event.
// History never changes even if the event source is later amended.
type NotificationPayload struct {
	StrategyID   string    `json:"strategy_id"`
	StrategyName string    `json:"strategy_name,omitempty"`
	Symbol       string    `json:"symbol"`
	EventType    EventType `json:"event_type"`
	Direction    string    `json:"direction,omitempty"`
	Price        float64   `json:"price,omitempty"`
	Confidence   *int      `json:"confidence,omitempty"`
	PnL          *float64  `json:"pnl,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}

// Notification is the durable record that a subscription matched an event,
// exactly once. The id is monotonic and doubles as the poll cursor.
type Notification struct {
	ID             int64                      `json:"id" db:"id"`
	SubscriberID   string                     `json:"subscriber_id" db:"subscriber_id"`
	SubscriptionID string                     `json:"subscription_id" db:"subscription_id"`
	EventID        int64                      `json:"event_id" db:"event_id"`
	Title          string                     `json:"title" db:"title"`
	Body           string                     `json:"body" db:"body"`
	Priority       Priority                   `json:"priority" db:"priority"`
	Payload        NotificationPayload        `json:"payload" db:"payload"`
	Read           bool                       `json:"read" db:"read"`
	Delivery       map[Channel]DeliveryStatus `json:"delivery" db:"delivery"`
	CreatedAt      time.Time                  `json:"created_at" db:"created_at"`
	ClearedAt      *time.Time                 `json:"-" db:"cleared_at"`
}
