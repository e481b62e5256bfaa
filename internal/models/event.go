package models

import "time"

// EventType enumerates the lifecycle stages a tracked trade moves through.
type EventType string

const (
	EventSignal         EventType = "signal"
	EventEntry          EventType = "entry"
	EventBreakEven      EventType = "be_move"
	EventPartialClose   EventType = "partial"
	EventTrailing       EventType = "trailing"
	EventNearTP         EventType = "near_tp"
	EventNearSL         EventType = "near_sl"
	EventClosedTP       EventType = "closed_tp"
	EventClosedSL       EventType = "closed_sl"
	EventClosedTrailing EventType = "closed_trailing"
	EventClosedBE       EventType = "closed_be"
)

var allEventTypes = map[EventType]bool{
	EventSignal:         true,
	EventEntry:          true,
	EventBreakEven:      true,
	EventPartialClose:   true,
	EventTrailing:       true,
	EventNearTP:         true,
	EventNearSL:         true,
	EventClosedTP:       true,
	EventClosedSL:       true,
	EventClosedTrailing: true,
	EventClosedBE:       true,
}

func IsValidEventType(t EventType) bool {
	return allEventTypes[t]
}

// Event is an immutable record of something that happened to a strategy's
// position. The id is assigned by the sequencer and is strictly increasing;
// the engine never mutates an event after it is appended.
type Event struct {
	ID           int64     `json:"id" db:"id"`
	StrategyID   string    `json:"strategy_id" db:"strategy_id"`
	StrategyName string    `json:"strategy_name" db:"strategy_name"`
	Symbol       string    `json:"symbol" db:"symbol"`
	Type         EventType `json:"event_type" db:"event_type"`
	Direction    string    `json:"direction,omitempty" db:"direction"`
	Price        float64   `json:"price,omitempty" db:"price"`
	Confidence   *int      `json:"confidence,omitempty" db:"confidence"`
	PnL          *float64  `json:"pnl,omitempty" db:"pnl"`
	Detail       string    `json:"detail,omitempty" db:"detail"`
	OccurredAt   time.Time `json:"occurred_at" db:"occurred_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
