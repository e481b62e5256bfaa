package models

import (
	"fmt"
	"time"
)

// Wildcard matches anything in a scope dimension. It is a first-class value:
// an empty explicit set is rejected as invalid, not treated as a wildcard.
const Wildcard = "*"

// Subscription is a subscriber's standing filter describing which events they
// want and on which channels. Disabled subscriptions are excluded from future
// matching; their historical notifications remain.
type Subscription struct {
	ID            string      `json:"id" db:"id"`
	SubscriberID  string      `json:"subscriber_id" db:"subscriber_id"`
	StrategyID    string      `json:"strategy_id" db:"strategy_id"`
	Symbols       []string    `json:"symbols" db:"symbols"`
	EventTypes    []EventType `json:"event_types" db:"event_types"`
	MinConfidence int         `json:"min_confidence" db:"min_confidence"`
	Channels      []Channel   `json:"channels" db:"channels"`
	Enabled       bool        `json:"enabled" db:"enabled"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// SubscriptionConfig is the validated mutation record accepted by the
// registry. Only these fields are recognized; handlers reject unknown ones.
type SubscriptionConfig struct {
	StrategyID    string   `json:"strategy_id"`
	Symbols       []string `json:"symbols"`
	EventTypes    []string `json:"event_types"`
	MinConfidence int      `json:"min_confidence"`
	Channels      []string `json:"channels"`
}

// Validate checks structural soundness of a stored subscription. The match
// engine uses it to skip malformed rows without aborting a batch.
func (s Subscription) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConfig)
	}
	if s.SubscriberID == "" {
		return fmt.Errorf("%w: missing subscriber id", ErrInvalidConfig)
	}
	if s.StrategyID == "" {
		return fmt.Errorf("%w: missing strategy scope", ErrInvalidConfig)
	}
	if len(s.Symbols) == 0 {
		return fmt.Errorf("%w: empty symbol scope", ErrInvalidConfig)
	}
	if len(s.EventTypes) == 0 {
		return fmt.Errorf("%w: empty event type set", ErrInvalidConfig)
	}
	if s.MinConfidence < 0 || s.MinConfidence > 100 {
		return fmt.Errorf("%w: min_confidence %d out of range", ErrInvalidConfig, s.MinConfidence)
	}
	if len(s.Channels) == 0 {
		return fmt.Errorf("%w: empty channel set", ErrInvalidConfig)
	}
	return nil
}

// MatchesStrategy reports whether the strategy scope accepts the id.
func (s Subscription) MatchesStrategy(strategyID string) bool {
	return s.StrategyID == Wildcard || s.StrategyID == strategyID
}

// MatchesSymbol reports whether the symbol scope accepts the symbol.
func (s Subscription) MatchesSymbol(symbol string) bool {
	for _, sym := range s.Symbols {
		if sym == Wildcard || sym == symbol {
			return true
		}
	}
	return false
}

// AcceptsType reports whether the event type is in the accepted set.
func (s Subscription) AcceptsType(t EventType) bool {
	for _, et := range s.EventTypes {
		if string(et) == Wildcard || et == t {
			return true
		}
	}
	return false
}

// AcceptsConfidence applies the minimum-confidence threshold. Events without
// a confidence value always pass.
func (s Subscription) AcceptsConfidence(confidence *int) bool {
	if confidence == nil {
		return true
	}
	return *confidence >= s.MinConfidence
}
