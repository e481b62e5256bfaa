package match

import (
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
)

// Engine selects the subscriptions whose filters accept an event. It is pure
// over its inputs: the same event and registry snapshot always produce the
// same match set, which is what makes replay after a crash safe.
type Engine struct {
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "match_engine").Logger()}
}

// Match evaluates every subscription in the snapshot against the event.
// Evaluations are isolated: a malformed subscription is logged and skipped,
// never fatal to the batch.
func (e *Engine) Match(ev models.Event, subs []models.Subscription) []models.Subscription {
	var matched []models.Subscription
	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}
		if err := sub.Validate(); err != nil {
			e.logger.Warn().
				Err(err).
				Str("subscription_id", sub.ID).
				Int64("event_id", ev.ID).
				Msg("skipping malformed subscription")
			continue
		}
		if !sub.MatchesStrategy(ev.StrategyID) {
			continue
		}
		if !sub.MatchesSymbol(ev.Symbol) {
			continue
		}
		if !sub.AcceptsType(ev.Type) {
			continue
		}
		if !sub.AcceptsConfidence(ev.Confidence) {
			continue
		}
		matched = append(matched, sub)
	}
	return matched
}
