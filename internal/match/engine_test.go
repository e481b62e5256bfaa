package match

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
)

func intPtr(v int) *int { return &v }

func baseSubscription(id string) models.Subscription {
	return models.Subscription{
		ID:           id,
		SubscriberID: "subscriber-1",
		StrategyID:   models.Wildcard,
		Symbols:      []string{models.Wildcard},
		EventTypes:   []models.EventType{models.EventType(models.Wildcard)},
		Channels:     []models.Channel{models.ChannelInApp},
		Enabled:      true,
	}
}

func TestMatchFiltering(t *testing.T) {
	event := models.Event{
		ID:         42,
		StrategyID: "strat-gold",
		Symbol:     "XAUUSD",
		Type:       models.EventNearSL,
		Confidence: intPtr(72),
	}

	tests := []struct {
		name    string
		mutate  func(*models.Subscription)
		matched bool
	}{
		{
			name:    "wildcard subscription matches",
			mutate:  func(s *models.Subscription) {},
			matched: true,
		},
		{
			name:    "exact scope matches",
			mutate:  func(s *models.Subscription) { s.StrategyID = "strat-gold"; s.Symbols = []string{"XAUUSD"} },
			matched: true,
		},
		{
			name:    "strategy mismatch",
			mutate:  func(s *models.Subscription) { s.StrategyID = "strat-fx" },
			matched: false,
		},
		{
			name:    "symbol mismatch",
			mutate:  func(s *models.Subscription) { s.Symbols = []string{"EURUSD", "GBPUSD"} },
			matched: false,
		},
		{
			name:    "symbol list containing the event symbol matches",
			mutate:  func(s *models.Subscription) { s.Symbols = []string{"EURUSD", "XAUUSD"} },
			matched: true,
		},
		{
			name:    "event type not in set",
			mutate:  func(s *models.Subscription) { s.EventTypes = []models.EventType{models.EventClosedTP} },
			matched: false,
		},
		{
			name:    "event type in set",
			mutate:  func(s *models.Subscription) { s.EventTypes = []models.EventType{models.EventNearSL, models.EventNearTP} },
			matched: true,
		},
		{
			name:    "confidence 72 passes threshold 60",
			mutate:  func(s *models.Subscription) { s.MinConfidence = 60 },
			matched: true,
		},
		{
			name:    "confidence 72 fails threshold 80",
			mutate:  func(s *models.Subscription) { s.MinConfidence = 80 },
			matched: false,
		},
		{
			name:    "disabled subscription never matches",
			mutate:  func(s *models.Subscription) { s.Enabled = false },
			matched: false,
		},
		{
			name:    "malformed subscription is skipped",
			mutate:  func(s *models.Subscription) { s.Symbols = nil },
			matched: false,
		},
	}

	engine := NewEngine(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := baseSubscription("sub-1")
			tt.mutate(&sub)

			matched := engine.Match(event, []models.Subscription{sub})
			if got := len(matched) == 1; got != tt.matched {
				t.Fatalf("Match() matched=%v, want %v", got, tt.matched)
			}
		})
	}
}

func TestMatchConfidenceGateOnlyAppliesWhenPresent(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	sub := baseSubscription("sub-1")
	sub.MinConfidence = 90

	// An event without a confidence score is not filtered by the threshold.
	event := models.Event{ID: 7, StrategyID: "s", Symbol: "BTCUSD", Type: models.EventEntry}
	if got := engine.Match(event, []models.Subscription{sub}); len(got) != 1 {
		t.Fatalf("expected confidence-less event to match, got %d matches", len(got))
	}
}

func TestMatchIsolatesSubscriptions(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	broken := baseSubscription("sub-broken")
	broken.Channels = nil
	healthy := baseSubscription("sub-healthy")

	event := models.Event{ID: 1, StrategyID: "s", Symbol: "EURUSD", Type: models.EventSignal}
	matched := engine.Match(event, []models.Subscription{broken, healthy})
	if len(matched) != 1 || matched[0].ID != "sub-healthy" {
		t.Fatalf("expected only the healthy subscription to match, got %+v", matched)
	}
}
