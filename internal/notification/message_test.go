package notification

import (
	"strings"
	"testing"

	"github.com/whilber-ai/alert-engine/internal/models"
)

func TestTitleUsesEventHeadline(t *testing.T) {
	p := models.NotificationPayload{Symbol: "XAUUSD", EventType: models.EventClosedTP}
	if got := Title(p); got != "Closed at take-profit: XAUUSD" {
		t.Errorf("Title() = %q", got)
	}
}

func TestTitleFallsBackToRawType(t *testing.T) {
	p := models.NotificationPayload{Symbol: "EURUSD", EventType: "custom_event"}
	if got := Title(p); got != "custom_event: EURUSD" {
		t.Errorf("Title() = %q", got)
	}
}

func TestBodyIncludesOptionalFields(t *testing.T) {
	conf := 85
	pnl := -12.5
	p := models.NotificationPayload{
		StrategyID:   "strat-gold",
		StrategyName: "Gold Scalper",
		Symbol:       "XAUUSD",
		EventType:    models.EventClosedSL,
		Direction:    "buy",
		Price:        2411.5,
		Confidence:   &conf,
		PnL:          &pnl,
		Detail:       "stopped out on news spike",
	}

	body := Body(p)
	for _, want := range []string{"Gold Scalper", "XAUUSD", "BUY", "2411.5", "-12.50", "85%", "news spike"} {
		if !strings.Contains(body, want) {
			t.Errorf("Body() missing %q:\n%s", want, body)
		}
	}
}

func TestBodyFallsBackToStrategyID(t *testing.T) {
	p := models.NotificationPayload{StrategyID: "strat-7", Symbol: "BTCUSD", EventType: models.EventSignal}
	if body := Body(p); !strings.Contains(body, "strat-7") {
		t.Errorf("Body() should fall back to the strategy id:\n%s", body)
	}
}
