package notification

import (
	"fmt"
	"strings"

	"github.com/whilber-ai/alert-engine/internal/models"
)

var eventTitles = map[models.EventType]string{
	models.EventSignal:         "New signal detected",
	models.EventEntry:          "Position entered",
	models.EventBreakEven:      "Stop moved to break-even",
	models.EventPartialClose:   "Partial profit taken",
	models.EventTrailing:       "Trailing stop activated",
	models.EventNearTP:         "Approaching take-profit",
	models.EventNearSL:         "Approaching stop-loss",
	models.EventClosedTP:       "Closed at take-profit",
	models.EventClosedSL:       "Closed at stop-loss",
	models.EventClosedTrailing: "Closed by trailing stop",
	models.EventClosedBE:       "Closed at break-even",
}

// Title renders the one-line headline for an event.
func Title(p models.NotificationPayload) string {
	title, ok := eventTitles[p.EventType]
	if !ok {
		title = string(p.EventType)
	}
	return fmt.Sprintf("%s: %s", title, p.Symbol)
}

// Body renders the delivery text shared by email, chat and push channels.
func Body(p models.NotificationPayload) string {
	b := strings.Builder{}
	name := p.StrategyName
	if name == "" {
		name = p.StrategyID
	}
	b.WriteString(fmt.Sprintf("%s | %s", name, p.Symbol))
	if p.Direction != "" {
		b.WriteString(" " + strings.ToUpper(p.Direction))
	}
	if p.Price != 0 {
		b.WriteString(fmt.Sprintf("\nPrice: %g", p.Price))
	}
	if p.PnL != nil {
		sign := ""
		if *p.PnL >= 0 {
			sign = "+"
		}
		b.WriteString(fmt.Sprintf(" | PnL: %s%.2f", sign, *p.PnL))
	}
	if p.Confidence != nil {
		b.WriteString(fmt.Sprintf("\nConfidence: %d%%", *p.Confidence))
	}
	if p.Detail != "" {
		b.WriteString("\n" + p.Detail)
	}
	return b.String()
}
