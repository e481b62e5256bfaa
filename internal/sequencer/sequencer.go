package sequencer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/metrics"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/repository"
)

// Sequencer is the single ingress for lifecycle events. It validates,
// timestamps and persists each event, assigning the monotonically increasing
// id the pipeline and the poll cursor both rely on.
type Sequencer struct {
	events repository.EventRepository
	logger zerolog.Logger
	wake   chan struct{}
}

func NewSequencer(events repository.EventRepository, logger zerolog.Logger) *Sequencer {
	return &Sequencer{
		events: events,
		logger: logger.With().Str("component", "sequencer").Logger(),
		wake:   make(chan struct{}, 1),
	}
}

// Append validates and stores one event, returning it with its assigned id.
func (s *Sequencer) Append(ctx context.Context, ev models.Event) (models.Event, error) {
	if err := validate(ev); err != nil {
		return models.Event{}, err
	}
	ev.Symbol = strings.ToUpper(strings.TrimSpace(ev.Symbol))
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	stored, err := s.events.Append(ctx, ev)
	if err != nil {
		return models.Event{}, err
	}

	metrics.EventsSequenced.Inc()
	s.logger.Debug().
		Int64("event_id", stored.ID).
		Str("type", string(stored.Type)).
		Str("symbol", stored.Symbol).
		Msg("event sequenced")

	// Nudge the pipeline; a full wake channel means a pass is already queued.
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return stored, nil
}

// Wake exposes the pipeline nudge channel.
func (s *Sequencer) Wake() <-chan struct{} {
	return s.wake
}

func validate(ev models.Event) error {
	if strings.TrimSpace(ev.StrategyID) == "" {
		return fmt.Errorf("%w: strategy_id is required", models.ErrInvalidConfig)
	}
	if strings.TrimSpace(ev.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", models.ErrInvalidConfig)
	}
	if !models.IsValidEventType(ev.Type) {
		return fmt.Errorf("%w: unknown event type %q", models.ErrInvalidConfig, ev.Type)
	}
	if ev.Confidence != nil && (*ev.Confidence < 0 || *ev.Confidence > 100) {
		return fmt.Errorf("%w: confidence must be within 0..100", models.ErrInvalidConfig)
	}
	return nil
}
