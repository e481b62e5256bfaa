package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/dispatch"
	"github.com/whilber-ai/alert-engine/internal/match"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/notification"
	"github.com/whilber-ai/alert-engine/internal/ratelimit"
	"github.com/whilber-ai/alert-engine/internal/repository"
)

// cursorName identifies the pipeline's replay position in the cursor table.
const cursorName = "match"

type PipelineConfig struct {
	Events        repository.EventRepository
	Subscriptions repository.SubscriptionRepository
	Subscribers   repository.SubscriberRepository
	Matcher       *match.Engine
	Limiter       *ratelimit.Limiter
	Notifications *notification.Service
	Dispatcher    *dispatch.Dispatcher
	PollInterval  time.Duration
	BatchSize     int
}

// Pipeline drains sequenced events past the stored cursor, fans each event
// out to the matching enabled subscriptions and records/dispatches the
// resulting notifications. The cursor only advances after a batch completes,
// so a crash replays the batch and dedup absorbs the repeats.
type Pipeline struct {
	cfg    PipelineConfig
	wake   <-chan struct{}
	logger zerolog.Logger
}

func NewPipeline(cfg PipelineConfig, wake <-chan struct{}, logger zerolog.Logger) *Pipeline {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Pipeline{
		cfg:    cfg,
		wake:   wake,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

func (p *Pipeline) Start(ctx context.Context) error {
	p.logger.Info().Msg("Pipeline started, processing sequenced events...")
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Pipeline stopped")
			return ctx.Err()
		case <-p.wake:
		case <-ticker.C:
		}
		if err := p.processBatch(ctx); err != nil {
			// Log the error, but keep the loop alive; the cursor was not
			// advanced so the batch is retried.
			p.logger.Error().Err(err).Msg("error processing event batch")
		}
	}
}

func (p *Pipeline) processBatch(ctx context.Context) error {
	cursor, err := p.cfg.Events.GetCursor(ctx, cursorName)
	if err != nil {
		return errors.Wrap(err, "failed to read pipeline cursor")
	}

	events, err := p.cfg.Events.Since(ctx, cursor, p.cfg.BatchSize)
	if err != nil {
		return errors.Wrap(err, "failed to fetch sequenced events")
	}
	if len(events) == 0 {
		return nil
	}

	// One subscription snapshot per batch: a subscription disabled mid-batch
	// keeps matching until the next batch, never half-way through one.
	subs, err := p.cfg.Subscriptions.ListEnabled(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to snapshot enabled subscriptions")
	}

	subscribers := make(map[string]models.Subscriber)
	for _, ev := range events {
		for _, sub := range p.cfg.Matcher.Match(ev, subs) {
			p.handleMatch(ctx, sub, ev, subscribers)
		}
	}

	lastID := events[len(events)-1].ID
	if err := p.cfg.Events.SetCursor(ctx, cursorName, lastID); err != nil {
		return errors.Wrap(err, "failed to advance pipeline cursor")
	}

	p.logger.Debug().
		Int("events", len(events)).
		Int64("cursor", lastID).
		Msg("event batch processed")
	return nil
}

// handleMatch records and dispatches one (subscription, event) match. Errors
// are contained per subscription so one failing subscriber cannot hold back
// the rest of the batch.
func (p *Pipeline) handleMatch(ctx context.Context, sub models.Subscription, ev models.Event, subscribers map[string]models.Subscriber) {
	owner, ok := subscribers[sub.SubscriberID]
	if !ok {
		var err error
		owner, err = p.cfg.Subscribers.GetByID(ctx, sub.SubscriberID)
		if err != nil {
			p.logger.Error().Err(err).
				Str("subscriber_id", sub.SubscriberID).
				Int64("event_id", ev.ID).
				Msg("failed to load subscriber for match")
			return
		}
		subscribers[sub.SubscriberID] = owner
	}

	if !p.cfg.Limiter.Allow(ctx, owner) {
		return
	}

	n, created, err := p.cfg.Notifications.Record(ctx, sub, ev)
	if err != nil {
		p.logger.Error().Err(err).
			Str("subscription_id", sub.ID).
			Int64("event_id", ev.ID).
			Msg("failed to record notification")
		return
	}
	if !created {
		// Replayed batch; delivery already started on the first pass. The
		// slot charged above is handed back so replays cannot throttle new
		// alerts near the hour ceiling.
		p.cfg.Limiter.Refund(ctx, owner)
		return
	}

	p.cfg.Dispatcher.Dispatch(ctx, n, owner, sub.Channels)
}
