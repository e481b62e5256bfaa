package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/repository"
)

// Service owns subscription CRUD and enforces plan policy on every mutation.
// Policy is checked at mutation time only: a plan downgrade never revokes an
// existing subscription, the next edit re-validates it.
type Service struct {
	subs        repository.SubscriptionRepository
	subscribers repository.SubscriberRepository
	logger      zerolog.Logger
}

func NewService(subs repository.SubscriptionRepository, subscribers repository.SubscriberRepository, logger zerolog.Logger) *Service {
	return &Service{
		subs:        subs,
		subscribers: subscribers,
		logger:      logger.With().Str("component", "registry").Logger(),
	}
}

// Create validates the config against the owner's plan quota and stores a new
// enabled subscription. Admins may create on behalf of any subscriber.
func (s *Service) Create(ctx context.Context, ident authz.Identity, targetSubscriberID string, cfg models.SubscriptionConfig) (models.Subscription, error) {
	ownerID, err := s.resolveTarget(ident, targetSubscriberID)
	if err != nil {
		return models.Subscription{}, err
	}

	owner, err := s.subscribers.GetByID(ctx, ownerID)
	if err != nil {
		return models.Subscription{}, err
	}

	normalized, err := s.validateConfig(ident, owner, cfg)
	if err != nil {
		return models.Subscription{}, err
	}

	quota := owner.EffectiveQuota()
	count, err := s.subs.CountEnabled(ctx, ownerID)
	if err != nil {
		return models.Subscription{}, err
	}
	if count >= quota.MaxEnabledSubscriptions {
		return models.Subscription{}, fmt.Errorf("%w: plan allows %d enabled subscriptions",
			models.ErrQuotaExceeded, quota.MaxEnabledSubscriptions)
	}

	normalized.SubscriberID = ownerID
	normalized.Enabled = true

	created, err := s.subs.Create(ctx, normalized)
	if err != nil {
		return models.Subscription{}, err
	}

	s.logger.Info().
		Str("subscription_id", created.ID).
		Str("subscriber_id", ownerID).
		Str("strategy_id", created.StrategyID).
		Msg("subscription created")
	return created, nil
}

// Update re-validates the full config against the owner's current plan.
func (s *Service) Update(ctx context.Context, ident authz.Identity, id string, cfg models.SubscriptionConfig) (models.Subscription, error) {
	existing, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return models.Subscription{}, err
	}
	if err := s.authorize(ident, existing); err != nil {
		return models.Subscription{}, err
	}

	owner, err := s.subscribers.GetByID(ctx, existing.SubscriberID)
	if err != nil {
		return models.Subscription{}, err
	}

	normalized, err := s.validateConfig(ident, owner, cfg)
	if err != nil {
		return models.Subscription{}, err
	}

	normalized.ID = existing.ID
	normalized.SubscriberID = existing.SubscriberID
	normalized.Enabled = existing.Enabled

	return s.subs.Update(ctx, normalized)
}

// Disable excludes the subscription from all future matching. Events already
// matched keep their notifications and complete dispatch normally.
func (s *Service) Disable(ctx context.Context, ident authz.Identity, id string) (models.Subscription, error) {
	existing, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return models.Subscription{}, err
	}
	if err := s.authorize(ident, existing); err != nil {
		return models.Subscription{}, err
	}
	return s.subs.Disable(ctx, id)
}

func (s *Service) List(ctx context.Context, ident authz.Identity, targetSubscriberID string) ([]models.Subscription, error) {
	ownerID, err := s.resolveTarget(ident, targetSubscriberID)
	if err != nil {
		return nil, err
	}
	return s.subs.ListBySubscriber(ctx, ownerID)
}

// OverrideQuota sets per-subscriber ceilings above the plan defaults
// (gift/extend). Admin capability only.
func (s *Service) OverrideQuota(ctx context.Context, ident authz.Identity, subscriberID string, maxSubscriptions, perHour *int) (models.Subscriber, error) {
	if !ident.IsAdmin() {
		return models.Subscriber{}, fmt.Errorf("%w: quota override requires admin", models.ErrForbidden)
	}
	return s.subscribers.SetQuotaOverride(ctx, subscriberID, maxSubscriptions, perHour)
}

func (s *Service) resolveTarget(ident authz.Identity, targetSubscriberID string) (string, error) {
	if targetSubscriberID == "" || targetSubscriberID == ident.SubscriberID {
		return ident.SubscriberID, nil
	}
	if !ident.IsAdmin() {
		return "", fmt.Errorf("%w: cannot manage another subscriber's alerts", models.ErrForbidden)
	}
	return targetSubscriberID, nil
}

func (s *Service) authorize(ident authz.Identity, sub models.Subscription) error {
	if ident.IsAdmin() || sub.SubscriberID == ident.SubscriberID {
		return nil
	}
	return fmt.Errorf("%w: cannot manage another subscriber's alerts", models.ErrForbidden)
}

// validateConfig turns the mutation record into a normalized subscription,
// rejecting malformed scopes and channels the owner's plan does not cover.
func (s *Service) validateConfig(ident authz.Identity, owner models.Subscriber, cfg models.SubscriptionConfig) (models.Subscription, error) {
	strategyID := strings.TrimSpace(cfg.StrategyID)
	if strategyID == "" {
		return models.Subscription{}, fmt.Errorf("%w: strategy scope is required", models.ErrInvalidConfig)
	}

	symbols, err := normalizeSymbols(cfg.Symbols)
	if err != nil {
		return models.Subscription{}, err
	}

	eventTypes, err := normalizeEventTypes(cfg.EventTypes)
	if err != nil {
		return models.Subscription{}, err
	}

	if cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		return models.Subscription{}, fmt.Errorf("%w: min_confidence %d out of range 0-100",
			models.ErrInvalidConfig, cfg.MinConfidence)
	}

	if len(cfg.Channels) == 0 {
		return models.Subscription{}, fmt.Errorf("%w: at least one channel is required", models.ErrInvalidConfig)
	}
	quota := owner.EffectiveQuota()
	channels := make([]models.Channel, 0, len(cfg.Channels))
	seen := map[models.Channel]bool{}
	for _, raw := range cfg.Channels {
		ch := models.Channel(strings.TrimSpace(raw))
		if !models.IsValidChannel(ch) {
			return models.Subscription{}, fmt.Errorf("%w: unknown channel %q", models.ErrInvalidConfig, raw)
		}
		if seen[ch] {
			continue
		}
		seen[ch] = true
		if ch.RequiresAdmin() {
			// Capability check, not a quota check: broadcast is the
			// operator-curated feed and only admins may assign it.
			if !ident.IsAdmin() {
				return models.Subscription{}, fmt.Errorf("%w: channel %q is operator-assigned", models.ErrForbidden, ch)
			}
		} else if !quota.ChannelAllowed(ch) {
			return models.Subscription{}, fmt.Errorf("%w: channel %q", models.ErrChannelNotAllowed, ch)
		}
		channels = append(channels, ch)
	}

	return models.Subscription{
		StrategyID:    strategyID,
		Symbols:       symbols,
		EventTypes:    eventTypes,
		MinConfidence: cfg.MinConfidence,
		Channels:      channels,
	}, nil
}

func normalizeSymbols(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty symbol scope matches nothing", models.ErrInvalidConfig)
	}
	var symbols []string
	seen := map[string]bool{}
	for _, sym := range raw {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			return nil, fmt.Errorf("%w: blank symbol", models.ErrInvalidConfig)
		}
		if sym == models.Wildcard {
			return []string{models.Wildcard}, nil
		}
		if !seen[sym] {
			seen[sym] = true
			symbols = append(symbols, sym)
		}
	}
	return symbols, nil
}

func normalizeEventTypes(raw []string) ([]models.EventType, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty event type set matches nothing", models.ErrInvalidConfig)
	}
	var types []models.EventType
	seen := map[models.EventType]bool{}
	for _, t := range raw {
		et := models.EventType(strings.TrimSpace(t))
		if string(et) == models.Wildcard {
			return []models.EventType{models.EventType(models.Wildcard)}, nil
		}
		if !models.IsValidEventType(et) {
			return nil, fmt.Errorf("%w: unknown event type %q", models.ErrInvalidConfig, t)
		}
		if !seen[et] {
			seen[et] = true
			types = append(types, et)
		}
	}
	return types, nil
}
