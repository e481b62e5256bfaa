package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub models.Subscription) (models.Subscription, error)
	Update(ctx context.Context, sub models.Subscription) (models.Subscription, error)
	Disable(ctx context.Context, id string) (models.Subscription, error)
	GetByID(ctx context.Context, id string) (models.Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
	ListEnabled(ctx context.Context) ([]models.Subscription, error)
	CountEnabled(ctx context.Context, subscriberID string) (int, error)
}

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

const subscriptionColumns = `id, subscriber_id, strategy_id, symbols, event_types, min_confidence,
	channels, enabled, created_at, updated_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	query := `
		INSERT INTO alerts.subscriptions (id, subscriber_id, strategy_id, symbols, event_types, min_confidence, channels, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + subscriptionColumns

	row := r.db.QueryRowContext(ctx, query,
		sub.ID,
		sub.SubscriberID,
		sub.StrategyID,
		pq.Array(sub.Symbols),
		pq.Array(eventTypesToStrings(sub.EventTypes)),
		sub.MinConfidence,
		pq.Array(channelsToStrings(sub.Channels)),
		sub.Enabled,
	)
	return scanSubscription(row)
}

func (r *subscriptionRepository) Update(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	query := `
		UPDATE alerts.subscriptions
		SET strategy_id = $2, symbols = $3, event_types = $4, min_confidence = $5, channels = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriptionColumns

	row := r.db.QueryRowContext(ctx, query,
		sub.ID,
		sub.StrategyID,
		pq.Array(sub.Symbols),
		pq.Array(eventTypesToStrings(sub.EventTypes)),
		sub.MinConfidence,
		pq.Array(channelsToStrings(sub.Channels)),
	)
	updated, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, models.ErrNotFound
	}
	return updated, err
}

func (r *subscriptionRepository) Disable(ctx context.Context, id string) (models.Subscription, error) {
	query := `
		UPDATE alerts.subscriptions
		SET enabled = FALSE, updated_at = now()
		WHERE id = $1
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, models.ErrNotFound
	}
	return sub, err
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM alerts.subscriptions
		WHERE id = $1`

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, models.ErrNotFound
	}
	return sub, err
}

func (r *subscriptionRepository) ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM alerts.subscriptions
		WHERE subscriber_id = $1
		ORDER BY created_at`

	return r.list(ctx, query, subscriberID)
}

// ListEnabled returns the registry snapshot the match engine evaluates
// against. Matching is pure over this snapshot, which makes replay safe.
func (r *subscriptionRepository) ListEnabled(ctx context.Context) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM alerts.subscriptions
		WHERE enabled
		ORDER BY created_at`

	return r.list(ctx, query)
}

func (r *subscriptionRepository) CountEnabled(ctx context.Context, subscriberID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM alerts.subscriptions WHERE subscriber_id = $1 AND enabled`
	if err := r.db.QueryRowContext(ctx, query, subscriberID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *subscriptionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func scanSubscription(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Subscription, error) {
	var (
		sub        models.Subscription
		symbols    pq.StringArray
		eventTypes pq.StringArray
		channels   pq.StringArray
	)

	if err := scanner.Scan(
		&sub.ID,
		&sub.SubscriberID,
		&sub.StrategyID,
		&symbols,
		&eventTypes,
		&sub.MinConfidence,
		&channels,
		&sub.Enabled,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		return models.Subscription{}, err
	}

	sub.Symbols = symbols
	sub.EventTypes = stringsToEventTypes(eventTypes)
	sub.Channels = stringsToChannels(channels)
	return sub, nil
}

func eventTypesToStrings(types []models.EventType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func stringsToEventTypes(values []string) []models.EventType {
	out := make([]models.EventType, 0, len(values))
	for _, v := range values {
		out = append(out, models.EventType(v))
	}
	return out
}

func channelsToStrings(channels []models.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, string(c))
	}
	return out
}

func stringsToChannels(values []string) []models.Channel {
	out := make([]models.Channel, 0, len(values))
	for _, v := range values {
		out = append(out, models.Channel(v))
	}
	return out
}
