package repository

import (
	"context"
	"database/sql"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type EventRepository interface {
	Append(ctx context.Context, ev models.Event) (models.Event, error)
	Since(ctx context.Context, afterID int64, limit int) ([]models.Event, error)
	GetCursor(ctx context.Context, name string) (int64, error)
	SetCursor(ctx context.Context, name string, lastEventID int64) error
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, strategy_id, strategy_name, symbol, event_type, direction, price,
	confidence, pnl, detail, occurred_at, created_at`

// Append assigns the next id from the log's sequence and makes the event
// visible before returning. Events are never renumbered or mutated.
func (r *eventRepository) Append(ctx context.Context, ev models.Event) (models.Event, error) {
	query := `
		INSERT INTO alerts.events (strategy_id, strategy_name, symbol, event_type, direction, price, confidence, pnl, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + eventColumns

	row := r.db.QueryRowContext(ctx, query,
		ev.StrategyID,
		ev.StrategyName,
		ev.Symbol,
		ev.Type,
		ev.Direction,
		ev.Price,
		ev.Confidence,
		ev.PnL,
		ev.Detail,
		ev.OccurredAt,
	)
	return scanEvent(row)
}

func (r *eventRepository) Since(ctx context.Context, afterID int64, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	query := `
		SELECT ` + eventColumns + `
		FROM alerts.events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) GetCursor(ctx context.Context, name string) (int64, error) {
	var id int64
	query := `SELECT last_event_id FROM alerts.pipeline_cursor WHERE name = $1`
	err := r.db.QueryRowContext(ctx, query, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

func (r *eventRepository) SetCursor(ctx context.Context, name string, lastEventID int64) error {
	query := `
		INSERT INTO alerts.pipeline_cursor (name, last_event_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET last_event_id = EXCLUDED.last_event_id, updated_at = now()`
	_, err := r.db.ExecContext(ctx, query, name, lastEventID)
	return err
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Event, error) {
	var (
		ev         models.Event
		confidence sql.NullInt64
		pnl        sql.NullFloat64
	)

	if err := scanner.Scan(
		&ev.ID,
		&ev.StrategyID,
		&ev.StrategyName,
		&ev.Symbol,
		&ev.Type,
		&ev.Direction,
		&ev.Price,
		&confidence,
		&pnl,
		&ev.Detail,
		&ev.OccurredAt,
		&ev.CreatedAt,
	); err != nil {
		return models.Event{}, err
	}

	if confidence.Valid {
		v := int(confidence.Int64)
		ev.Confidence = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		ev.PnL = &v
	}

	return ev, nil
}
