package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/whilber-ai/alert-engine/internal/models"
)

func TestSinceCapsTheBatchSize(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "strategy_id", "strategy_name", "symbol", "event_type", "direction", "price",
		"confidence", "pnl", "detail", "occurred_at", "created_at",
	}).AddRow(
		int64(11), "strat-gold", "Gold Scalper", "XAUUSD", "near_sl", "buy", 2411.5,
		int64(72), nil, "", time.Now().UTC(), time.Now().UTC(),
	)

	mock.ExpectQuery(`SELECT (.+) FROM alerts\.events`).
		WithArgs(int64(10), 500).
		WillReturnRows(rows)

	repo := NewEventRepository(db)
	events, err := repo.Since(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("Since() error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Type != models.EventNearSL {
		t.Errorf("type = %q, want near_sl", ev.Type)
	}
	if ev.Confidence == nil || *ev.Confidence != 72 {
		t.Errorf("confidence = %v, want 72", ev.Confidence)
	}
	if ev.PnL != nil {
		t.Errorf("pnl = %v, want nil", ev.PnL)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetCursorDefaultsToZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT last_event_id FROM alerts\.pipeline_cursor`).
		WithArgs("match").
		WillReturnRows(sqlmock.NewRows([]string{"last_event_id"}))

	repo := NewEventRepository(db)
	cursor, err := repo.GetCursor(context.Background(), "match")
	if err != nil {
		t.Fatalf("GetCursor() error: %v", err)
	}
	if cursor != 0 {
		t.Errorf("cursor = %d, want 0 for a missing row", cursor)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSetCursorUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO alerts\.pipeline_cursor`).
		WithArgs("match", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewEventRepository(db)
	if err := repo.SetCursor(context.Background(), "match", 42); err != nil {
		t.Fatalf("SetCursor() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
