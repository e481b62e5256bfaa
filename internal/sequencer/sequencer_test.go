package sequencer

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
)

type fakeEventRepo struct {
	events  []models.Event
	cursors map[string]int64
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{cursors: map[string]int64{}}
}

func (r *fakeEventRepo) Append(_ context.Context, ev models.Event) (models.Event, error) {
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return ev, nil
}

func (r *fakeEventRepo) Since(_ context.Context, afterID int64, limit int) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range r.events {
		if ev.ID > afterID {
			out = append(out, ev)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeEventRepo) GetCursor(_ context.Context, name string) (int64, error) {
	return r.cursors[name], nil
}

func (r *fakeEventRepo) SetCursor(_ context.Context, name string, lastEventID int64) error {
	r.cursors[name] = lastEventID
	return nil
}

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	seq := NewSequencer(newFakeEventRepo(), zerolog.Nop())

	var lastID int64
	for i := 0; i < 3; i++ {
		ev, err := seq.Append(context.Background(), models.Event{
			StrategyID: "strat-gold",
			Symbol:     "xauusd",
			Type:       models.EventSignal,
		})
		if err != nil {
			t.Fatalf("Append() error: %v", err)
		}
		if ev.ID <= lastID {
			t.Fatalf("id %d not greater than previous %d", ev.ID, lastID)
		}
		lastID = ev.ID
		if ev.Symbol != "XAUUSD" {
			t.Errorf("symbol = %q, want uppercased XAUUSD", ev.Symbol)
		}
		if ev.OccurredAt.IsZero() {
			t.Error("OccurredAt not defaulted")
		}
	}
}

func TestAppendRejectsInvalidEvents(t *testing.T) {
	seq := NewSequencer(newFakeEventRepo(), zerolog.Nop())
	confidence := 250

	tests := []struct {
		name  string
		event models.Event
	}{
		{"missing strategy", models.Event{Symbol: "EURUSD", Type: models.EventSignal}},
		{"missing symbol", models.Event{StrategyID: "s", Type: models.EventSignal}},
		{"unknown type", models.Event{StrategyID: "s", Symbol: "EURUSD", Type: "margin_call"}},
		{"confidence out of range", models.Event{StrategyID: "s", Symbol: "EURUSD", Type: models.EventSignal, Confidence: &confidence}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := seq.Append(context.Background(), tt.event); !errors.Is(err, models.ErrInvalidConfig) {
				t.Fatalf("Append() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAppendWakesPipeline(t *testing.T) {
	seq := NewSequencer(newFakeEventRepo(), zerolog.Nop())

	if _, err := seq.Append(context.Background(), models.Event{
		StrategyID: "s", Symbol: "EURUSD", Type: models.EventEntry,
	}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	select {
	case <-seq.Wake():
	default:
		t.Fatal("Append() did not signal the wake channel")
	}
}
