package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/sequencer"
)

// EventHandler is the HTTP ingress for lifecycle events, used by strategy
// runners that do not publish to Kafka and by operators injecting test
// events. Admin only.
type EventHandler struct {
	sequencer *sequencer.Sequencer
	logger    zerolog.Logger
}

func NewEventHandler(seq *sequencer.Sequencer, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		sequencer: seq,
		logger:    logger.With().Str("handler", "event").Logger(),
	}
}

func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var ev models.Event
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	// Ids are assigned by the sequencer, never accepted from callers.
	ev.ID = 0

	stored, err := h.sequencer.Append(r.Context(), ev)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, stored)
}
