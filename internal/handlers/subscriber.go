package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/repository"
)

type SubscriberHandler struct {
	subscribers repository.SubscriberRepository
	logger      zerolog.Logger
}

func NewSubscriberHandler(subscribers repository.SubscriberRepository, logger zerolog.Logger) *SubscriberHandler {
	return &SubscriberHandler{
		subscribers: subscribers,
		logger:      logger.With().Str("handler", "subscriber").Logger(),
	}
}

func (h *SubscriberHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	sub, err := h.subscribers.GetByID(r.Context(), ident.SubscriberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

type contactRequest struct {
	EmailVerified  bool   `json:"email_verified"`
	TelegramChatID string `json:"telegram_chat_id"`
	WebhookURL     string `json:"webhook_url"`
	QuietStart     string `json:"quiet_start"`
	QuietEnd       string `json:"quiet_end"`
}

// UpdateContact sets the delivery endpoints for the addressed and chat
// channels, plus the quiet-hours window that mutes durable push delivery.
// A subscription can name the email channel before verification; delivery
// simply reports the channel unavailable until this is set.
func (h *SubscriberHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	var req contactRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	quietStart := strings.TrimSpace(req.QuietStart)
	quietEnd := strings.TrimSpace(req.QuietEnd)
	if (quietStart == "") != (quietEnd == "") {
		writeError(w, http.StatusBadRequest, "quiet_start and quiet_end must be set together")
		return
	}
	if quietStart != "" && (!models.IsClockTime(quietStart) || !models.IsClockTime(quietEnd)) {
		writeError(w, http.StatusBadRequest, "quiet hours must be HH:MM clock times")
		return
	}

	sub, err := h.subscribers.UpdateContact(r.Context(), ident.SubscriberID, models.ContactSettings{
		EmailVerified:  req.EmailVerified,
		TelegramChatID: strings.TrimSpace(req.TelegramChatID),
		WebhookURL:     strings.TrimSpace(req.WebhookURL),
		QuietStart:     quietStart,
		QuietEnd:       quietEnd,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

type planRequest struct {
	Plan string `json:"plan"`
}

// UpdatePlan is the billing collaborator's hook for tier changes. Admin only.
// Already-enabled subscriptions above a shrunk ceiling stay enabled; the
// ceiling binds on the next enable attempt.
func (h *SubscriberHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	subscriberID := strings.TrimSpace(mux.Vars(r)["subscriberID"])
	if subscriberID == "" {
		writeError(w, http.StatusBadRequest, "subscriber id is required")
		return
	}

	var req planRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	plan := models.PlanTier(strings.TrimSpace(req.Plan))
	if !models.IsValidPlan(plan) {
		writeError(w, http.StatusBadRequest, "unknown plan tier")
		return
	}

	sub, err := h.subscribers.UpdatePlan(r.Context(), subscriberID, plan)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info().
		Str("subscriber_id", subscriberID).
		Str("plan", string(plan)).
		Msg("plan updated")
	writeJSON(w, http.StatusOK, sub)
}
