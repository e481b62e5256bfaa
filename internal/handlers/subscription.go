package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/registry"
)

type SubscriptionHandler struct {
	registry *registry.Service
	logger   zerolog.Logger
}

func NewSubscriptionHandler(reg *registry.Service, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		registry: reg,
		logger:   logger.With().Str("handler", "subscription").Logger(),
	}
}

// decodeConfig parses a subscription mutation body, rejecting unknown fields
// so typos fail loudly instead of silently widening a filter.
func decodeConfig(r *http.Request) (models.SubscriptionConfig, error) {
	var cfg models.SubscriptionConfig
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&cfg)
	return cfg, err
}

// targetSubscriber resolves the optional subscriber_id query parameter used
// by admins acting on behalf of another subscriber.
func targetSubscriber(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("subscriber_id"))
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	cfg, err := decodeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.registry.Create(r.Context(), ident, targetSubscriber(r), cfg)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["subscriptionID"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "subscription id is required")
		return
	}

	cfg, err := decodeConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.registry.Update(r.Context(), ident, id, cfg)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) Disable(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["subscriptionID"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "subscription id is required")
		return
	}

	sub, err := h.registry.Disable(r.Context(), ident, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	subs, err := h.registry.List(r.Context(), ident, targetSubscriber(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

type quotaOverrideRequest struct {
	MaxSubscriptions *int `json:"max_subscriptions"`
	PerHour          *int `json:"per_hour"`
}

// OverrideQuota lifts a subscriber's ceilings above their plan defaults.
// Admin only; routed behind authz.RequireRole.
func (h *SubscriptionHandler) OverrideQuota(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	subscriberID := strings.TrimSpace(mux.Vars(r)["subscriberID"])
	if subscriberID == "" {
		writeError(w, http.StatusBadRequest, "subscriber id is required")
		return
	}

	var req quotaOverrideRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sub, err := h.registry.OverrideQuota(r.Context(), ident, subscriberID, req.MaxSubscriptions, req.PerHour)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info().
		Str("subscriber_id", subscriberID).
		Msg("quota override applied")
	writeJSON(w, http.StatusOK, sub)
}
