package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/authz"
	"github.com/whilber-ai/alert-engine/internal/notification"
)

type NotificationHandler struct {
	service *notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service *notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

// Poll serves the cursor-based sync endpoint. Clients pass the last id they
// have seen; an unchanged cursor yields an empty page and the same LastID.
func (h *NotificationHandler) Poll(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	var sinceID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("since_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "since_id must be a non-negative integer")
			return
		}
		sinceID = parsed
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result, err := h.service.Poll(r.Context(), ident.SubscriberID, sinceID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to poll notifications")
		writeError(w, http.StatusInternalServerError, "failed to poll notifications")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)["notificationID"]), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "notification id must be an integer")
		return
	}

	if err := h.service.MarkRead(r.Context(), ident.SubscriberID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	if err := h.service.MarkAllRead(r.Context(), ident.SubscriberID); err != nil {
		h.logger.Error().Err(err).Msg("failed to mark all notifications read")
		writeError(w, http.StatusInternalServerError, "failed to mark all read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear soft-deletes the subscriber's notification feed and zeroes the unread
// counter. Cleared notifications stay in storage but leave the poll window.
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ident, ok := authz.IdentityFromRequest(r)
	if !ok {
		http.Error(w, "Missing subscriber context", http.StatusUnauthorized)
		return
	}

	if err := h.service.Clear(r.Context(), ident.SubscriberID); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear notifications")
		writeError(w, http.StatusInternalServerError, "failed to clear notifications")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
