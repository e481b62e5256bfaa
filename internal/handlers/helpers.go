package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/whilber-ai/alert-engine/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the domain sentinels onto HTTP statuses. Unknown
// errors are reported as 500 without leaking internals.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrChannelNotAllowed), errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrQuotaExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
