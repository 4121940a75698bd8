// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/purposepath-ai/coaching-engine/internal/apperrors"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with a stable machine-readable code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":  code,
		"error": message,
	})
}

// writeServiceError maps a service error onto an HTTP status and its stable
// error code.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrAlreadyCompleted),
		errors.Is(err, apperrors.ErrConversationPaused):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidTopic):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, apperrors.Code(err), err.Error())
}
