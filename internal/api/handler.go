// Package api provides HTTP handlers for the assistant API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFromError maps the domain error taxonomy onto HTTP status codes.
func StatusFromError(err error) int {
	var remote *domain.RemoteAPIError
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusConflict
	case errors.As(err, &remote), errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status StatusFromError picks. Internal
// failures are not echoed to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	Error(w, status, msg)
}
