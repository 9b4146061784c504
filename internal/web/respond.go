// Package web holds the response helpers shared by all HTTP handlers.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/falconadvisor/falcon/internal/domain"
)

// JSON writes data wrapped in the standard response envelope.
func JSON(log zerolog.Logger, w http.ResponseWriter, status int, data any) {
	response := map[string]any{
		"data": data,
		"metadata": map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// Error maps a domain error to an HTTP status and writes the JSON error
// envelope. Unrecognized errors are logged and reported as a bare 500.
func Error(log zerolog.Logger, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"error": err.Error()}

	var validationErr *domain.ValidationError
	var conflictErr *domain.ConflictError
	var configErr *domain.ConfigurationError
	var persistErr *domain.PersistenceError
	var brokerErr *domain.BrokerError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		body["field"] = validationErr.Field
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
		body["status"] = string(conflictErr.From)
	case errors.As(err, &configErr):
		status = http.StatusInternalServerError
	case errors.As(err, &persistErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &brokerErr):
		status = http.StatusBadGateway
	default:
		log.Error().Err(err).Msg("Unhandled error in HTTP handler")
		body["error"] = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		log.Error().Err(encErr).Msg("Failed to encode error response")
	}
}

// NotFound writes the standard 404 envelope.
func NotFound(log zerolog.Logger, w http.ResponseWriter, what string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	if err := json.NewEncoder(w).Encode(map[string]any{"error": what + " not found"}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}
