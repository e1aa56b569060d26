package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"legal-assistant/internal/contextutil"
)

// Error codes returned in ErrorResponse.Error.
const (
	errCodeValidation       = "validation_error"
	errCodeBadRequest       = "bad_request"
	errCodeMethodNotAllowed = "method_not_allowed"
	errCodeUpstream         = "external_service_error"
	errCodeInternal         = "internal_error"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Machine readable error code
	Error string `json:"error"`
	// Human readable description
	Message string `json:"message"`
}

// writeJSON encodes v with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	writeJSON(ctx, w, status, ErrorResponse{Error: code, Message: message})
}
