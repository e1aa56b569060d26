package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/service"
)

// ChatHandler handles HTTP requests for legal questions.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest represents the HTTP request payload for chat.
//
// swagger:model ChatRequest
type ChatRequest struct {
	// The legal question, at most 1000 characters
	Query string `json:"query"`

	// Restrict retrieval to one category
	CategoryFilter string `json:"category_filter,omitempty"`

	// Number of chunks to retrieve, 1 to 20
	TopK *int `json:"top_k,omitempty"`

	// Attach retrieval and generation details
	IncludeDebug bool `json:"include_debug,omitempty"`
}

// ServeHTTP handles HTTP requests for chat.
//
// swagger:route POST /api/v1/chat chat
//
// # Answer a legal question
//
// Retrieves relevant legal documents and generates a cited answer. Debug output is
// enabled by include_debug or the ?debug=true query parameter.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer, including no-knowledge and degraded answers
//	'400':
//	  description: Invalid request
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, errCodeMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, errCodeBadRequest, "Invalid request body")
		return
	}

	debug := req.IncludeDebug
	if raw := r.URL.Query().Get("debug"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			debug = debug || v
		}
	}

	// Convert HTTP request to service request
	svcReq := service.ChatRequest{
		Query:          req.Query,
		CategoryFilter: req.CategoryFilter,
		TopK:           req.TopK,
		IncludeDebug:   debug,
	}

	resp, err := h.chatService.ProcessChat(ctx, svcReq)
	if err != nil {
		h.handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, resp)
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func (h *ChatHandler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		logger.WarnContext(ctx, "chat request rejected", "field", validationErr.Field, "error", validationErr.Message)
		writeError(ctx, w, http.StatusBadRequest, errCodeValidation, validationErr.Error())
		return
	}

	logger.ErrorContext(ctx, "service error", "error", err)

	if errors.Is(err, service.ErrInvalidInput) {
		writeError(ctx, w, http.StatusBadRequest, errCodeBadRequest, "Invalid input")
		return
	}
	if errors.Is(err, service.ErrExternalService) {
		writeError(ctx, w, http.StatusBadGateway, errCodeUpstream, "External service error")
		return
	}

	writeError(ctx, w, http.StatusInternalServerError, errCodeInternal, "Failed to process chat request")
}
