package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks legal-assistant/internal/service ChatService,MetricsService,HealthService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/domain"
	"legal-assistant/internal/rag"
)

// Request limits.
const (
	MaxQueryLength = 1000
	MinTopK        = 1
	MaxTopK        = 20
)

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Query          string
	CategoryFilter string
	// TopK is nil when the caller did not ask for a specific count.
	TopK         *int
	IncludeDebug bool
}

// ChatService answers legal questions.
type ChatService interface {
	// ProcessChat validates the request and runs it through the RAG engine.
	ProcessChat(ctx context.Context, req ChatRequest) (rag.ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	engine rag.Engine
}

// NewChatService creates a new ChatService.
func NewChatService(engine rag.Engine) ChatService {
	return &chatService{engine: engine}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (rag.ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	askReq, err := validate(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid chat request", "error", err)
		return rag.ChatResponse{}, err
	}

	resp, err := s.engine.Ask(ctx, askReq)
	if err != nil {
		if errors.Is(err, rag.ErrInvalidQuery) {
			return rag.ChatResponse{}, &ValidationError{Field: "query", Message: "cannot be empty"}
		}
		logger.ErrorContext(ctx, "failed to answer query", "error", err)
		return rag.ChatResponse{}, WrapError(fmt.Errorf("%w: %w", ErrExternalService, err), "failed to answer query")
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"query_length", utf8.RuneCountInString(req.Query),
		"sources", len(resp.Sources),
		"confidence", resp.Confidence,
	)
	return resp, nil
}

func validate(req ChatRequest) (rag.AskRequest, error) {
	out := rag.AskRequest{Query: req.Query, IncludeDebug: req.IncludeDebug}

	if strings.TrimSpace(req.Query) == "" {
		return out, &ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if n := utf8.RuneCountInString(req.Query); n > MaxQueryLength {
		return out, &ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("must be at most %d characters, got %d", MaxQueryLength, n),
		}
	}

	if req.CategoryFilter != "" {
		category, err := domain.ParseCategory(req.CategoryFilter)
		if err != nil {
			return out, &ValidationError{
				Field:   "category_filter",
				Message: fmt.Sprintf("must be one of %v", domain.Categories()),
			}
		}
		out.Category = category
	}

	if req.TopK != nil {
		if *req.TopK < MinTopK || *req.TopK > MaxTopK {
			return out, &ValidationError{
				Field:   "top_k",
				Message: fmt.Sprintf("must be between %d and %d", MinTopK, MaxTopK),
			}
		}
		out.TopK = *req.TopK
	}
	return out, nil
}
