package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks legal-assistant/internal/rag Engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/domain"
	"legal-assistant/internal/llm"
	"legal-assistant/internal/metrics"
	"legal-assistant/internal/retry"
)

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question from the knowledge base. Only ErrInvalidQuery is
	// returned as an error; service failures produce a response with zero confidence.
	Ask(ctx context.Context, req AskRequest) (ChatResponse, error)
}

// Normalizer rewrites a raw query into its canonical form.
type Normalizer interface {
	Normalize(raw string) (string, error)
}

// Retriever finds chunks for a normalized query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, category domain.Category, topK int) (RetrievalResult, error)
}

// Generator produces an answer from chat messages.
type Generator interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (llm.Completion, error)
}

// Recorder receives one observation per answered or failed query.
type Recorder interface {
	Record(obs metrics.Observation)
}

// EngineOptions configures the pipeline stages after retrieval.
type EngineOptions struct {
	Assembler ContextAssembler
	Scorer    ConfidenceScorer
	// Retry wraps the generation call.
	Retry retry.Policy
	// QueryTimeout bounds a whole Ask call; zero disables it.
	QueryTimeout time.Duration
}

const systemPrompt = `You are a legal assistant for foreigners living in Poland. You answer questions about Polish law and everyday administrative matters.

Rules:
1. Use only the information in the context below.
2. Cite every factual statement with the bracketed number of its source, for example [1] or [2].
3. If the context does not contain enough information, say so explicitly.
4. Mention when information depends on a change in the law and which version it describes.
5. For complex legal matters, recommend official sources or a legal professional.
6. Write in clear, simple English and explain legal terms.
7. If you are unsure about a detail, say so.

Format: short paragraphs or steps, with a citation after each fact.

Context:
%s`

// ragEngine implements the Engine interface.
type ragEngine struct {
	normalizer Normalizer
	retriever  Retriever
	generator  Generator
	recorder   Recorder
	opts       EngineOptions
	now        func() time.Time
}

// NewEngine creates a new RAG engine.
func NewEngine(normalizer Normalizer, retriever Retriever, generator Generator, recorder Recorder, opts EngineOptions) Engine {
	return &ragEngine{
		normalizer: normalizer,
		retriever:  retriever,
		generator:  generator,
		recorder:   recorder,
		opts:       opts,
		now:        time.Now,
	}
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := e.now()

	normalized, err := e.normalizer.Normalize(req.Query)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	query := strings.TrimSpace(req.Query)

	var debug *DebugInfo
	if req.IncludeDebug {
		debug = &DebugInfo{NormalizedQuery: normalized, RetrievalScores: []ScoreEntry{}}
		debug.Timings.Normalize = e.since(start)
	}

	if e.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.QueryTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "RAG query started",
		"query_length", len(query),
		"category", req.Category,
		"top_k", req.TopK,
	)

	retrievalStart := e.now()
	retrieved, err := e.retriever.Retrieve(ctx, normalized, req.Category, req.TopK)
	if debug != nil {
		debug.Timings.Retrieval = e.since(retrievalStart)
	}
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		e.recorder.Record(metrics.Observation{
			Category: string(req.Category),
			Outcome:  metrics.OutcomeRetrievalUnavailable,
			Query:    normalized,
		})
		return e.failure(RetrievalUnavailableAnswer, err, debug, start), nil
	}
	if debug != nil {
		debug.TierUsed = retrieved.Tier
		debug.Degraded = retrieved.Degraded
		debug.StrictCount = retrieved.StrictCount
		debug.RelaxedInvoked = retrieved.RelaxedInvoked
		debug.RetrievedCount = len(retrieved.Chunks)
	}

	if retrieved.Empty() {
		logger.WarnContext(ctx, "no relevant documents found",
			"strict_results", retrieved.StrictCount,
			"relaxed_invoked", retrieved.RelaxedInvoked,
		)
		e.recorder.Record(metrics.Observation{
			Tier:     metrics.TierNone,
			Category: string(req.Category),
			Outcome:  metrics.OutcomeNoKnowledge,
			Query:    normalized,
		})
		return e.finish(ChatResponse{
			Answer:   NoKnowledgeAnswer,
			Sources:  []Citation{},
			Category: categoryRef(req.Category),
		}, debug, start), nil
	}

	assembled := e.opts.Assembler.Assemble(retrieved.Chunks)
	if debug != nil {
		debug.IncludedChunks = len(assembled.Included)
		debug.DroppedChunks = assembled.Dropped
		debug.ContextChars = len([]rune(assembled.Text))
		for i, c := range retrieved.Chunks {
			debug.RetrievalScores = append(debug.RetrievalScores, ScoreEntry{
				ID:       c.Chunk.ID,
				Score:    c.Score,
				Tier:     c.Tier,
				Included: i < len(assembled.Included),
			})
		}
	}
	logger.InfoContext(ctx, "context assembled",
		"tier", retrieved.Tier,
		"degraded", retrieved.Degraded,
		"chunks_included", len(assembled.Included),
		"chunks_dropped", assembled.Dropped,
	)
	logger.DebugContext(ctx, "full context being sent to LLM", "context", assembled.Text)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPrompt, assembled.Text)},
		{Role: llm.RoleUser, Content: query},
	}

	generationStart := e.now()
	completion, err := retry.Value(ctx, e.opts.Retry, "generate answer", func(ctx context.Context) (llm.Completion, error) {
		c, err := e.generator.ChatWithMessages(ctx, messages, llm.ChatParams{})
		if err != nil {
			return llm.Completion{}, err
		}
		if strings.TrimSpace(c.Text) == "" {
			return llm.Completion{}, errEmptyAnswer
		}
		return c, nil
	})
	if debug != nil {
		debug.Timings.Generation = e.since(generationStart)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
		logger.ErrorContext(ctx, "generation failed", "error", err)
		e.recorder.Record(metrics.Observation{
			Tier:     retrieved.Tier,
			Scores:   retrieved.Scores(),
			Category: string(req.Category),
			Outcome:  metrics.OutcomeGenerationUnavailable,
			Query:    normalized,
		})
		return e.failure(GenerationUnavailableAnswer, err, debug, start), nil
	}

	answer, dangling := SanitizeCitations(completion.Text, len(assembled.Citations))
	if dangling > 0 {
		logger.WarnContext(ctx, "removed citations without a source", "count", dangling)
	}
	confidence := e.opts.Scorer.Score(assembled.Included, completion.Completed())
	category := detectCategory(req.Category, assembled.Included)

	if debug != nil {
		debug.DanglingCitations = dangling
		debug.Generation = &GenerationInfo{
			Model:            completion.Model,
			FinishReason:     completion.FinishReason,
			PromptTokens:     completion.PromptTokens,
			CompletionTokens: completion.CompletionTokens,
		}
		debug.ConfidenceScore = confidence
		if category != nil {
			debug.DetectedCategory = category.String()
		}
	}

	e.recorder.Record(metrics.Observation{
		Tier:     retrieved.Tier,
		Scores:   retrieved.Scores(),
		Category: categoryName(category),
		Outcome:  metrics.OutcomeAnswered,
	})

	logger.InfoContext(ctx, "RAG query completed",
		"confidence", confidence,
		"category", categoryName(category),
		"tier", retrieved.Tier,
		"finish_reason", completion.FinishReason,
		"answer_length", len(answer),
	)

	return e.finish(ChatResponse{
		Answer:     answer,
		Sources:    assembled.Citations,
		Confidence: confidence,
		Category:   category,
	}, debug, start), nil
}

func (e *ragEngine) failure(answer string, err error, debug *DebugInfo, start time.Time) ChatResponse {
	if debug != nil {
		debug.Error = err.Error()
	}
	return e.finish(ChatResponse{Answer: answer, Sources: []Citation{}}, debug, start)
}

func (e *ragEngine) finish(resp ChatResponse, debug *DebugInfo, start time.Time) ChatResponse {
	if debug != nil {
		debug.Timings.Total = e.since(start)
		resp.Debug = debug
	}
	resp.Timestamp = e.now().UTC()
	return resp
}

func (e *ragEngine) since(t time.Time) int64 {
	return e.now().Sub(t).Milliseconds()
}

// detectCategory prefers the requested filter, then the category of the best chunk.
func detectCategory(requested domain.Category, included []ScoredChunk) *domain.Category {
	if requested != "" {
		return categoryRef(requested)
	}
	if len(included) > 0 && included[0].Chunk.Category.Valid() {
		return categoryRef(included[0].Chunk.Category)
	}
	return nil
}

func categoryRef(c domain.Category) *domain.Category {
	if c == "" {
		return nil
	}
	return &c
}

func categoryName(c *domain.Category) string {
	if c == nil {
		return ""
	}
	return c.String()
}

var _ Recorder = (*metrics.Collector)(nil)
