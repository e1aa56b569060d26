package rag

import (
	"time"

	"legal-assistant/internal/domain"
)

// Retrieval tiers. TierNone marks an empty result.
const (
	TierNone    = 0
	TierStrict  = 1
	TierRelaxed = 2
)

// AskRequest represents a legal question to answer.
type AskRequest struct {
	// Query is the user's question as typed.
	Query string
	// Category restricts retrieval to one category. Empty searches all categories.
	Category domain.Category
	// TopK overrides the strict tier result count when positive.
	TopK int
	// IncludeDebug attaches retrieval and generation details to the response.
	IncludeDebug bool
}

// ScoredChunk is a retrieved chunk with its cosine similarity and the tier that found it.
type ScoredChunk struct {
	Chunk domain.Chunk
	Score float64
	Tier  int
}

// RetrievalResult is the ordered outcome of tiered retrieval, best first.
type RetrievalResult struct {
	Chunks []ScoredChunk
	// Tier is the tier whose results are returned, or TierNone when empty.
	Tier int
	// Degraded is set when only the relaxed tier produced results.
	Degraded bool
	// StrictCount is how many chunks the strict tier returned.
	StrictCount int
	// RelaxedInvoked reports whether the relaxed tier was queried.
	RelaxedInvoked bool
}

// Empty reports whether no chunk was found in any tier.
func (r RetrievalResult) Empty() bool {
	return len(r.Chunks) == 0
}

// Scores returns the similarity of every chunk in order.
func (r RetrievalResult) Scores() []float64 {
	out := make([]float64, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Score
	}
	return out
}

// Citation is a numbered source shared by the generation prompt and the API response.
type Citation struct {
	Index          int             `json:"index"`
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Organization   string          `json:"organization"`
	URL            string          `json:"url"`
	LastVerified   string          `json:"last_verified,omitempty"`
	RelevanceScore float64         `json:"relevance_score"`
	Category       domain.Category `json:"category"`
}

// ChatResponse is the answer to one AskRequest.
type ChatResponse struct {
	// Answer contains inline [n] markers that refer to Sources by Index.
	Answer     string           `json:"answer"`
	Sources    []Citation       `json:"sources"`
	Confidence float64          `json:"confidence"`
	Category   *domain.Category `json:"category"`
	Debug      *DebugInfo       `json:"debug_info,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// DebugInfo contains retrieval and generation details for evaluation.
type DebugInfo struct {
	NormalizedQuery string       `json:"normalized_query"`
	TierUsed        int          `json:"tier_used"`
	Degraded        bool         `json:"degraded"`
	StrictCount     int          `json:"strict_count"`
	RelaxedInvoked  bool         `json:"relaxed_invoked"`
	RetrievedCount  int          `json:"retrieved_docs_count"`
	RetrievalScores []ScoreEntry `json:"retrieval_scores"`
	IncludedChunks  int          `json:"included_chunks"`
	DroppedChunks   int          `json:"dropped_chunks"`
	ContextChars    int          `json:"context_chars"`
	// DanglingCitations is how many [n] markers without a matching source were removed.
	DanglingCitations int             `json:"dangling_citations_removed"`
	Generation        *GenerationInfo `json:"llm_metadata,omitempty"`
	ConfidenceScore   float64         `json:"confidence_score"`
	DetectedCategory  string          `json:"detected_category,omitempty"`
	Timings           Timings         `json:"timings_ms"`
	Error             string          `json:"error,omitempty"`
}

// ScoreEntry is one retrieved chunk as reported in debug output.
type ScoreEntry struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Tier     int     `json:"tier"`
	Included bool    `json:"included"`
}

// GenerationInfo describes the completion call.
type GenerationInfo struct {
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Timings are stage durations in milliseconds.
type Timings struct {
	Normalize  int64 `json:"normalize"`
	Retrieval  int64 `json:"retrieval"`
	Generation int64 `json:"generation"`
	Total      int64 `json:"total"`
}
