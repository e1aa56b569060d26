package rag

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/domain"
	"legal-assistant/internal/retry"
	"legal-assistant/internal/vectorstore"
)

// Embedder turns texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TierParams is one retrieval pass.
type TierParams struct {
	TopK     int
	MinScore float64
}

// RetrieverOptions configures a TieredRetriever.
type RetrieverOptions struct {
	Collection string
	Strict     TierParams
	Relaxed    TierParams
	// MinStrictResults is how many strict results are enough to skip the relaxed tier.
	MinStrictResults int
	// Retry wraps both the embedding call and each index search.
	Retry retry.Policy
}

// TieredRetriever searches with a strict tier first and falls back to a relaxed tier.
type TieredRetriever struct {
	embedder Embedder
	index    vectorstore.VectorStore
	opts     RetrieverOptions
}

// NewTieredRetriever creates a retriever over the given collection.
func NewTieredRetriever(embedder Embedder, index vectorstore.VectorStore, opts RetrieverOptions) *TieredRetriever {
	return &TieredRetriever{embedder: embedder, index: index, opts: opts}
}

// Retrieve embeds the query once and runs the tiers. A positive topK replaces the
// strict result count and raises the relaxed one to at least topK. Both tiers
// coming back empty is not an error. Embedding or index failures wrap
// ErrRetrievalUnavailable.
func (r *TieredRetriever) Retrieve(ctx context.Context, query string, category domain.Category, topK int) (RetrievalResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	strict, relaxed := r.tiers(topK)

	vec, err := retry.Value(ctx, r.opts.Retry, "embed query", func(ctx context.Context) ([]float32, error) {
		vecs, err := r.embedder.EmbedTexts(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
		}
		return vecs[0], nil
	})
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	strictHits, err := r.search(ctx, vec, strict, category, TierStrict)
	if err != nil {
		return RetrievalResult{}, err
	}
	enough := min(r.opts.MinStrictResults, strict.TopK)
	logger.DebugContext(ctx, "strict tier searched",
		"results", len(strictHits),
		"min_results", enough,
		"threshold", strict.MinScore,
		"category", category,
	)
	if len(strictHits) > 0 && len(strictHits) >= enough {
		return RetrievalResult{
			Chunks:      strictHits,
			Tier:        TierStrict,
			StrictCount: len(strictHits),
		}, nil
	}

	relaxedHits, err := r.search(ctx, vec, relaxed, category, TierRelaxed)
	if err != nil {
		return RetrievalResult{}, err
	}
	logger.InfoContext(ctx, "relaxed tier searched",
		"strict_results", len(strictHits),
		"relaxed_results", len(relaxedHits),
		"threshold", relaxed.MinScore,
	)

	result := RetrievalResult{StrictCount: len(strictHits), RelaxedInvoked: true}
	switch {
	case len(relaxedHits) > 0:
		result.Chunks = relaxedHits
		result.Tier = TierRelaxed
		result.Degraded = true
	case len(strictHits) > 0:
		// The relaxed pass must be a superset; an index that says otherwise
		// still gets its strict hits used.
		result.Chunks = strictHits
		result.Tier = TierStrict
	}
	return result, nil
}

func (r *TieredRetriever) tiers(topK int) (TierParams, TierParams) {
	strict, relaxed := r.opts.Strict, r.opts.Relaxed
	if topK > 0 {
		strict.TopK = topK
		relaxed.TopK = max(relaxed.TopK, topK)
	}
	return strict, relaxed
}

func (r *TieredRetriever) search(ctx context.Context, vec []float32, tier TierParams, category domain.Category, tierNum int) ([]ScoredChunk, error) {
	minScore := float32(tier.MinScore)
	opts := vectorstore.SearchOptions{
		Limit:    tier.TopK,
		MinScore: minScore,
		Category: string(category),
	}

	results, err := retry.Value(ctx, r.opts.Retry, "vector search", func(ctx context.Context) ([]vectorstore.SearchResult, error) {
		return r.index.Search(ctx, r.opts.Collection, vec, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: tier %d search: %w", ErrRetrievalUnavailable, tierNum, err)
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, res := range results {
		if res.Score < minScore {
			continue
		}
		c := vectorstore.ChunkFromResult(res)
		if category != "" && c.Category != category {
			continue
		}
		chunks = append(chunks, ScoredChunk{Chunk: c, Score: widen(res.Score), Tier: tierNum})
	}
	SortChunks(chunks)
	if len(chunks) > tier.TopK {
		chunks = chunks[:tier.TopK]
	}
	return chunks, nil
}

// SortChunks orders chunks by score, then most recently verified, keeping the
// existing order for full ties.
func SortChunks(chunks []ScoredChunk) {
	slices.SortStableFunc(chunks, func(a, b ScoredChunk) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return b.Chunk.LastVerified.Compare(a.Chunk.LastVerified)
	})
}

// widen converts a float32 score using its shortest decimal form so that 0.72
// stays 0.72 instead of 0.7200000286.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
