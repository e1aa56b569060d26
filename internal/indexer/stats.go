package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"unicode/utf8"
)

// RunesPerToken approximates tokens from text length.
const RunesPerToken = 4.0

// SeedReport summarizes one seeding run.
type SeedReport struct {
	DocumentsLoaded    int             `json:"documents_loaded"`
	DocumentsIndexed   int             `json:"documents_indexed"`
	DocumentsUnchanged int             `json:"documents_unchanged"`
	DocumentsFailed    int             `json:"documents_failed"`
	DocumentsRemoved   int             `json:"documents_removed"`
	ChunksEmbedded     int             `json:"chunks_embedded"`
	ChunksDeleted      int             `json:"chunks_deleted"`
	CategoryCounts     map[string]int  `json:"category_counts"`
	ChunkTokenStats    ChunkTokenStats `json:"chunk_token_stats"`
	ChunkerVersion     string          `json:"chunker_version"`
	IndexVersion       string          `json:"index_version"`
}

// ChunkTokenStats describes estimated token counts of the chunks embedded in a run.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// EstimateTokens approximates the token count of text. Non-empty text counts at least 1.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(1, int(math.Round(float64(n)/RunesPerToken)))
}

// IndexVersion identifies an index build: chunker rules, embedding model and section limits.
func IndexVersion(embeddingModel string, minRunes, maxRunes int) string {
	input := fmt.Sprintf("%s|%s|min=%d|max=%d", ChunkerVersion, embeddingModel, minRunes, maxRunes)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

// computeTokenStats computes min, max, mean and p95 of the given counts.
func computeTokenStats(counts []int) ChunkTokenStats {
	if len(counts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	sum := 0
	for _, c := range sorted {
		sum += c
	}
	mean := float64(sum) / float64(len(sorted))

	p95 := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95 = min(max(p95, 0), len(sorted)-1)

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95],
	}
}
