package rag

import "math"

// ConfidenceScorer combines similarity, coverage and generation completeness into [0,1].
type ConfidenceScorer struct {
	SimilarityWeight   float64
	CoverageWeight     float64
	CompletenessWeight float64
	// TargetCount is the chunk count at which coverage is full.
	TargetCount int
	// IncompleteFactor replaces the completeness of 1.0 when generation was cut off.
	IncompleteFactor float64
}

// DefaultConfidenceScorer returns the 0.6/0.2/0.2 weighting with a target of five chunks.
func DefaultConfidenceScorer() ConfidenceScorer {
	return ConfidenceScorer{
		SimilarityWeight:   0.6,
		CoverageWeight:     0.2,
		CompletenessWeight: 0.2,
		TargetCount:        5,
		IncompleteFactor:   0.8,
	}
}

// Score returns the confidence for an answer generated from chunks. No chunks
// means exactly 0.
func (s ConfidenceScorer) Score(chunks []ScoredChunk, completed bool) float64 {
	if len(chunks) == 0 {
		return 0
	}

	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	mean := sum / float64(len(chunks))

	coverage := 1.0
	if s.TargetCount > 0 {
		coverage = math.Min(float64(len(chunks))/float64(s.TargetCount), 1)
	}

	completeness := 1.0
	if !completed {
		completeness = s.IncompleteFactor
	}

	v := s.SimilarityWeight*mean + s.CoverageWeight*coverage + s.CompletenessWeight*completeness
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*1000) / 1000
}
