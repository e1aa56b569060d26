// Package metrics keeps in-memory counters describing how queries were answered.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Outcome is how a query ended.
type Outcome string

const (
	OutcomeAnswered              Outcome = "answered"
	OutcomeNoKnowledge           Outcome = "no_knowledge"
	OutcomeRetrievalUnavailable  Outcome = "retrieval_unavailable"
	OutcomeGenerationUnavailable Outcome = "generation_unavailable"
)

// Retrieval tiers as recorded in observations.
const (
	TierNone    = 0
	TierStrict  = 1
	TierRelaxed = 2
)

const histogramBuckets = 10

// Observation is everything recorded about one query.
type Observation struct {
	Tier     int
	Scores   []float64
	Category string
	Outcome  Outcome
	// Query is the normalized query text; it is kept only for failed queries.
	Query string
}

// Failure is an entry of the recent failures buffer.
type Failure struct {
	Query     string    `json:"query"`
	Reason    Outcome   `json:"reason"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Bucket is one similarity histogram bin covering [Lower, Upper).
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count uint64  `json:"count"`
}

// TierDistribution counts queries by the tier that produced their context.
type TierDistribution struct {
	Tier1Success    uint64  `json:"tier1_success"`
	Tier1Rate       float64 `json:"tier1_rate"`
	Tier2Success    uint64  `json:"tier2_success"`
	Tier2Rate       float64 `json:"tier2_rate"`
	NoContext       uint64  `json:"no_context"`
	NoContextRate   float64 `json:"no_context_rate"`
	Unavailable     uint64  `json:"unavailable"`
	UnavailableRate float64 `json:"unavailable_rate"`
}

// SimilarityStats summarises retrieval scores per tier.
type SimilarityStats struct {
	Tier1Avg       float64  `json:"tier1_avg"`
	Tier2Avg       float64  `json:"tier2_avg"`
	Tier1Histogram []Bucket `json:"tier1_histogram"`
	Tier2Histogram []Bucket `json:"tier2_histogram"`
}

// Snapshot is a consistent copy of the collector state.
type Snapshot struct {
	TotalQueries         uint64             `json:"total_queries"`
	QueriesWithContext   uint64             `json:"queries_with_context"`
	ResponseRate         float64            `json:"response_rate"`
	TierDistribution     TierDistribution   `json:"tier_distribution"`
	SimilarityScores     SimilarityStats    `json:"similarity_scores"`
	CategoryDistribution map[string]uint64  `json:"category_distribution"`
	Outcomes             map[Outcome]uint64 `json:"outcomes"`
	FailedQueriesCount   uint64             `json:"failed_queries_count"`
	RecentFailures       []Failure          `json:"recent_failures"`
	Since                time.Time          `json:"since"`
}

// tierStats averages per-query mean scores, so every query weighs the same
// regardless of how many chunks it retrieved. The histogram counts chunks.
type tierStats struct {
	sum       float64
	count     uint64
	histogram [histogramBuckets]uint64
}

type state struct {
	since      time.Time
	total      uint64
	tiers      [3]uint64
	similarity [3]tierStats
	categories map[string]uint64
	outcomes   map[Outcome]uint64
	failed     uint64
	recent     []Failure
	next       int
}

func newState(now time.Time, capacity int) *state {
	return &state{
		since:      now,
		categories: make(map[string]uint64),
		outcomes:   make(map[Outcome]uint64),
		recent:     make([]Failure, 0, capacity),
	}
}

// Collector aggregates observations. It is safe for concurrent use; one instance is
// created at startup and shared.
type Collector struct {
	mu       sync.Mutex
	state    *state
	capacity int
	now      func() time.Time
}

// NewCollector creates a collector that remembers the last recentFailures failures.
func NewCollector(recentFailures int) *Collector {
	if recentFailures <= 0 {
		recentFailures = 10
	}
	c := &Collector{capacity: recentFailures, now: time.Now}
	c.state = newState(c.now(), recentFailures)
	return c
}

// Record adds one query observation.
func (c *Collector) Record(obs Observation) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.total++
	s.outcomes[obs.Outcome]++

	tier := obs.Tier
	if tier != TierStrict && tier != TierRelaxed {
		tier = TierNone
	}
	if obs.Outcome != OutcomeRetrievalUnavailable {
		s.tiers[tier]++
	}
	if tier != TierNone && len(obs.Scores) > 0 {
		ts := &s.similarity[tier]
		var total float64
		for _, score := range obs.Scores {
			total += score
			ts.histogram[bucketOf(score)]++
		}
		ts.sum += total / float64(len(obs.Scores))
		ts.count++
	}
	if obs.Category != "" {
		s.categories[obs.Category]++
	}

	if obs.Outcome != OutcomeAnswered {
		s.failed++
		f := Failure{Query: obs.Query, Reason: obs.Outcome, Category: obs.Category, Timestamp: now}
		if len(s.recent) < c.capacity {
			s.recent = append(s.recent, f)
		} else {
			s.recent[s.next] = f
		}
		s.next = (s.next + 1) % c.capacity
	}
}

// Snapshot returns the current aggregates.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot()
}

// Reset clears all counters and returns the values they held just before.
func (c *Collector) Reset() Snapshot {
	now := c.now()

	c.mu.Lock()
	old := c.state
	c.state = newState(now, c.capacity)
	c.mu.Unlock()

	return old.snapshot()
}

func (s *state) snapshot() Snapshot {
	withContext := s.tiers[TierStrict] + s.tiers[TierRelaxed]
	unavailable := s.outcomes[OutcomeRetrievalUnavailable]

	snap := Snapshot{
		TotalQueries:       s.total,
		QueriesWithContext: withContext,
		ResponseRate:       rate(withContext, s.total),
		TierDistribution: TierDistribution{
			Tier1Success:    s.tiers[TierStrict],
			Tier1Rate:       rate(s.tiers[TierStrict], s.total),
			Tier2Success:    s.tiers[TierRelaxed],
			Tier2Rate:       rate(s.tiers[TierRelaxed], s.total),
			NoContext:       s.tiers[TierNone],
			NoContextRate:   rate(s.tiers[TierNone], s.total),
			Unavailable:     unavailable,
			UnavailableRate: rate(unavailable, s.total),
		},
		SimilarityScores: SimilarityStats{
			Tier1Avg:       s.similarity[TierStrict].mean(),
			Tier2Avg:       s.similarity[TierRelaxed].mean(),
			Tier1Histogram: s.similarity[TierStrict].buckets(),
			Tier2Histogram: s.similarity[TierRelaxed].buckets(),
		},
		CategoryDistribution: make(map[string]uint64, len(s.categories)),
		Outcomes:             make(map[Outcome]uint64, len(s.outcomes)),
		FailedQueriesCount:   s.failed,
		RecentFailures:       make([]Failure, 0, len(s.recent)),
		Since:                s.since,
	}
	for k, v := range s.categories {
		snap.CategoryDistribution[k] = v
	}
	for k, v := range s.outcomes {
		snap.Outcomes[k] = v
	}

	// Oldest first.
	if len(s.recent) < cap(s.recent) {
		snap.RecentFailures = append(snap.RecentFailures, s.recent...)
	} else {
		snap.RecentFailures = append(snap.RecentFailures, s.recent[s.next:]...)
		snap.RecentFailures = append(snap.RecentFailures, s.recent[:s.next]...)
	}
	return snap
}

func (t *tierStats) mean() float64 {
	if t.count == 0 {
		return 0
	}
	return round3(t.sum / float64(t.count))
}

func (t *tierStats) buckets() []Bucket {
	out := make([]Bucket, histogramBuckets)
	for i := range out {
		out[i] = Bucket{
			Lower: round3(float64(i) / histogramBuckets),
			Upper: round3(float64(i+1) / histogramBuckets),
			Count: t.histogram[i],
		}
	}
	return out
}

func bucketOf(score float64) int {
	i := int(math.Floor(score * histogramBuckets))
	if i < 0 {
		return 0
	}
	if i >= histogramBuckets {
		return histogramBuckets - 1
	}
	return i
}

func rate(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return round3(float64(n) / float64(total))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
