package service

import (
	"context"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/metrics"
)

// MetricsService exposes the query metrics.
type MetricsService interface {
	// Snapshot returns the current aggregates.
	Snapshot(ctx context.Context) metrics.Snapshot
	// Reset zeroes all counters and returns the values held before.
	Reset(ctx context.Context) metrics.Snapshot
}

type metricsService struct {
	collector *metrics.Collector
}

// NewMetricsService creates a MetricsService over collector.
func NewMetricsService(collector *metrics.Collector) MetricsService {
	return &metricsService{collector: collector}
}

func (s *metricsService) Snapshot(ctx context.Context) metrics.Snapshot {
	return s.collector.Snapshot()
}

func (s *metricsService) Reset(ctx context.Context) metrics.Snapshot {
	snap := s.collector.Reset()
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "metrics reset",
		"total_queries", snap.TotalQueries,
		"failed_queries", snap.FailedQueriesCount,
	)
	return snap
}
