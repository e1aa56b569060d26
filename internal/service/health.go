package service

import (
	"context"
	"time"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/vectorstore"
)

// CollectionInspector reports on a vector collection.
type CollectionInspector interface {
	GetCollectionInfo(ctx context.Context, collection string) (*vectorstore.CollectionInfo, error)
}

// ModelChecker verifies the chat model is reachable.
type ModelChecker interface {
	CheckModel(ctx context.Context) error
}

// HealthReport is the availability of the RAG dependencies.
type HealthReport struct {
	RetrievalService bool     `json:"retrieval_service"`
	LLMService       bool     `json:"llm_service"`
	OverallHealthy   bool     `json:"overall_healthy"`
	Collection       string   `json:"collection"`
	IndexedChunks    int      `json:"indexed_chunks"`
	Errors           []string `json:"errors,omitempty"`
}

// HealthService checks external dependencies.
type HealthService interface {
	Check(ctx context.Context) HealthReport
}

type healthService struct {
	index      CollectionInspector
	collection string
	model      ModelChecker
	timeout    time.Duration
}

// NewHealthService creates a HealthService. Each dependency check is bounded by timeout.
func NewHealthService(index CollectionInspector, collection string, model ModelChecker, timeout time.Duration) HealthService {
	return &healthService{index: index, collection: collection, model: model, timeout: timeout}
}

func (s *healthService) Check(ctx context.Context) HealthReport {
	logger := contextutil.LoggerFromContext(ctx)
	report := HealthReport{Collection: s.collection}

	indexCtx, cancel := s.checkContext(ctx)
	info, err := s.index.GetCollectionInfo(indexCtx, s.collection)
	cancel()
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		report.Errors = append(report.Errors, WrapError(err, "retrieval service").Error())
	} else {
		report.RetrievalService = true
		report.IndexedChunks = info.PointsCount
	}

	modelCtx, cancel := s.checkContext(ctx)
	err = s.model.CheckModel(modelCtx)
	cancel()
	if err != nil {
		logger.WarnContext(ctx, "llm health check failed", "error", err)
		report.Errors = append(report.Errors, WrapError(err, "llm service").Error())
	} else {
		report.LLMService = true
	}

	report.OverallHealthy = report.RetrievalService && report.LLMService
	return report
}

func (s *healthService) checkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
