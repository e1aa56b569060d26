package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks legal-assistant/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// SearchOptions narrows a similarity search. The category filter is applied by the
// index itself so it never consumes the result limit.
type SearchOptions struct {
	// Limit is the maximum number of results; must be positive.
	Limit int
	// MinScore drops results with a lower cosine similarity. Ignored when zero.
	MinScore float32
	// Category restricts results to one category. Empty means no restriction.
	Category string
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the nearest points by cosine similarity, best first.
	Search(ctx context.Context, collection string, query []float32, opts SearchOptions) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, collection string, ids []string) error

	// CollectionExists reports whether the collection is present.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// EnsureCollection creates the collection if needed and validates its vector size.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// GetCollectionInfo returns size and point count of a collection.
	GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)
}
