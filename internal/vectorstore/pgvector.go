package vectorstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"legal-assistant/internal/contextutil"
)

// PgVectorStore implements VectorStore on PostgreSQL with the pgvector extension.
// Each collection is a table holding the embedding, the category used for filtering,
// and the payload as JSONB.
type PgVectorStore struct {
	db *sql.DB
}

// NewPgVectorStore opens a connection pool for dsn and verifies it.
func NewPgVectorStore(ctx context.Context, dsn string) (*PgVectorStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PgVectorStore{db: db}, nil
}

// NewPgVectorStoreWithDB wraps an existing pool.
func NewPgVectorStoreWithDB(db *sql.DB) *PgVectorStore {
	return &PgVectorStore{db: db}
}

// Close closes the connection pool.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

func createTableSQL(collection string, vectorSize int) []string {
	table := pq.QuoteIdentifier(collection)
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, table, vectorSize),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pq.QuoteIdentifier(collection+"_embedding_idx"), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (category)`,
			pq.QuoteIdentifier(collection+"_category_idx"), table),
	}
}

func searchSQL(collection string) string {
	return fmt.Sprintf(`SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2 = '' OR category = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`, pq.QuoteIdentifier(collection))
}

func upsertSQL(collection string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, embedding, category, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			category = EXCLUDED.category,
			payload = EXCLUDED.payload`, pq.QuoteIdentifier(collection))
}

// Upsert inserts or updates points in one transaction.
func (s *PgVectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertSQL(collection))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, point := range points {
		payload, err := encodePayload(point.Meta)
		if err != nil {
			return fmt.Errorf("invalid payload for point %s: %w", point.ID, err)
		}
		category, _ := point.Meta[PayloadCategory].(string)
		if _, err := stmt.ExecContext(ctx, point.ID, pgvector.NewVector(point.Vec), category, payload); err != nil {
			logger.ErrorContext(ctx, "failed to upsert point", "collection", collection, "id", point.ID, "error", err)
			return fmt.Errorf("failed to upsert point %s: %w", point.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	logger.DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search performs a cosine similarity search with the threshold and category filter in SQL.
func (s *PgVectorStore) Search(ctx context.Context, collection string, query []float32, opts SearchOptions) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	minScore := float64(opts.MinScore)
	if opts.MinScore <= 0 {
		minScore = -1
	}

	rows, err := s.db.QueryContext(ctx, searchSQL(collection),
		pgvector.NewVector(query), opts.Category, minScore, opts.Limit)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "limit", opts.Limit, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchResult
	for rows.Next() {
		var (
			id      string
			payload []byte
			score   float64
		)
		if err := rows.Scan(&id, &payload, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		meta, err := decodePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode payload of %s: %w", id, err)
		}
		results = append(results, SearchResult{PointID: id, Score: float32(score), Meta: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	logger.DebugContext(ctx, "search completed",
		"collection", collection,
		"limit", opts.Limit,
		"min_score", opts.MinScore,
		"category", opts.Category,
		"results", len(results),
	)
	return results, nil
}

// Delete removes points by their IDs.
func (s *PgVectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, pq.QuoteIdentifier(collection))
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "deleted points", "collection", collection, "count", len(ids))
	return nil
}

// CollectionExists checks if the collection table exists.
func (s *PgVectorStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, pq.QuoteIdentifier(collection)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// EnsureCollection creates the extension, table and indexes if needed, then validates
// the vector size of an existing table.
func (s *PgVectorStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	for _, stmt := range createTableSQL(collection, vectorSize) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	info, err := s.GetCollectionInfo(ctx, collection)
	if err != nil {
		return err
	}
	if info.VectorSize != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, info.VectorSize)
	}

	logger.InfoContext(ctx, "collection validated", "collection", collection, "vector_size", vectorSize, "points", info.PointsCount)
	return nil
}

// GetCollectionInfo returns the declared vector size and row count of the collection.
func (s *PgVectorStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	var typmod int
	err := s.db.QueryRowContext(ctx, `SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding' AND NOT a.attisdropped`,
		pq.QuoteIdentifier(collection)).Scan(&typmod)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	var count int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s`, pq.QuoteIdentifier(collection))
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}

	return &CollectionInfo{
		VectorSize:  typmod,
		PointsCount: count,
		Status:      "green",
	}, nil
}

func encodePayload(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

// decodePayload keeps integers as int64 so payloads read the same as from Qdrant.
func decodePayload(raw []byte) (map[string]any, error) {
	meta := make(map[string]any)
	if len(raw) == 0 {
		return meta, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		trimmed := bytes.TrimSpace(v)
		if len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')) {
			n := json.Number(trimmed)
			if i, err := n.Int64(); err == nil {
				meta[k] = i
				continue
			}
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			meta[k] = f
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, err
		}
		meta[k] = val
	}
	return meta, nil
}
