package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks legal-assistant/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ChunkStore defines the catalog operations on chunks.
type ChunkStore interface {
	// Insert stores a chunk. chunk.ID must already be set to its point ID.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// ReplaceChunks upserts doc and swaps its chunk rows for chunks in one
	// transaction. Nothing is written if any statement fails.
	ReplaceChunks(ctx context.Context, doc *DocumentRecord, chunks []*ChunkRecord) error
	// DeleteByDocument removes all chunks of a document.
	DeleteByDocument(ctx context.Context, documentID string) error
	// ListIDsByDocument returns the chunk IDs of a document ordered by chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// GetByID returns ErrNotFound if the chunk does not exist.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// Count returns the number of catalogued chunks.
	Count(ctx context.Context) (int, error)
}

// ChunkRepo implements ChunkStore on SQLite.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	return insertChunk(ctx, r.db, chunk)
}

// ReplaceChunks sets doc.ID and every chunk's DocumentID.
func (r *ChunkRepo) ReplaceChunks(ctx context.Context, doc *DocumentRecord, chunks []*ChunkRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = upsertDocument(ctx, tx, doc); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	for _, c := range chunks {
		c.DocumentID = doc.ID
		if err = insertChunk(ctx, tx, c); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

func insertChunk(ctx context.Context, q querier, chunk *ChunkRecord) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO chunks (id, document_id, chunk_index, heading, token_count) VALUES (?, ?, ?, ?, ?)",
		chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Heading, chunk.TokenCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// DeleteByDocument is called before re-seeding a changed document.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

// ListIDsByDocument returns an empty slice, not an error, when nothing is stored.
func (r *ChunkRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	var heading sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, document_id, chunk_index, heading, token_count FROM chunks WHERE id = ?",
		id,
	).Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &heading, &chunk.TokenCount)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	chunk.Heading = heading.String

	return &chunk, nil
}

func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}
