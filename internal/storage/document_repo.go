package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks legal-assistant/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// DocumentStore defines the catalog operations on documents.
type DocumentStore interface {
	// GetByExternalID returns ErrNotFound if the document was never seeded.
	GetByExternalID(ctx context.Context, externalID string) (*DocumentRecord, error)
	// Upsert inserts a new document or updates an existing one, preserving its ID.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// ListExternalIDs returns the external IDs of all catalogued documents.
	ListExternalIDs(ctx context.Context) ([]string, error)
	// Delete removes a document and, by cascade, its chunks.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo implements DocumentStore on SQLite.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) GetByExternalID(ctx context.Context, externalID string) (*DocumentRecord, error) {
	return getDocumentByExternalID(ctx, r.db, externalID)
}

// Upsert generates a UUID for documents seen for the first time.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	return upsertDocument(ctx, r.db, doc)
}

// querier is the subset of *sql.DB and *sql.Tx the repos need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocumentByExternalID(ctx context.Context, q querier, externalID string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var updatedAtStr string

	err := q.QueryRowContext(ctx,
		"SELECT id, external_id, source_path, title, category, hash, updated_at FROM documents WHERE external_id = ?",
		externalID,
	).Scan(&doc.ID, &doc.ExternalID, &doc.SourcePath, &doc.Title, &doc.Category, &doc.Hash, &updatedAtStr)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.UpdatedAt, err = parseTimestamp(updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func upsertDocument(ctx context.Context, q querier, doc *DocumentRecord) error {
	existing, err := getDocumentByExternalID(ctx, q, doc.ExternalID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check existing document: %w", err)
	}

	switch {
	case existing != nil:
		doc.ID = existing.ID
	case doc.ID == "":
		doc.ID = uuid.New().String()
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO documents (id, external_id, source_path, title, category, hash, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (external_id) DO UPDATE SET
		 source_path = excluded.source_path, title = excluded.title, category = excluded.category,
		 hash = excluded.hash, updated_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.ExternalID, doc.SourcePath, doc.Title, doc.Category, doc.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) ListExternalIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT external_id FROM documents ORDER BY external_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// parseTimestamp accepts both DATETIME layouts SQLite may return.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	return t, nil
}
