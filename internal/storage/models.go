package storage

import "time"

// DocumentRecord is one knowledge document known to the catalog.
type DocumentRecord struct {
	ID         string // UUID
	ExternalID string // Document id from the knowledge file, e.g. "imm-001"
	SourcePath string // Knowledge file the document was loaded from
	Title      string
	Category   string
	Hash       string // SHA256 hex of the document's indexed fields
	UpdatedAt  time.Time
}

// ChunkRecord is one indexed chunk. Its ID is the vector point ID.
type ChunkRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Heading    string
	TokenCount int
}
