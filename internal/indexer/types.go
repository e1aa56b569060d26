package indexer

import (
	"time"

	"legal-assistant/internal/domain"
)

// Section is one heading-delimited part of a document's content.
type Section struct {
	Index   int    // Position within the document (starts at 0)
	Heading string // Format: "Heading1 > Heading2"; empty for text before any heading
	Text    string
}

// KnowledgeFile is the on-disk layout of a knowledge JSON file.
type KnowledgeFile struct {
	Documents []KnowledgeDocument `json:"documents"`
}

// KnowledgeDocument is one document entry. Fields missing at the top level are read
// from Metadata, which is how older exports store them.
type KnowledgeDocument struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	URL          string         `json:"url"`
	Organization string         `json:"organization"`
	Category     string         `json:"category"`
	LastVerified string         `json:"last_verified"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SourceDocument is a validated document ready for seeding.
type SourceDocument struct {
	Path         string // Knowledge file the document came from, relative to the seed root
	ID           string
	Title        string
	Content      string
	URL          string
	Organization string
	Category     domain.Category
	LastVerified time.Time
}

// Chunk returns the domain chunk for one section of the document.
func (d SourceDocument) Chunk(s Section) domain.Chunk {
	return domain.Chunk{
		DocumentID:   d.ID,
		Text:         s.Text,
		Title:        d.Title,
		Organization: d.Organization,
		URL:          d.URL,
		Category:     d.Category,
		LastVerified: d.LastVerified,
	}
}
