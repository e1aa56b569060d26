package vectorstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"legal-assistant/internal/domain"
)

// Payload keys stored with every chunk point.
const (
	PayloadDocumentID   = "document_id"
	PayloadChunkIndex   = "chunk_index"
	PayloadTitle        = "title"
	PayloadContent      = "content"
	PayloadOrganization = "organization"
	PayloadURL          = "url"
	PayloadCategory     = "category"
	PayloadLastVerified = "last_verified"
)

// ChunkPayload builds the point payload for a chunk.
func ChunkPayload(c domain.Chunk, chunkIndex int) map[string]any {
	return map[string]any{
		PayloadDocumentID:   c.DocumentID,
		PayloadChunkIndex:   int64(chunkIndex),
		PayloadTitle:        c.Title,
		PayloadContent:      c.Text,
		PayloadOrganization: c.Organization,
		PayloadURL:          c.URL,
		PayloadCategory:     string(c.Category),
		PayloadLastVerified: c.VerifiedDate(),
	}
}

// ChunkFromResult rebuilds a chunk from a search hit. Missing fields stay empty; an
// unparseable last_verified date is treated as unknown.
func ChunkFromResult(r SearchResult) domain.Chunk {
	c := domain.Chunk{
		ID:           r.PointID,
		DocumentID:   stringField(r.Meta, PayloadDocumentID),
		Text:         stringField(r.Meta, PayloadContent),
		Title:        stringField(r.Meta, PayloadTitle),
		Organization: stringField(r.Meta, PayloadOrganization),
		URL:          stringField(r.Meta, PayloadURL),
		Category:     domain.Category(strings.ToLower(stringField(r.Meta, PayloadCategory))),
	}
	if raw := stringField(r.Meta, PayloadLastVerified); raw != "" {
		if t, err := time.Parse(domain.DateLayout, raw); err == nil {
			c.LastVerified = t
		}
	}
	return c
}

// ChunkIndex reads the chunk index stored in a payload.
func ChunkIndex(meta map[string]any) (int, bool) {
	switch v := meta[PayloadChunkIndex].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func stringField(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
