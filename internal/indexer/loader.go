package indexer

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"legal-assistant/internal/domain"
)

// DefaultPattern matches knowledge files anywhere below the seed root.
const DefaultPattern = "**/*.json"

// metadata keys consulted when a top-level field is empty.
var metadataAliases = map[string][]string{
	"title":         {"title"},
	"url":           {"url", "source_url"},
	"organization":  {"organization", "source", "authority"},
	"category":      {"category"},
	"last_verified": {"last_verified", "last_updated"},
}

// LoadError describes a document that could not be loaded.
type LoadError struct {
	Path string
	ID   string
	Err  error
}

func (e *LoadError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: document %q: %v", e.Path, e.ID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadDocuments reads every knowledge file in fsys matching pattern. Invalid documents
// are skipped and reported; a file that cannot be read or parsed fails the whole load.
func LoadDocuments(fsys fs.FS, pattern string) ([]SourceDocument, []*LoadError, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var docs []SourceDocument
	var skipped []*LoadError
	seen := make(map[string]string)

	for _, p := range matches {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		var file KnowledgeFile
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}

		fallback := categoryFromPath(p)
		for _, kd := range file.Documents {
			doc, err := kd.validate(p, fallback)
			if err != nil {
				skipped = append(skipped, &LoadError{Path: p, ID: kd.ID, Err: err})
				continue
			}
			if first, dup := seen[doc.ID]; dup {
				skipped = append(skipped, &LoadError{Path: p, ID: doc.ID, Err: fmt.Errorf("duplicate id, first seen in %s", first)})
				continue
			}
			seen[doc.ID] = p
			docs = append(docs, doc)
		}
	}
	return docs, skipped, nil
}

func (kd KnowledgeDocument) validate(p string, fallback domain.Category) (SourceDocument, error) {
	id := strings.TrimSpace(kd.ID)
	if id == "" {
		return SourceDocument{}, fmt.Errorf("missing id")
	}
	content := strings.TrimSpace(kd.Content)
	if content == "" {
		return SourceDocument{}, fmt.Errorf("empty content")
	}

	doc := SourceDocument{
		Path:         p,
		ID:           id,
		Title:        kd.field("title", kd.Title),
		Content:      content,
		URL:          kd.field("url", kd.URL),
		Organization: kd.field("organization", kd.Organization),
	}
	if doc.Title == "" {
		doc.Title = id
	}

	switch raw := kd.field("category", kd.Category); {
	case raw != "":
		cat, err := domain.ParseCategory(raw)
		if err != nil {
			return SourceDocument{}, err
		}
		doc.Category = cat
	case fallback != "":
		doc.Category = fallback
	default:
		return SourceDocument{}, fmt.Errorf("missing category")
	}

	if raw := kd.field("last_verified", kd.LastVerified); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return SourceDocument{}, err
		}
		doc.LastVerified = t
	}
	return doc, nil
}

// field returns the top-level value, or the first non-empty metadata alias.
func (kd KnowledgeDocument) field(name, value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	for _, key := range metadataAliases[name] {
		if s, ok := kd.Metadata[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(domain.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_verified %q", raw)
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}

// categoryFromPath infers the category from names like "immigration_knowledge.json".
func categoryFromPath(p string) domain.Category {
	name := strings.TrimSuffix(path.Base(p), path.Ext(p))
	name = strings.TrimSuffix(name, "_knowledge")
	if cat, err := domain.ParseCategory(name); err == nil {
		return cat
	}
	return ""
}
