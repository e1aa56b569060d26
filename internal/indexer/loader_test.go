package indexer

import (
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-assistant/internal/domain"
)

func TestLoadDocuments(t *testing.T) {
	fsys := fstest.MapFS{
		"immigration_knowledge.json": {Data: []byte(`{"documents": [
			{"id": "imm-001", "title": "Karta pobytu", "content": "# Karta pobytu\n\nWniosek.", "url": "https://www.gov.pl/web/udsc",
			 "organization": "UdSC", "last_verified": "2024-03-15"},
			{"id": "", "content": "no id"},
			{"id": "imm-001", "content": "duplicate", "category": "immigration"}
		]}`)},
		"legacy/export.json": {Data: []byte(`{"documents": [
			{"id": "emp-001", "content": "Umowa o pracę.", "metadata": {
				"title": "Umowa o pracę", "category": "Employment", "source_url": "https://www.gov.pl/web/rodzina",
				"source": "PIP", "last_updated": "2024-01-10T12:00:00Z"}},
			{"id": "x-001", "content": "Horoskop.", "category": "astrology"},
			{"id": "x-002", "content": "   "},
			{"id": "x-003", "content": "Bez kategorii."}
		]}`)},
		"README.md": {Data: []byte("# not a knowledge file")},
	}

	docs, skipped, err := LoadDocuments(fsys, "")
	require.NoError(t, err)

	byID := make(map[string]SourceDocument)
	for _, d := range docs {
		byID[d.ID] = d
	}
	require.Len(t, byID, 2, "loaded documents: %+v", docs)

	imm := byID["imm-001"]
	assert.Equal(t, "immigration_knowledge.json", imm.Path)
	assert.Equal(t, domain.CategoryImmigration, imm.Category, "category inferred from file name")
	assert.Equal(t, "UdSC", imm.Organization)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), imm.LastVerified)

	emp := byID["emp-001"]
	assert.Equal(t, "Umowa o pracę", emp.Title)
	assert.Equal(t, domain.CategoryEmployment, emp.Category)
	assert.Equal(t, "https://www.gov.pl/web/rodzina", emp.URL)
	assert.Equal(t, "PIP", emp.Organization)
	assert.Equal(t, "2024-01-10", emp.Chunk(Section{}).VerifiedDate())

	assert.Len(t, skipped, 5)
	for _, s := range skipped {
		assert.Error(t, s.Err)
		assert.NotEmpty(t, s.Path)
	}
}

func TestLoadDocuments_Pattern(t *testing.T) {
	fsys := fstest.MapFS{
		"a/police_traffic_knowledge.json": {Data: []byte(`{"documents": [{"id": "pol-001", "content": "Mandat."}]}`)},
		"b/other.json":                    {Data: []byte(`{"documents": [{"id": "emp-001", "content": "Umowa.", "category": "employment"}]}`)},
	}

	docs, skipped, err := LoadDocuments(fsys, "a/*.json")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, docs, 1)
	assert.Equal(t, "pol-001", docs[0].ID)
	assert.Equal(t, domain.CategoryPoliceTraffic, docs[0].Category)
	assert.Equal(t, "pol-001", docs[0].Title, "title defaults to id")
}

func TestLoadDocuments_Errors(t *testing.T) {
	t.Run("invalid json fails the load", func(t *testing.T) {
		fsys := fstest.MapFS{"broken.json": {Data: []byte(`{"documents": [`)}}
		_, _, err := LoadDocuments(fsys, DefaultPattern)
		assert.Error(t, err)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, _, err := LoadDocuments(fstest.MapFS{}, "[")
		assert.Error(t, err)
	})

	t.Run("invalid date is reported per document", func(t *testing.T) {
		fsys := fstest.MapFS{"housing.json": {Data: []byte(
			`{"documents": [{"id": "h-1", "content": "Najem.", "last_verified": "15.03.2024"}]}`)}}
		docs, skipped, err := LoadDocuments(fsys, DefaultPattern)
		require.NoError(t, err)
		assert.Empty(t, docs)
		require.Len(t, skipped, 1)

		var loadErr *LoadError
		require.True(t, errors.As(error(skipped[0]), &loadErr))
		assert.Equal(t, "h-1", loadErr.ID)
		assert.Contains(t, loadErr.Error(), "housing.json")
	})
}
