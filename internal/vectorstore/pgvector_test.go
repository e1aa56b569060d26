package vectorstore

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgVectorSQLQuotesCollection(t *testing.T) {
	sql := searchSQL(`legal"; DROP TABLE x; --`)
	assert.Contains(t, sql, `"legal""; DROP TABLE x; --"`, "collection must be quoted as an identifier")

	stmts := createTableSQL("polish-legal-docs", 1536)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[1], `"polish-legal-docs"`)
	assert.Contains(t, stmts[1], "vector(1536)")
	assert.Contains(t, stmts[2], "vector_cosine_ops")

	assert.True(t, strings.Contains(upsertSQL("docs"), "ON CONFLICT (id) DO UPDATE"))
}

func TestDecodePayload(t *testing.T) {
	raw, err := encodePayload(map[string]any{
		PayloadTitle:        "Karta pobytu",
		PayloadChunkIndex:   int64(3),
		PayloadLastVerified: "2024-03-15",
		"year_label":        "2024",
		"weight":            0.25,
		"official":          true,
	})
	require.NoError(t, err)

	meta, err := decodePayload(raw)
	require.NoError(t, err)

	assert.Equal(t, "Karta pobytu", meta[PayloadTitle])
	assert.Equal(t, int64(3), meta[PayloadChunkIndex], "integers decode as int64 like Qdrant payloads")
	assert.Equal(t, "2024", meta["year_label"], "numeric-looking strings stay strings")
	assert.Equal(t, 0.25, meta["weight"])
	assert.Equal(t, true, meta["official"])

	empty, err := decodePayload(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodePayload([]byte("not json"))
	assert.Error(t, err)
}

func TestPgVectorStore_ValidatesBeforeQuerying(t *testing.T) {
	store := NewPgVectorStoreWithDB(nil)
	ctx := context.Background()

	_, err := store.Search(ctx, "docs", []float32{1}, SearchOptions{Limit: 0})
	assert.Error(t, err, "limit 0")
	_, err = store.Search(ctx, "docs", nil, SearchOptions{Limit: 5})
	assert.Error(t, err, "empty vector")

	assert.NoError(t, store.Upsert(ctx, "docs", nil))
	assert.NoError(t, store.Delete(ctx, "docs", nil))
}

// TestPgVectorStore_Integration runs against a real database when PGVECTOR_TEST_DSN is set.
func TestPgVectorStore_Integration(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("PGVECTOR_TEST_DSN not set")
	}

	ctx := context.Background()
	store, err := NewPgVectorStore(ctx, dsn)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	collection := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, store.EnsureCollection(ctx, collection, 3))
	defer func() {
		_, _ = store.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+collection)
	}()

	exists, err := store.CollectionExists(ctx, collection)
	require.NoError(t, err)
	assert.True(t, exists)

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	require.NoError(t, store.Upsert(ctx, collection, []Point{
		{ID: ids[0], Vec: []float32{1, 0, 0}, Meta: map[string]any{PayloadCategory: "healthcare", PayloadTitle: "NFZ"}},
		{ID: ids[1], Vec: []float32{0.9, 0.1, 0}, Meta: map[string]any{PayloadCategory: "immigration", PayloadTitle: "Karta"}},
		{ID: ids[2], Vec: []float32{0, 0, 1}, Meta: map[string]any{PayloadCategory: "healthcare", PayloadTitle: "Far"}},
	}))

	results, err := store.Search(ctx, collection, []float32{1, 0, 0}, SearchOptions{Limit: 5, MinScore: 0.5, Category: "healthcare"})
	require.NoError(t, err)
	require.Len(t, results, 1, "category filter and threshold applied in the query")
	assert.Equal(t, ids[0], results[0].PointID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)

	results, err = store.Search(ctx, collection, []float32{1, 0, 0}, SearchOptions{Limit: 5, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	require.NoError(t, store.Delete(ctx, collection, ids[:1]))
	info, err := store.GetCollectionInfo(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PointsCount)
	assert.Equal(t, 3, info.VectorSize)
}
