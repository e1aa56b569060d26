package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/retry"
	"legal-assistant/internal/storage"
	"legal-assistant/internal/vectorstore"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 64

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// PipelineOptions configures a seeding pipeline.
type PipelineOptions struct {
	Collection     string
	EmbeddingModel string
	BatchSize      int
	// Prune removes catalogued documents that are absent from the seeded set.
	Prune bool
	Retry retry.Policy
}

// Pipeline seeds knowledge documents into the vector index and tracks them in the catalog.
type Pipeline struct {
	documents storage.DocumentStore
	chunks    storage.ChunkStore
	embedder  Embedder
	index     vectorstore.VectorStore
	chunker   *SectionChunker
	opts      PipelineOptions
}

// NewPipeline creates a seeding pipeline. A nil chunker uses the default section limits.
func NewPipeline(
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder Embedder,
	index vectorstore.VectorStore,
	chunker *SectionChunker,
	opts PipelineOptions,
) *Pipeline {
	if chunker == nil {
		chunker = NewSectionChunker(0, 0)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Pipeline{
		documents: documents,
		chunks:    chunks,
		embedder:  embedder,
		index:     index,
		chunker:   chunker,
		opts:      opts,
	}
}

// Progress is called after each document with the number handled so far.
type Progress func(done, total int)

// DocumentResult is the outcome of seeding one document.
type DocumentResult struct {
	Unchanged     bool
	ChunkTokens   []int
	ChunksDeleted int
}

// Seed indexes docs in order. Failures of single documents are logged and counted;
// the run continues and returns an error summarizing them.
func (p *Pipeline) Seed(ctx context.Context, docs []SourceDocument, progress Progress) (*SeedReport, error) {
	logger := contextutil.LoggerFromContext(ctx)

	report := &SeedReport{
		DocumentsLoaded: len(docs),
		CategoryCounts:  make(map[string]int),
		ChunkerVersion:  ChunkerVersion,
		IndexVersion:    IndexVersion(p.opts.EmbeddingModel, p.chunker.MinRunes, p.chunker.MaxRunes),
	}
	var tokens []int

	logger.InfoContext(ctx, "starting seeding", "documents", len(docs), "collection", p.opts.Collection)

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := p.SeedDocument(ctx, doc)
		switch {
		case err != nil:
			report.DocumentsFailed++
			logger.ErrorContext(ctx, "failed to seed document", "id", doc.ID, "path", doc.Path, "error", err)
		case res.Unchanged:
			report.DocumentsUnchanged++
			report.CategoryCounts[doc.Category.String()]++
		default:
			report.DocumentsIndexed++
			report.CategoryCounts[doc.Category.String()]++
			report.ChunksEmbedded += len(res.ChunkTokens)
			report.ChunksDeleted += res.ChunksDeleted
			tokens = append(tokens, res.ChunkTokens...)
		}

		if progress != nil {
			progress(i+1, len(docs))
		}
	}

	if p.opts.Prune {
		if err := p.prune(ctx, docs, report); err != nil {
			return report, err
		}
	}

	report.ChunkTokenStats = computeTokenStats(tokens)

	logger.InfoContext(ctx, "seeding completed",
		"indexed", report.DocumentsIndexed,
		"unchanged", report.DocumentsUnchanged,
		"failed", report.DocumentsFailed,
		"removed", report.DocumentsRemoved,
		"chunks", report.ChunksEmbedded,
	)

	if report.DocumentsFailed > 0 {
		return report, fmt.Errorf("seeding completed with %d failed documents", report.DocumentsFailed)
	}
	return report, nil
}

// SeedDocument indexes one document unless its hash matches the catalog. New points
// are written before the old ones are deleted. The document row and its chunk rows
// are then replaced in one catalog transaction; if any step after the upsert fails,
// the new points are deleted again and the catalog keeps its previous hash, so the
// next run re-seeds the document.
func (p *Pipeline) SeedDocument(ctx context.Context, doc SourceDocument) (DocumentResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	hash := p.documentHash(doc)
	existing, err := p.documents.GetByExternalID(ctx, doc.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return DocumentResult{}, fmt.Errorf("failed to check existing document: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		logger.DebugContext(ctx, "skipping unchanged document", "id", doc.ID, "hash", hash)
		return DocumentResult{Unchanged: true}, nil
	}

	sections := p.chunker.Split(doc.Content)
	if len(sections) == 0 {
		return DocumentResult{}, fmt.Errorf("document %s produced no sections", doc.ID)
	}

	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = labelled(s)
	}

	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return DocumentResult{}, err
	}

	points := make([]vectorstore.Point, len(sections))
	records := make([]*storage.ChunkRecord, len(sections))
	tokens := make([]int, len(sections))
	for i, s := range sections {
		chunk := doc.Chunk(s)
		chunk.Text = texts[i]
		tokens[i] = EstimateTokens(texts[i])

		id := uuid.New().String()
		points[i] = vectorstore.Point{
			ID:   id,
			Vec:  vectors[i],
			Meta: vectorstore.ChunkPayload(chunk, s.Index),
		}
		records[i] = &storage.ChunkRecord{
			ID:         id,
			ChunkIndex: s.Index,
			Heading:    s.Heading,
			TokenCount: tokens[i],
		}
	}

	if err := p.index.Upsert(ctx, p.opts.Collection, points); err != nil {
		return DocumentResult{}, fmt.Errorf("failed to upsert vectors: %w", err)
	}
	newIDs := make([]string, len(points))
	for i, pt := range points {
		newIDs[i] = pt.ID
	}

	result := DocumentResult{ChunkTokens: tokens}
	if existing != nil {
		oldIDs, err := p.chunks.ListIDsByDocument(ctx, existing.ID)
		if err != nil {
			return DocumentResult{}, p.discardPoints(ctx, newIDs, fmt.Errorf("failed to list old chunk IDs: %w", err))
		}
		if len(oldIDs) > 0 {
			if err := p.index.Delete(ctx, p.opts.Collection, oldIDs); err != nil {
				return DocumentResult{}, p.discardPoints(ctx, newIDs, fmt.Errorf("failed to delete old vectors: %w", err))
			}
		}
		result.ChunksDeleted = len(oldIDs)
	}

	record := &storage.DocumentRecord{
		ExternalID: doc.ID,
		SourcePath: doc.Path,
		Title:      doc.Title,
		Category:   doc.Category.String(),
		Hash:       hash,
	}
	if existing != nil {
		record.ID = existing.ID
	}
	if err := p.chunks.ReplaceChunks(ctx, record, records); err != nil {
		return DocumentResult{}, p.discardPoints(ctx, newIDs, fmt.Errorf("failed to update catalog: %w", err))
	}

	logger.InfoContext(ctx, "seeded document", "id", doc.ID, "title", doc.Title, "chunks", len(sections))
	return result, nil
}

// embed sends texts in batches, retrying each batch under the pipeline policy.
func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(texts))
		batch := texts[start:end]

		out, err := retry.Value(ctx, p.opts.Retry, "embed", func(ctx context.Context) ([][]float32, error) {
			return p.embedder.EmbedTexts(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(out))
		}
		vectors = append(vectors, out...)
	}
	return vectors, nil
}

// discardPoints removes points written by a failed SeedDocument and returns cause.
func (p *Pipeline) discardPoints(ctx context.Context, ids []string, cause error) error {
	if err := p.index.Delete(context.WithoutCancel(ctx), p.opts.Collection, ids); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to discard new vectors", "count", len(ids), "error", err)
		return errors.Join(cause, fmt.Errorf("failed to discard new vectors: %w", err))
	}
	return cause
}

// removeChunks deletes a document's points from the index and its chunk rows.
func (p *Pipeline) removeChunks(ctx context.Context, documentID string) (int, error) {
	ids, err := p.chunks.ListIDsByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list old chunk IDs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := p.index.Delete(ctx, p.opts.Collection, ids); err != nil {
		return 0, fmt.Errorf("failed to delete old vectors: %w", err)
	}
	if err := p.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("failed to delete old chunks: %w", err)
	}
	return len(ids), nil
}

// prune removes catalogued documents that were not part of this run.
func (p *Pipeline) prune(ctx context.Context, docs []SourceDocument, report *SeedReport) error {
	logger := contextutil.LoggerFromContext(ctx)

	keep := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		keep[d.ID] = struct{}{}
	}

	known, err := p.documents.ListExternalIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalogued documents: %w", err)
	}
	for _, externalID := range known {
		if _, ok := keep[externalID]; ok {
			continue
		}
		record, err := p.documents.GetByExternalID(ctx, externalID)
		if err != nil {
			return fmt.Errorf("failed to load document %s: %w", externalID, err)
		}
		deleted, err := p.removeChunks(ctx, record.ID)
		if err != nil {
			return err
		}
		if err := p.documents.Delete(ctx, record.ID); err != nil {
			return err
		}
		report.DocumentsRemoved++
		report.ChunksDeleted += deleted
		logger.InfoContext(ctx, "removed stale document", "id", externalID, "chunks", deleted)
	}
	return nil
}

// documentHash covers every indexed field plus the chunking rules.
func (p *Pipeline) documentHash(doc SourceDocument) string {
	h := sha256.New()
	for _, field := range []string{
		ChunkerVersion,
		strconv.Itoa(p.chunker.MinRunes),
		strconv.Itoa(p.chunker.MaxRunes),
		doc.Title,
		doc.Content,
		doc.URL,
		doc.Organization,
		doc.Category.String(),
		doc.Chunk(Section{}).VerifiedDate(),
	} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
