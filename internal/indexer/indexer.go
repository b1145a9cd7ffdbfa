// Package indexer runs the ingest pipeline: extract, split, embed, upsert.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/catalog"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/splitter"
	"github.com/hyperjump/kotae/internal/vector"
)

// DirectoryReport summarizes a directory batch ingest. Files fail
// independently; one bad document never aborts the batch.
type DirectoryReport struct {
	Files     int                    `json:"files"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Reports   []*models.IngestReport `json:"reports"`
}

// Indexer embeds chunks and upserts them into the vector store, recording
// each completed ingest in the catalog when one is configured.
type Indexer struct {
	extractor *extract.Extractor
	splitter  splitter.Splitter
	embedder  embedding.Embedder
	store     vector.Store
	catalog   *catalog.Catalog // optional
	batchSize int
	logger    *zap.Logger // optional; when set, logs ingest progress
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for ingest progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithCatalog sets the ingest ledger. Without it ingests still work, only the
// status reporting loses per-source history.
func WithCatalog(c *catalog.Catalog) IndexerOption {
	return func(idx *Indexer) { idx.catalog = c }
}

// NewIndexer creates an indexer with the given dependencies.
// batchSize bounds how many chunks are embedded and upserted per round trip;
// each batch is committed independently.
func NewIndexer(
	extractor *extract.Extractor,
	split splitter.Splitter,
	embedder embedding.Embedder,
	store vector.Store,
	batchSize int,
	opts ...IndexerOption,
) *Indexer {
	if batchSize <= 0 {
		batchSize = 10
	}
	idx := &Indexer{
		extractor: extractor,
		splitter:  split,
		embedder:  embedder,
		store:     store,
		batchSize: batchSize,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IngestChunks embeds and upserts chunks in batches. Chunks with blank text
// are dropped; a dimension mismatch or store failure aborts the remainder of
// the call but never un-commits earlier batches.
func (idx *Indexer) IngestChunks(ctx context.Context, chunks []models.Chunk) (*models.IngestReport, error) {
	kept := make([]models.Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) != "" {
			kept = append(kept, ch)
		}
	}

	report := &models.IngestReport{IngestedAt: time.Now()}
	if len(kept) > 0 {
		report.SourceID = kept[0].SourceID
		report.SourceType = kept[0].SourceType
	}

	for start := 0; start < len(kept); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(kept) {
			end = len(kept)
		}
		batch := kept[start:end]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return report, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}

		records := make([]*models.IndexedRecord, len(batch))
		for i := range batch {
			records[i] = &models.IndexedRecord{Chunk: batch[i], Embedding: embeddings[i]}
		}
		if err := idx.store.Upsert(ctx, records); err != nil {
			return report, fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}

		report.ChunksIndexed += len(batch)
		if idx.logger != nil {
			idx.logger.Info("batch stored",
				zap.String("source", report.SourceID),
				zap.Int("indexed", report.ChunksIndexed),
				zap.Int("total", len(kept)))
		}
	}

	idx.recordIngest(ctx, report)
	return report, nil
}

// IngestFile extracts, splits, and ingests one document. PDF extraction can
// be limited to selected zero-based pages; pass nil for all pages.
// A readable file with no extractable text yields a zero-chunk report, not an
// error, so directory batches and the watcher keep going.
func (idx *Indexer) IngestFile(ctx context.Context, path string, pages []int) (*models.IngestReport, error) {
	sourceID := filepath.Base(path)
	sourceType := extract.SourceTypeFor(path)

	text, err := idx.extractor.Extract(path, pages)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		if idx.logger != nil {
			idx.logger.Warn("no text extracted", zap.String("path", path))
		}
		return &models.IngestReport{SourceID: sourceID, SourceType: sourceType, IngestedAt: time.Now()}, nil
	}

	pieces, err := idx.splitter.Split(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", path, err)
	}

	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, models.Chunk{
			Text:          piece,
			SourceID:      sourceID,
			SequenceIndex: i,
			SourceType:    sourceType,
		})
	}
	return idx.IngestChunks(ctx, chunks)
}

// IngestTexts ingests raw text snippets under one source id. Each snippet is
// one chunk; blanks are dropped.
func (idx *Indexer) IngestTexts(ctx context.Context, texts []string, sourceID string) (*models.IngestReport, error) {
	if sourceID == "" {
		sourceID = "inline"
	}
	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.Chunk{
			Text:          text,
			SourceID:      sourceID,
			SequenceIndex: i,
			SourceType:    models.SourceText,
		})
	}
	report, err := idx.IngestChunks(ctx, chunks)
	if err != nil {
		return report, err
	}
	report.SourceID = sourceID
	report.SourceType = models.SourceText
	return report, nil
}

// IngestDirectory ingests every file under dir matching the glob pattern
// (for example "*.pdf"). Per-file failures are counted and logged, and do not
// stop the batch.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir, pattern string) (*DirectoryReport, error) {
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	report := &DirectoryReport{Files: len(matches)}
	for _, path := range matches {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		fileReport, err := idx.IngestFile(ctx, path, nil)
		if err != nil {
			report.Failed++
			if idx.logger != nil {
				idx.logger.Error("file ingest failed", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		report.Succeeded++
		report.Reports = append(report.Reports, fileReport)
	}
	return report, nil
}

// Rebuild drops and recreates the vector collection and resets the catalog.
// This is the only path that removes indexed chunks.
func (idx *Indexer) Rebuild(ctx context.Context) error {
	if err := idx.store.Recreate(ctx); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	if idx.catalog != nil {
		if err := idx.catalog.Clear(ctx); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}
	if idx.logger != nil {
		idx.logger.Info("collection rebuilt")
	}
	return nil
}

func (idx *Indexer) recordIngest(ctx context.Context, report *models.IngestReport) {
	if idx.catalog == nil || report.ChunksIndexed == 0 {
		return
	}
	if err := idx.catalog.RecordIngest(ctx, report); err != nil && idx.logger != nil {
		idx.logger.Warn("catalog record failed", zap.String("source", report.SourceID), zap.Error(err))
	}
}
