package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
)

func record(t *testing.T, e *embedding.MockEmbedder, text, source string, seq int) *models.IndexedRecord {
	t.Helper()
	emb, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatal(err)
	}
	return &models.IndexedRecord{
		Chunk:     models.Chunk{Text: text, SourceID: source, SequenceIndex: seq, SourceType: models.SourceText},
		Embedding: emb,
	}
}

func TestMemoryStore_selfRetrieval(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewMockEmbedder(256)
	store, err := NewMemoryStore(256)
	if err != nil {
		t.Fatal(err)
	}

	texts := []string{
		"Artificial intelligence is a branch of computer science.",
		"Machine learning is a subfield of artificial intelligence.",
		"Deep learning uses multi-layer neural networks.",
	}
	var records []*models.IndexedRecord
	for i, text := range texts {
		records = append(records, record(t, e, text, "notes.txt", i))
	}
	if err := store.Upsert(ctx, records); err != nil {
		t.Fatal(err)
	}

	// Searching with a stored chunk's own embedding must return that chunk first.
	query, _ := e.Embed(ctx, texts[1])
	got, err := store.Search(ctx, query, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Chunk.Text != texts[1] {
		t.Errorf("top candidate = %q, want %q", got[0].Chunk.Text, texts[1])
	}
	if got[0].Score < 0.999 {
		t.Errorf("self-similarity score = %f, want ~1.0", got[0].Score)
	}
}

func TestMemoryStore_descendingOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewMockEmbedder(256)
	store, _ := NewMemoryStore(256)

	texts := []string{
		"Machine learning trains statistical models from data.",
		"The stock market closed higher on Tuesday.",
		"Gardening requires patience and good soil.",
	}
	for i, text := range texts {
		if err := store.Upsert(ctx, []*models.IndexedRecord{record(t, e, text, "mix.txt", i)}); err != nil {
			t.Fatal(err)
		}
	}

	query, _ := e.Embed(ctx, "What does machine learning do with data?")
	got, err := store.Search(ctx, query, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %f then %f", got[0].Score, got[1].Score)
	}
	if got[0].Chunk.Text != texts[0] {
		t.Errorf("top candidate = %q, want %q", got[0].Chunk.Text, texts[0])
	}
}

func TestMemoryStore_emptyCollection(t *testing.T) {
	store, _ := NewMemoryStore(8)
	got, err := store.Search(context.Background(), make([]float32, 8), 5)
	if err != nil {
		t.Fatalf("empty collection should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestMemoryStore_duplicateIngestDoubles(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewMockEmbedder(128)
	store, _ := NewMemoryStore(128)

	rec := record(t, e, "the same chunk", "dup.txt", 0)
	if err := store.Upsert(ctx, []*models.IndexedRecord{rec}); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, []*models.IndexedRecord{rec}); err != nil {
		t.Fatal(err)
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 after duplicate ingest", count)
	}
}

func TestMemoryStore_dimensionMismatch(t *testing.T) {
	store, _ := NewMemoryStore(16)
	rec := &models.IndexedRecord{
		Chunk:     models.Chunk{Text: "x", SourceID: "s", SourceType: models.SourceText},
		Embedding: make([]float32, 8),
	}
	err := store.Upsert(context.Background(), []*models.IndexedRecord{rec})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Upsert error = %v, want ErrDimensionMismatch", err)
	}

	_, err = store.Search(context.Background(), make([]float32, 4), 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search error = %v, want ErrDimensionMismatch", err)
	}
}

func TestMemoryStore_recreateLeavesQueryableEmptyCollection(t *testing.T) {
	ctx := context.Background()
	e := embedding.NewMockEmbedder(64)
	store, _ := NewMemoryStore(64)

	if err := store.Upsert(ctx, []*models.IndexedRecord{record(t, e, "old data", "old.txt", 0)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Recreate(ctx); err != nil {
		t.Fatal(err)
	}
	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("count after recreate = %d, want 0", count)
	}
	query, _ := e.Embed(ctx, "anything")
	got, err := store.Search(ctx, query, 3)
	if err != nil {
		t.Fatalf("search after recreate should not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates after recreate, want 0", len(got))
	}
}
