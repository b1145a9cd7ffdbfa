// Package vector: in-memory store used by tests and local development without
// a running Qdrant.
package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryStore is a brute-force in-memory implementation of Store.
type MemoryStore struct {
	dimensions int
	records    []*models.IndexedRecord
	mu         sync.RWMutex
}

// NewMemoryStore creates an in-memory store with the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{dimensions: dimensions}, nil
}

// Upsert appends records. Duplicate (source, sequence) pairs are stored again;
// deduplication is not a store concern.
func (m *MemoryStore) Upsert(ctx context.Context, records []*models.IndexedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		if len(rec.Embedding) != m.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(rec.Embedding), m.dimensions)
		}
	}
	for _, rec := range records {
		emb := make([]float32, m.dimensions)
		copy(emb, rec.Embedding)
		m.records = append(m.records, &models.IndexedRecord{Chunk: rec.Chunk, Embedding: emb})
	}
	return nil
}

// Search returns the top-k records by cosine similarity, descending.
func (m *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedCandidate, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query got %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.records) == 0 {
		return []*models.RetrievedCandidate{}, nil
	}
	candidates := make([]*models.RetrievedCandidate, len(m.records))
	for i, rec := range m.records {
		candidates[i] = &models.RetrievedCandidate{
			Chunk: rec.Chunk,
			Score: CosineSimilarity(query, rec.Embedding),
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}

// Recreate drops all records.
func (m *MemoryStore) Recreate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.records)), nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
