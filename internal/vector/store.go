// Package vector provides the vector collection backend for embedded chunks.
package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrDimensionMismatch indicates a vector whose length does not match the
// collection dimension. The whole ingest or search call is aborted.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store persists indexed records and serves nearest-neighbor lookups.
// Search returns candidates in descending score order, at most k of them;
// an empty collection yields an empty result, not an error.
type Store interface {
	Upsert(ctx context.Context, records []*models.IndexedRecord) error
	Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedCandidate, error)
	// Recreate drops and recreates the collection. This is the only path that
	// removes stored chunks.
	Recreate(ctx context.Context) error
	Count(ctx context.Context) (uint64, error)
	Close() error
}
