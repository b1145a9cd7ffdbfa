// Package rerank provides cross-encoder relevance reranking of retrieval candidates.
package rerank

import "context"

// Result scores one input document. Index is the document's position in the
// Rerank input slice, so callers match results back to candidates without
// relying on text equality.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"relevance_score"`
}

// Reranker orders documents by relevance to a query. Implementations return
// at most topK results in descending score order; every returned Index refers
// to the input documents slice.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error)
}
