// Package models defines core data structures for chunks, queries, and answers.
package models

import "time"

// SourceType identifies the kind of document a chunk came from.
type SourceType string

const (
	SourcePDF  SourceType = "pdf"
	SourceText SourceType = "text"
)

// Chunk is one retrievable unit of text produced at ingest time.
// Chunks are immutable once stored; the only removal path is a collection rebuild.
type Chunk struct {
	Text          string     `json:"text"`
	SourceID      string     `json:"source_id"`
	SequenceIndex int        `json:"sequence_index"`
	SourceType    SourceType `json:"source_type"`
}

// IndexedRecord pairs a chunk with its embedding for storage in the vector backend.
type IndexedRecord struct {
	Chunk     Chunk     `json:"chunk"`
	Embedding []float32 `json:"-"`
}

// RetrievedCandidate is a chunk with a relevance score. The score scale depends
// on the stage that produced it: cosine similarity from retrieval, or the
// rerank service's relevance score after reranking. Scores from different
// stages are never compared.
type RetrievedCandidate struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// IngestReport summarizes one ingest operation for a single source.
type IngestReport struct {
	SourceID      string     `json:"source_id"`
	SourceType    SourceType `json:"source_type"`
	ChunksIndexed int        `json:"chunks_indexed"`
	IngestedAt    time.Time  `json:"ingested_at"`
}
