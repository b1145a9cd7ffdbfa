package splitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/vector"
)

// SemanticSplitter groups sentences into chunks by embedding similarity.
// Each sentence is embedded together with a buffer of neighboring sentences;
// a chunk boundary is placed wherever the cosine distance between adjacent
// windows exceeds the document's breakpoint percentile. Documents whose
// sentences are uniformly similar come out as a single chunk.
type SemanticSplitter struct {
	embedder             embedding.Embedder
	bufferSize           int
	breakpointPercentile float64
}

// NewSemanticSplitter creates a splitter over the given embedder.
// bufferSize is the number of neighboring sentences included on each side of
// a window; breakpointPercentile picks the distance threshold (95 keeps
// roughly the top 5% of boundaries).
func NewSemanticSplitter(embedder embedding.Embedder, bufferSize int, breakpointPercentile float64) (*SemanticSplitter, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	if breakpointPercentile <= 0 || breakpointPercentile > 100 {
		breakpointPercentile = 95
	}
	return &SemanticSplitter{
		embedder:             embedder,
		bufferSize:           bufferSize,
		breakpointPercentile: breakpointPercentile,
	}, nil
}

// Split returns semantically coherent chunks in input order.
// An embedder failure fails the whole split; no partial output.
func (s *SemanticSplitter) Split(ctx context.Context, text string) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) <= 1 {
		return trimNonEmpty(sentences), nil
	}

	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := i - s.bufferSize
		if lo < 0 {
			lo = 0
		}
		hi := i + s.bufferSize + 1
		if hi > len(sentences) {
			hi = len(sentences)
		}
		parts := make([]string, 0, hi-lo)
		for _, sent := range sentences[lo:hi] {
			parts = append(parts, strings.TrimSpace(sent))
		}
		windows[i] = strings.Join(parts, " ")
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, windows)
	if err != nil {
		return nil, fmt.Errorf("embed sentence windows: %w", err)
	}

	distances := make([]float64, len(sentences)-1)
	for i := range distances {
		distances[i] = 1 - vector.CosineSimilarity(embeddings[i], embeddings[i+1])
	}
	threshold := percentile(distances, s.breakpointPercentile)

	var chunks []string
	var b strings.Builder
	for i, sent := range sentences {
		b.WriteString(sent)
		if i < len(distances) && distances[i] > threshold {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return trimNonEmpty(chunks), nil
}

func trimNonEmpty(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}
