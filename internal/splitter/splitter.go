// Package splitter turns extracted document text into chunk texts.
package splitter

import (
	"context"
	"strings"
)

// Splitter produces chunk texts from a document. Implementations guarantee
// that joining the chunks reproduces the input text modulo whitespace, that
// output order follows input order, and that no chunk is blank after trimming.
type Splitter interface {
	Split(ctx context.Context, text string) ([]string, error)
}

// FixedSplitter splits text into overlapping word windows. It is the fallback
// strategy when semantic splitting is not wanted, and needs no embedder.
type FixedSplitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewFixedSplitter creates a splitter with the given window size and overlap (in words).
func NewFixedSplitter(chunkSize, chunkOverlap int) *FixedSplitter {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &FixedSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split returns overlapping word windows in input order.
func (s *FixedSplitter) Split(ctx context.Context, text string) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}
	step := s.chunkSize - s.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + s.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks, nil
}
