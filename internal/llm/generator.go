// Package llm provides answer text generation via a language model provider.
package llm

import "context"

// Generator produces a completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}
