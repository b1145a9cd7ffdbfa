// Package query runs the answer pipeline: retrieve, optionally rerank, and
// compose a grounded answer.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/llm"
)

// FallbackAnswer is the exact sentence returned when the retrieved context
// cannot ground an answer. The prompt instructs the model to reply with it
// verbatim, and a query with no candidates returns it without calling the
// model at all.
const FallbackAnswer = "I cannot answer your question"

const answerTemplate = `You are a question answering assistant.
Your task is to answer the user's question using only the known information given below.

Known information:
%s

User question:
%s

If the known information does not contain the answer, or is not sufficient to answer the question, reply exactly "%s".
Do not output information or answers that are not contained in the known information.
Answer the user's question in %s.`

// Composer turns retrieved context and a question into a grounded answer.
type Composer struct {
	generator llm.Generator
	language  string
}

// NewComposer creates a composer that answers in the given language.
func NewComposer(generator llm.Generator, language string) *Composer {
	if language == "" {
		language = "English"
	}
	return &Composer{generator: generator, language: language}
}

// BuildPrompt renders the grounding template with contexts joined by a blank line.
func BuildPrompt(question string, contexts []string, language string) string {
	return fmt.Sprintf(answerTemplate, strings.Join(contexts, "\n\n"), question, FallbackAnswer, language)
}

// Compose generates a grounded answer. With no context it returns
// FallbackAnswer immediately; the model only sees prompts that carry context.
func (c *Composer) Compose(ctx context.Context, question string, contexts []string) (string, error) {
	if len(contexts) == 0 {
		return FallbackAnswer, nil
	}
	answer, err := c.generator.Complete(ctx, BuildPrompt(question, contexts, c.language))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
