package query

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGenerator) Close() error { return nil }

func TestComposer_emptyContextReturnsFallbackWithoutModelCall(t *testing.T) {
	gen := &stubGenerator{reply: "should never be used"}
	c := NewComposer(gen, "English")

	answer, err := c.Compose(context.Background(), "Anything?", nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer != FallbackAnswer {
		t.Errorf("answer = %q, want exactly %q", answer, FallbackAnswer)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("generator was called %d times, want 0", len(gen.prompts))
	}
}

func TestComposer_promptCarriesContextAndContract(t *testing.T) {
	gen := &stubGenerator{reply: "  The answer.  "}
	c := NewComposer(gen, "English")

	contexts := []string{"chunk one text", "chunk two text"}
	answer, err := c.Compose(context.Background(), "What is in the chunks?", contexts)
	if err != nil {
		t.Fatal(err)
	}
	if answer != "The answer." {
		t.Errorf("answer not trimmed: %q", answer)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("generator called %d times, want 1", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "chunk one text\n\nchunk two text") {
		t.Error("contexts should be joined with a blank line")
	}
	if !strings.Contains(prompt, "What is in the chunks?") {
		t.Error("prompt should carry the question")
	}
	if !strings.Contains(prompt, FallbackAnswer) {
		t.Error("prompt should state the exact fallback sentence")
	}
	if !strings.Contains(prompt, "in English") {
		t.Error("prompt should fix the answer language")
	}
}

func TestComposer_generatorFailure(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("rate limited")}
	c := NewComposer(gen, "English")

	_, err := c.Compose(context.Background(), "q", []string{"ctx"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error should wrap the cause, got %v", err)
	}
}
