package models

import "fmt"

// QueryOptions carries per-query knobs shared by the HTTP API and the CLI.
type QueryOptions struct {
	// TopK is the number of candidates to return; 0 means the configured default.
	TopK int `json:"top_k,omitempty"`
	// Rerank routes candidates through the rerank service when one is configured.
	Rerank bool `json:"rerank,omitempty"`
	// NoSources omits retrieved chunks from the result (the answer is still grounded on them).
	NoSources bool `json:"no_sources,omitempty"`
}

// Validate normalizes the options, filling TopK from defaultTopK when unset.
func (o *QueryOptions) Validate(defaultTopK int) error {
	if o.TopK < 0 {
		return fmt.Errorf("top_k must be positive, got %d", o.TopK)
	}
	if o.TopK == 0 {
		o.TopK = defaultTopK
	}
	return nil
}
