package models

// QueryResult is the uniform outcome of one question, with or without reranking.
// A failed query still yields a QueryResult: Answer carries the failure
// description and Sources is empty, so batch runs and the HTTP API never have
// to special-case errors per question.
type QueryResult struct {
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Sources  []RetrievedCandidate `json:"sources"`
	// ProcessingTime is wall-clock seconds from receipt to answer.
	ProcessingTime float64 `json:"processing_time"`
	Failed         bool    `json:"failed,omitempty"`
}

// RetrievalResponse is the documents-only response shape for /relevant-docs.
type RetrievalResponse struct {
	Question   string                `json:"question"`
	Documents  []*RetrievedCandidate `json:"documents"`
	TotalCount int                   `json:"total_count"`
}
