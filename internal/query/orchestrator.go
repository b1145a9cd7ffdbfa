package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/querylog"
	"github.com/hyperjump/kotae/internal/rerank"
	"github.com/hyperjump/kotae/internal/vector"
)

// rerankOverfetch widens retrieval when reranking so the cross-encoder has
// more candidates to reorder than the final k.
const rerankOverfetch = 2

// Orchestrator wires the retrieval and answer pipeline.
type Orchestrator struct {
	embedder    embedding.Embedder
	store       vector.Store
	reranker    rerank.Reranker  // optional; nil disables the rerank stage
	composer    *Composer
	queryLog    *querylog.Logger // optional
	defaultTopK int
	logger      *zap.Logger // optional
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithReranker enables the optional rerank stage.
func WithReranker(r rerank.Reranker) OrchestratorOption {
	return func(o *Orchestrator) { o.reranker = r }
}

// WithQueryLog appends every completed query to the daily log.
func WithQueryLog(l *querylog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.queryLog = l }
}

// WithLogger sets a logger for pipeline diagnostics.
func WithLogger(l *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator with the given dependencies.
func NewOrchestrator(
	embedder embedding.Embedder,
	store vector.Store,
	composer *Composer,
	defaultTopK int,
	opts ...OrchestratorOption,
) *Orchestrator {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	o := &Orchestrator{
		embedder:    embedder,
		store:       store,
		composer:    composer,
		defaultTopK: defaultTopK,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RetrieveDocuments returns the top candidates for a question without
// generating an answer. An empty collection yields an empty slice.
func (o *Orchestrator) RetrieveDocuments(ctx context.Context, question string, opts *models.QueryOptions) ([]*models.RetrievedCandidate, error) {
	if opts == nil {
		opts = &models.QueryOptions{}
	}
	if err := opts.Validate(o.defaultTopK); err != nil {
		return nil, err
	}
	vec, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	candidates, err := o.store.Search(ctx, vec, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return candidates, nil
}

// Query runs the full pipeline for one question. Failures never escape as
// errors: the result's Answer carries the failure description so batch runs
// and the HTTP API treat every question uniformly.
func (o *Orchestrator) Query(ctx context.Context, question string, opts *models.QueryOptions) *models.QueryResult {
	start := time.Now()
	result, err := o.answer(ctx, question, opts)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("query failed", zap.String("question", question), zap.Error(err))
		}
		result = &models.QueryResult{
			Question: question,
			Answer:   fmt.Sprintf("query failed: %v", err),
			Sources:  []models.RetrievedCandidate{},
			Failed:   true,
		}
	}
	result.ProcessingTime = time.Since(start).Seconds()

	if o.queryLog != nil {
		if logErr := o.queryLog.Log(result); logErr != nil && o.logger != nil {
			o.logger.Warn("query log append failed", zap.Error(logErr))
		}
	}
	return result
}

func (o *Orchestrator) answer(ctx context.Context, question string, opts *models.QueryOptions) (*models.QueryResult, error) {
	if opts == nil {
		opts = &models.QueryOptions{}
	}
	if err := opts.Validate(o.defaultTopK); err != nil {
		return nil, err
	}
	k := opts.TopK
	useRerank := opts.Rerank && o.reranker != nil

	fetch := k
	if useRerank {
		fetch = rerankOverfetch * k
	}
	vec, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	candidates, err := o.store.Search(ctx, vec, fetch)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if useRerank && len(candidates) > 0 {
		candidates = o.rerankCandidates(ctx, question, candidates, k)
	} else if len(candidates) > k {
		candidates = candidates[:k]
	}

	contexts := make([]string, len(candidates))
	for i, cand := range candidates {
		contexts[i] = cand.Chunk.Text
	}
	answer, err := o.composer.Compose(ctx, question, contexts)
	if err != nil {
		return nil, err
	}

	result := &models.QueryResult{
		Question: question,
		Answer:   answer,
		Sources:  []models.RetrievedCandidate{},
	}
	if !opts.NoSources {
		for _, cand := range candidates {
			result.Sources = append(result.Sources, *cand)
		}
	}
	return result, nil
}

// rerankCandidates reorders candidates via the rerank service, matching
// results back by input index. On failure it falls back to retrieval order
// truncated to k; a degraded rerank service never fails the query.
func (o *Orchestrator) rerankCandidates(ctx context.Context, question string, candidates []*models.RetrievedCandidate, k int) []*models.RetrievedCandidate {
	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Chunk.Text
	}
	results, err := o.reranker.Rerank(ctx, question, documents, k)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("rerank failed, falling back to retrieval order", zap.Error(err))
		}
		if len(candidates) > k {
			return candidates[:k]
		}
		return candidates
	}

	reranked := make([]*models.RetrievedCandidate, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		reranked = append(reranked, &models.RetrievedCandidate{
			Chunk: candidates[res.Index].Chunk,
			Score: res.Score,
		})
	}
	return reranked
}

// BatchQuery answers questions sequentially in input order. One failed
// question does not abort the rest; a canceled context stops before the next
// question.
func (o *Orchestrator) BatchQuery(ctx context.Context, questions []string, opts *models.QueryOptions) []*models.QueryResult {
	results := make([]*models.QueryResult, 0, len(questions))
	for _, question := range questions {
		if ctx.Err() != nil {
			break
		}
		results = append(results, o.Query(ctx, question, opts))
	}
	return results
}
