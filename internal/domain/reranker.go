package domain

import "context"

// RerankCandidate is a chunk submitted for cross-encoder rescoring.
type RerankCandidate struct {
	// ID is the chunk identifier, used to map scores back to candidates.
	ID string
	// Content is the text scored against the query.
	Content string
	// Score is the stage-1 similarity, kept for logging and fallback.
	Score float32
}

// RerankResult is a candidate with its cross-encoder relevance score.
type RerankResult struct {
	ID    string
	Score float32
}

// Reranker rescores a small candidate set against the query with a model
// more precise than coarse vector similarity. On error, callers fall back to
// the stage-1 ordering; rerank failure is degraded, never fatal.
type Reranker interface {
	// Rerank returns results sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging.
	ModelName() string
}
