package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"answer-orchestrator/internal/domain"
)

// similarityEpsilon is the band inside which two stage-one hits are treated
// as equally similar and ordered by importance instead.
const similarityEpsilon = 0.01

// RetrieveContextInput defines the input parameters for RetrieveContext.
type RetrieveContextInput struct {
	Question   string
	TopKInitial int
	TopNFinal   int
	Filter      *domain.SearchFilter
}

// RetrievedChunk is a single context chunk with its final relevance score.
// Relevance is the rerank score when stage two ran, otherwise the stage-one
// cosine similarity.
type RetrievedChunk struct {
	Chunk     domain.Chunk
	Relevance float32
}

// RetrieveContextOutput defines the output for RetrieveContext. Degraded is
// true when the reranker was requested but unavailable and the result fell
// back to stage-one order.
type RetrieveContextOutput struct {
	Items    []RetrievedChunk
	Degraded bool
}

// RerankConfig controls the optional second retrieval stage.
type RerankConfig struct {
	Enabled bool
	Timeout time.Duration
}

// RetrieveContextUsecase defines the interface for two-stage context retrieval.
type RetrieveContextUsecase interface {
	Execute(ctx context.Context, input RetrieveContextInput) (*RetrieveContextOutput, error)
}

type retrieveContextUsecase struct {
	index      domain.VectorIndex
	encoder    domain.VectorEncoder
	reranker   domain.Reranker
	collection string
	rerank     RerankConfig
	logger     *slog.Logger
}

// NewRetrieveContextUsecase creates a new RetrieveContextUsecase. reranker
// may be nil, which disables stage two without marking results degraded.
func NewRetrieveContextUsecase(
	index domain.VectorIndex,
	encoder domain.VectorEncoder,
	reranker domain.Reranker,
	collection string,
	rerank RerankConfig,
	logger *slog.Logger,
) RetrieveContextUsecase {
	return &retrieveContextUsecase{
		index:      index,
		encoder:    encoder,
		reranker:   reranker,
		collection: collection,
		rerank:     rerank,
		logger:     logger,
	}
}

func (u *retrieveContextUsecase) Execute(ctx context.Context, input RetrieveContextInput) (*RetrieveContextOutput, error) {
	if input.Question == "" {
		return nil, fmt.Errorf("question is empty")
	}
	topK := input.TopKInitial
	if topK < 1 {
		topK = 10
	}
	topN := input.TopNFinal
	if topN < 1 {
		topN = 5
	}

	embeddings, err := u.encoder.Encode(ctx, []string{input.Question}, domain.RoleQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to encode question: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	hits, err := u.index.Search(ctx, u.collection, embeddings[0], topK, input.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", u.collection, err)
	}
	if len(hits) == 0 {
		return &RetrieveContextOutput{Items: []RetrievedChunk{}}, nil
	}

	orderStageOne(hits)

	useRerank := u.rerank.Enabled && u.reranker != nil
	if !useRerank {
		return &RetrieveContextOutput{Items: topChunks(hits, topN)}, nil
	}

	reranked, err := u.rerankHits(ctx, input.Question, hits, topN)
	if err != nil {
		u.logger.Warn("rerank_degraded",
			"collection", u.collection,
			"candidates", len(hits),
			"error", err)
		return &RetrieveContextOutput{Items: topChunks(hits, topN), Degraded: true}, nil
	}
	return &RetrieveContextOutput{Items: reranked}, nil
}

func (u *retrieveContextUsecase) rerankHits(ctx context.Context, question string, hits []domain.SearchHit, topN int) ([]RetrievedChunk, error) {
	if u.rerank.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.rerank.Timeout)
		defer cancel()
	}

	candidates := make([]domain.RerankCandidate, len(hits))
	byID := make(map[string]domain.Chunk, len(hits))
	for i, hit := range hits {
		candidates[i] = domain.RerankCandidate{
			ID:      hit.Chunk.ID,
			Content: hit.Chunk.Text,
			Score:   hit.Similarity,
		}
		byID[hit.Chunk.ID] = hit.Chunk
	}

	results, err := u.reranker.Rerank(ctx, question, candidates)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, domain.ErrRerankUnavailable
	}

	items := make([]RetrievedChunk, 0, topN)
	for _, res := range results {
		chunk, ok := byID[res.ID]
		if !ok {
			continue
		}
		items = append(items, RetrievedChunk{Chunk: chunk, Relevance: res.Score})
		if len(items) == topN {
			break
		}
	}
	if len(items) == 0 {
		return nil, domain.ErrRerankUnavailable
	}
	return items, nil
}

// orderStageOne sorts hits by similarity descending, breaking near-ties
// (within similarityEpsilon) by chunk importance so that a slightly less
// similar but more important chunk can win.
func orderStageOne(hits []domain.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		di := hits[i].Similarity - hits[j].Similarity
		if di > similarityEpsilon {
			return true
		}
		if di < -similarityEpsilon {
			return false
		}
		return hits[i].Chunk.Importance > hits[j].Chunk.Importance
	})
}

func topChunks(hits []domain.SearchHit, n int) []RetrievedChunk {
	if n > len(hits) {
		n = len(hits)
	}
	items := make([]RetrievedChunk, n)
	for i := 0; i < n; i++ {
		items[i] = RetrievedChunk{Chunk: hits[i].Chunk, Relevance: hits[i].Similarity}
	}
	return items
}
