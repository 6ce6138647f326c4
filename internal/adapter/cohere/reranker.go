package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra/httpclient"
)

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponseResult struct {
	Index          int     `json:"index"`
	RelevanceScore float32 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResponseResult `json:"results"`
}

// Reranker implements domain.Reranker via Cohere's rerank endpoint.
type Reranker struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewReranker constructs a Reranker. If client is nil a pooled client with
// the given timeout is created.
func NewReranker(baseURL, apiKey, model string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *Reranker {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = httpclient.NewPooledClient(timeout)
	}
	return &Reranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  c,
		logger:  logger,
	}
}

// Rerank scores candidates against the query with the cross-encoder model.
// Results come back sorted by score descending. Callers fall back to the
// stage-1 ordering on error.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}

	start := time.Now()
	r.logger.Info("reranking_started",
		slog.String("query", truncate(query, 100)),
		slog.Int("candidate_count", len(candidates)),
		slog.String("model", r.model))

	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Content
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/rerank", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("reranking_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("failed to call rerank endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Warn("reranking_failed",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", truncate(string(body), 500)),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("rerank endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var rerankResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	results := make([]domain.RerankResult, len(rerankResp.Results))
	for i, res := range rerankResp.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			return nil, fmt.Errorf("invalid result index %d for %d candidates", res.Index, len(candidates))
		}
		results[i] = domain.RerankResult{
			ID:    candidates[res.Index].ID,
			Score: res.RelevanceScore,
		}
	}

	r.logger.Info("reranking_completed",
		slog.Int("result_count", len(results)),
		slog.String("model", r.model),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return results, nil
}

// ModelName returns the model identifier for logging.
func (r *Reranker) ModelName() string { return r.model }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ domain.Reranker = (*Reranker)(nil)
