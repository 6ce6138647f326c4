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

	"github.com/cenkalti/backoff/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/infra/httpclient"
	"answer-orchestrator/internal/infra/ratelimit"
)

const queryCacheSize = 256

// Embedder calls Cohere's embed endpoint. It batches inputs, throttles calls
// through a shared gate, retries transient failures, and caches single-query
// embeddings.
type Embedder struct {
	baseURL   string
	apiKey    string
	model     string
	dimension int
	maxBatch  int
	client    *http.Client
	gate      ratelimit.Gate
	retry     domain.RetryPolicy
	cache     *lru.Cache[string, []float32]
	logger    *slog.Logger
}

// NewEmbedder constructs an Embedder. maxBatch caps texts per API call;
// inputs beyond it are split into multiple calls concatenated in order.
func NewEmbedder(baseURL, apiKey, model string, dimension, maxBatch int, gate ratelimit.Gate, retry domain.RetryPolicy, logger *slog.Logger) *Embedder {
	cache, _ := lru.New[string, []float32](queryCacheSize)
	return &Embedder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		maxBatch:  maxBatch,
		client:    httpclient.NewPooledClient(30 * time.Second),
		gate:      gate,
		retry:     retry,
		cache:     cache,
		logger:    logger,
	}
}

type embedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

// Encode embeds texts in order. Role selects the service-side representation
// (search_document for indexing, search_query for queries).
func (e *Embedder) Encode(ctx context.Context, texts []string, role domain.EmbedRole) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if role == domain.RoleQuery && len(texts) == 1 {
		if vec, ok := e.cache.Get(texts[0]); ok {
			return [][]float32{vec}, nil
		}
	}

	start := time.Now()
	out := make([][]float32, 0, len(texts))

	for batchIdx, offset := 0, 0; offset < len(texts); batchIdx, offset = batchIdx+1, offset+e.maxBatch {
		end := offset + e.maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[offset:end]

		if err := e.gate.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate gate: %w", err)
		}

		vectors, err := domain.Retry(ctx, e.retry, func() ([][]float32, error) {
			return e.embedBatch(ctx, batch, role)
		})
		if err != nil {
			e.logger.Error("embedding_batch_failed",
				slog.Int("batch_index", batchIdx),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			return nil, &domain.EmbeddingServiceError{BatchIndex: batchIdx, Err: err}
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("batch %d returned %d vectors for %d texts: %w",
				batchIdx, len(vectors), len(batch), domain.ErrEmbeddingSizeMismatch)
		}
		out = append(out, vectors...)
	}

	if len(out) != len(texts) {
		return nil, domain.ErrEmbeddingSizeMismatch
	}

	if role == domain.RoleQuery && len(texts) == 1 {
		e.cache.Add(texts[0], out[0])
	}

	e.logger.Info("embedding_completed",
		slog.Int("text_count", len(texts)),
		slog.String("role", string(role)),
		slog.String("model", e.model),
		slog.Duration("elapsed", time.Since(start)))

	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string, role domain.EmbedRole) ([][]float32, error) {
	inputType := "search_document"
	if role == domain.RoleQuery {
		inputType = "search_query"
	}

	reqBody := embedRequest{
		Model:          e.model,
		Texts:          batch,
		InputType:      inputType,
		EmbeddingTypes: []string{"float"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal embed request: %w", err))
	}

	url := fmt.Sprintf("%s/v2/embed", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create embed request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embed endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("embed endpoint returned %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var respBody embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	return respBody.Embeddings.Float, nil
}

// Dimension reports the declared output vector size.
func (e *Embedder) Dimension() int { return e.dimension }

// Version returns the wrapped model name.
func (e *Embedder) Version() string { return e.model }

var _ domain.VectorEncoder = (*Embedder)(nil)
