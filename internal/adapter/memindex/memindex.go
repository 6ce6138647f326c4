// Package memindex provides a brute-force in-memory VectorIndex with the
// same collection contract as the Postgres implementation. It backs tests
// and single-shot local ingestion runs.
package memindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"answer-orchestrator/internal/domain"
)

type collection struct {
	spec   domain.CollectionSpec
	chunks map[string]domain.Chunk
}

// Index is a thread-safe in-memory vector index using exact cosine
// similarity.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

func (x *Index) CreateCollection(_ context.Context, spec domain.CollectionSpec, forceRecreate bool) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	existing, ok := x.collections[spec.Name]
	if ok && !forceRecreate {
		if existing.spec.Dimension != spec.Dimension || existing.spec.Metric != spec.Metric {
			return fmt.Errorf("collection %s declared with dimension %d metric %s: %w",
				spec.Name, existing.spec.Dimension, existing.spec.Metric, domain.ErrDimensionMismatch)
		}
		return nil
	}
	x.collections[spec.Name] = &collection{
		spec:   spec,
		chunks: make(map[string]domain.Chunk),
	}
	return nil
}

func (x *Index) Upsert(_ context.Context, name string, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	col, ok := x.collections[name]
	if !ok {
		return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	for _, chunk := range chunks {
		if got := len(chunk.Embedding.Slice()); got != col.spec.Dimension {
			return fmt.Errorf("chunk %s has dimension %d, collection %s declares %d: %w",
				chunk.ID, got, name, col.spec.Dimension, domain.ErrDimensionMismatch)
		}
	}
	for _, chunk := range chunks {
		col.chunks[chunk.ID] = chunk
	}
	return nil
}

func (x *Index) Search(_ context.Context, name string, queryVector []float32, topK int, filter *domain.SearchFilter) ([]domain.SearchHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	col, ok := x.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	if len(queryVector) != col.spec.Dimension {
		return nil, fmt.Errorf("query vector has dimension %d, collection %s declares %d: %w",
			len(queryVector), name, col.spec.Dimension, domain.ErrDimensionMismatch)
	}
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	hits := make([]domain.SearchHit, 0, len(col.chunks))
	for _, chunk := range col.chunks {
		if filter != nil && filter.ContentType != "" && chunk.Type != filter.ContentType {
			continue
		}
		if filter != nil && filter.Section != "" && chunk.Section != filter.Section {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Chunk:      chunk,
			Similarity: cosineSimilarity(chunk.Embedding.Slice(), queryVector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (x *Index) Count(_ context.Context, name string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	col, ok := x.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	return len(col.chunks), nil
}

func (x *Index) DropCollection(_ context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.collections, name)
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ domain.VectorIndex = (*Index)(nil)
