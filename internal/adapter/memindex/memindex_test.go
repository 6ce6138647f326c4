package memindex_test

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-orchestrator/internal/adapter/memindex"
	"answer-orchestrator/internal/domain"
)

func newCollection(t *testing.T, idx *memindex.Index, name string, dim int) {
	t.Helper()
	err := idx.CreateCollection(context.Background(), domain.CollectionSpec{
		Name:      name,
		Dimension: dim,
		Metric:    domain.MetricCosine,
	}, false)
	require.NoError(t, err)
}

func chunkWithVector(id string, vec []float32) domain.Chunk {
	return domain.Chunk{
		ID:        id,
		Text:      "content of " + id,
		Type:      domain.ContentGeneric,
		Embedding: pgvector.NewVector(vec),
	}
}

func TestIndex_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 3)

	err := idx.Upsert(ctx, "kb", []domain.Chunk{
		chunkWithVector("a", []float32{1, 0, 0}),
		chunkWithVector("b", []float32{0, 1, 0}),
		chunkWithVector("c", []float32{0.9, 0.1, 0}),
	})
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "kb", []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.Equal(t, "c", hits[1].Chunk.ID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestIndex_UpsertReplacesExisting(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 2)

	require.NoError(t, idx.Upsert(ctx, "kb", []domain.Chunk{chunkWithVector("a", []float32{1, 0})}))
	require.NoError(t, idx.Upsert(ctx, "kb", []domain.Chunk{chunkWithVector("a", []float32{0, 1})}))

	count, err := idx.Count(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := idx.Search(ctx, "kb", []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, float64(hits[0].Similarity), 1e-5)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 3)

	err := idx.Upsert(ctx, "kb", []domain.Chunk{chunkWithVector("a", []float32{1, 0})})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = idx.Search(ctx, "kb", []float32{1, 0}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_UnknownCollection(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()

	err := idx.Upsert(ctx, "missing", []domain.Chunk{chunkWithVector("a", []float32{1})})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	_, err = idx.Search(ctx, "missing", []float32{1}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	_, err = idx.Count(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestIndex_RecreateSpecMismatch(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 3)

	err := idx.CreateCollection(ctx, domain.CollectionSpec{
		Name:      "kb",
		Dimension: 5,
		Metric:    domain.MetricCosine,
	}, false)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_ForceRecreateClearsContent(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 2)
	require.NoError(t, idx.Upsert(ctx, "kb", []domain.Chunk{chunkWithVector("a", []float32{1, 0})}))

	err := idx.CreateCollection(ctx, domain.CollectionSpec{
		Name:      "kb",
		Dimension: 2,
		Metric:    domain.MetricCosine,
	}, true)
	require.NoError(t, err)

	count, err := idx.Count(ctx, "kb")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndex_SearchFilter(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 2)

	list := chunkWithVector("list", []float32{1, 0})
	list.Type = domain.ContentList
	list.Section = "Awards"
	fact := chunkWithVector("fact", []float32{1, 0})
	fact.Type = domain.ContentFactualEntity
	fact.Section = "Cast"
	require.NoError(t, idx.Upsert(ctx, "kb", []domain.Chunk{list, fact}))

	hits, err := idx.Search(ctx, "kb", []float32{1, 0}, 10, &domain.SearchFilter{ContentType: domain.ContentList})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "list", hits[0].Chunk.ID)

	hits, err = idx.Search(ctx, "kb", []float32{1, 0}, 10, &domain.SearchFilter{Section: "Cast"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "fact", hits[0].Chunk.ID)
}

func TestIndex_TopKSmallerThanCollection(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 2)
	require.NoError(t, idx.Upsert(ctx, "kb", []domain.Chunk{
		chunkWithVector("a", []float32{1, 0}),
		chunkWithVector("b", []float32{0, 1}),
	}))

	// Asking for more than exists returns everything, gracefully.
	hits, err := idx.Search(ctx, "kb", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndex_DropCollection(t *testing.T) {
	ctx := context.Background()
	idx := memindex.New()
	newCollection(t, idx, "kb", 2)

	require.NoError(t, idx.DropCollection(ctx, "kb"))
	_, err := idx.Count(ctx, "kb")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}
