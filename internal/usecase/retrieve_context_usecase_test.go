package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase"
)

// MockVectorEncoder
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string, role domain.EmbedRole) ([][]float32, error) {
	args := m.Called(ctx, texts, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Dimension() int {
	return 3
}

func (m *MockVectorEncoder) Version() string {
	return "mock-embed-v1"
}

// MockVectorIndex
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) CreateCollection(ctx context.Context, spec domain.CollectionSpec, forceRecreate bool) error {
	return m.Called(ctx, spec, forceRecreate).Error(0)
}

func (m *MockVectorIndex) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	return m.Called(ctx, collection, chunks).Error(0)
}

func (m *MockVectorIndex) Search(ctx context.Context, collection string, queryVector []float32, topK int, filter *domain.SearchFilter) ([]domain.SearchHit, error) {
	args := m.Called(ctx, collection, queryVector, topK, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchHit), args.Error(1)
}

func (m *MockVectorIndex) Count(ctx context.Context, collection string) (int, error) {
	args := m.Called(ctx, collection)
	return args.Int(0), args.Error(1)
}

func (m *MockVectorIndex) DropCollection(ctx context.Context, collection string) error {
	return m.Called(ctx, collection).Error(0)
}

// MockReranker
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string {
	return "mock-rerank-v1"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func hit(id string, similarity float32, importance float64) domain.SearchHit {
	return domain.SearchHit{
		Chunk:      domain.Chunk{ID: id, Text: "text of " + id, Importance: importance},
		Similarity: similarity,
	}
}

func TestRetrieveContext_StageOneOnly(t *testing.T) {
	mockIndex := new(MockVectorIndex)
	mockEncoder := new(MockVectorEncoder)

	uc := usecase.NewRetrieveContextUsecase(mockIndex, mockEncoder, nil, "kb",
		usecase.RerankConfig{Enabled: false}, testLogger())

	ctx := context.Background()
	queryVec := []float32{0.1, 0.2, 0.3}
	mockEncoder.On("Encode", ctx, []string{"who directed it"}, domain.RoleQuery).
		Return([][]float32{queryVec}, nil)
	mockIndex.On("Search", ctx, "kb", queryVec, 10, (*domain.SearchFilter)(nil)).
		Return([]domain.SearchHit{
			hit("a", 0.95, 0.5),
			hit("b", 0.80, 0.5),
			hit("c", 0.70, 0.5),
		}, nil)

	output, err := uc.Execute(ctx, usecase.RetrieveContextInput{
		Question:    "who directed it",
		TopKInitial: 10,
		TopNFinal:   2,
	})

	require.NoError(t, err)
	assert.False(t, output.Degraded)
	require.Len(t, output.Items, 2)
	assert.Equal(t, "a", output.Items[0].Chunk.ID)
	assert.Equal(t, "b", output.Items[1].Chunk.ID)
	assert.Equal(t, float32(0.95), output.Items[0].Relevance)
}

func TestRetrieveContext_ImportanceBreaksNearTies(t *testing.T) {
	mockIndex := new(MockVectorIndex)
	mockEncoder := new(MockVectorEncoder)

	uc := usecase.NewRetrieveContextUsecase(mockIndex, mockEncoder, nil, "kb",
		usecase.RerankConfig{Enabled: false}, testLogger())

	ctx := context.Background()
	queryVec := []float32{1, 0, 0}
	mockEncoder.On("Encode", ctx, mock.Anything, domain.RoleQuery).
		Return([][]float32{queryVec}, nil)
	// b is marginally less similar but far more important; the gap is inside
	// the tie-break band, so b wins.
	mockIndex.On("Search", ctx, "kb", queryVec, 10, (*domain.SearchFilter)(nil)).
		Return([]domain.SearchHit{
			hit("a", 0.900, 0.4),
			hit("b", 0.895, 0.9),
			hit("c", 0.500, 1.0),
		}, nil)

	output, err := uc.Execute(ctx, usecase.RetrieveContextInput{
		Question:    "q",
		TopKInitial: 10,
		TopNFinal:   3,
	})

	require.NoError(t, err)
	require.Len(t, output.Items, 3)
	assert.Equal(t, "b", output.Items[0].Chunk.ID)
	assert.Equal(t, "a", output.Items[1].Chunk.ID)
	assert.Equal(t, "c", output.Items[2].Chunk.ID, "importance never outranks a clear similarity gap")
}

func TestRetrieveContext_RerankReorders(t *testing.T) {
	mockIndex := new(MockVectorIndex)
	mockEncoder := new(MockVectorEncoder)
	mockReranker := new(MockReranker)

	uc := usecase.NewRetrieveContextUsecase(mockIndex, mockEncoder, mockReranker, "kb",
		usecase.RerankConfig{Enabled: true, Timeout: time.Second}, testLogger())

	ctx := context.Background()
	queryVec := []float32{1, 0, 0}
	mockEncoder.On("Encode", ctx, mock.Anything, domain.RoleQuery).
		Return([][]float32{queryVec}, nil)
	mockIndex.On("Search", ctx, "kb", queryVec, 10, (*domain.SearchFilter)(nil)).
		Return([]domain.SearchHit{
			hit("a", 0.95, 0.5),
			hit("b", 0.90, 0.5),
			hit("c", 0.85, 0.5),
		}, nil)
	// The cross-encoder disagrees with cosine order.
	mockReranker.On("Rerank", mock.Anything, "q", mock.Anything).
		Return([]domain.RerankResult{
			{ID: "c", Score: 0.99},
			{ID: "a", Score: 0.42},
			{ID: "b", Score: 0.10},
		}, nil)

	output, err := uc.Execute(ctx, usecase.RetrieveContextInput{
		Question:    "q",
		TopKInitial: 10,
		TopNFinal:   2,
	})

	require.NoError(t, err)
	assert.False(t, output.Degraded)
	require.Len(t, output.Items, 2)
	assert.Equal(t, "c", output.Items[0].Chunk.ID)
	assert.Equal(t, float32(0.99), output.Items[0].Relevance)
	assert.Equal(t, "a", output.Items[1].Chunk.ID)
}

func TestRetrieveContext_RerankFailureDegrades(t *testing.T) {
	mockIndex := new(MockVectorIndex)
	mockEncoder := new(MockVectorEncoder)
	mockReranker := new(MockReranker)

	uc := usecase.NewRetrieveContextUsecase(mockIndex, mockEncoder, mockReranker, "kb",
		usecase.RerankConfig{Enabled: true, Timeout: time.Second}, testLogger())

	ctx := context.Background()
	queryVec := []float32{1, 0, 0}
	mockEncoder.On("Encode", ctx, mock.Anything, domain.RoleQuery).
		Return([][]float32{queryVec}, nil)
	mockIndex.On("Search", ctx, "kb", queryVec, 10, (*domain.SearchFilter)(nil)).
		Return([]domain.SearchHit{
			hit("a", 0.95, 0.5),
			hit("b", 0.90, 0.5),
		}, nil)
	mockReranker.On("Rerank", mock.Anything, "q", mock.Anything).
		Return(nil, errors.New("rerank service unavailable"))

	output, err := uc.Execute(ctx, usecase.RetrieveContextInput{
		Question:    "q",
		TopKInitial: 10,
		TopNFinal:   2,
	})

	require.NoError(t, err, "rerank failure must not fail retrieval")
	assert.True(t, output.Degraded)
	require.Len(t, output.Items, 2)
	assert.Equal(t, "a", output.Items[0].Chunk.ID, "fallback keeps stage-one order")
}

func TestRetrieveContext_EmptyCollection(t *testing.T) {
	mockIndex := new(MockVectorIndex)
	mockEncoder := new(MockVectorEncoder)

	uc := usecase.NewRetrieveContextUsecase(mockIndex, mockEncoder, nil, "kb",
		usecase.RerankConfig{Enabled: true}, testLogger())

	ctx := context.Background()
	mockEncoder.On("Encode", ctx, mock.Anything, domain.RoleQuery).
		Return([][]float32{{1, 0, 0}}, nil)
	mockIndex.On("Search", ctx, "kb", mock.Anything, 10, (*domain.SearchFilter)(nil)).
		Return([]domain.SearchHit{}, nil)

	output, err := uc.Execute(ctx, usecase.RetrieveContextInput{Question: "q"})

	require.NoError(t, err)
	assert.Empty(t, output.Items)
	assert.False(t, output.Degraded)
}

func TestRetrieveContext_EmptyQuestion(t *testing.T) {
	uc := usecase.NewRetrieveContextUsecase(new(MockVectorIndex), new(MockVectorEncoder), nil, "kb",
		usecase.RerankConfig{}, testLogger())

	_, err := uc.Execute(context.Background(), usecase.RetrieveContextInput{Question: ""})
	assert.Error(t, err)
}
