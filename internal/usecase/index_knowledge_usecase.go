package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/worker"
)

// IndexKnowledgeInput defines the input parameters for ingesting a document.
type IndexKnowledgeInput struct {
	Source        string
	Text          string
	ForceRecreate bool
}

// IndexKnowledgeOutput reports what the ingestion run produced.
type IndexKnowledgeOutput struct {
	ChunksProduced int
	ChunksIndexed  int
	CountByType    map[domain.ContentType]int
	CollectionSize int
	Elapsed        time.Duration
}

// IndexKnowledgeUsecase defines the interface for the ingestion pipeline:
// chunk, embed, upsert. Re-ingesting an unchanged document is a no-op at the
// storage level because chunk IDs derive from content and position.
type IndexKnowledgeUsecase interface {
	Execute(ctx context.Context, input IndexKnowledgeInput) (*IndexKnowledgeOutput, error)
}

type indexKnowledgeUsecase struct {
	index       domain.VectorIndex
	chunker     domain.Chunker
	encoder     domain.VectorEncoder
	collection  string
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// NewIndexKnowledgeUsecase creates a new IndexKnowledgeUsecase. batchSize
// bounds how many chunks each embedding request carries and concurrency
// bounds how many embed+upsert units run at once.
func NewIndexKnowledgeUsecase(
	index domain.VectorIndex,
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	collection string,
	batchSize int,
	concurrency int,
	logger *slog.Logger,
) IndexKnowledgeUsecase {
	if batchSize < 1 {
		batchSize = 96
	}
	return &indexKnowledgeUsecase{
		index:       index,
		chunker:     chunker,
		encoder:     encoder,
		collection:  collection,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (u *indexKnowledgeUsecase) Execute(ctx context.Context, input IndexKnowledgeInput) (*IndexKnowledgeOutput, error) {
	started := time.Now()

	chunks, err := u.chunker.Chunk(input.Source, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document %s: %w", input.Source, err)
	}

	spec := domain.CollectionSpec{
		Name:      u.collection,
		Dimension: u.encoder.Dimension(),
		Metric:    domain.MetricCosine,
	}
	if err := u.index.CreateCollection(ctx, spec, input.ForceRecreate); err != nil {
		return nil, fmt.Errorf("failed to ensure collection %s: %w", u.collection, err)
	}

	if len(chunks) == 0 {
		u.logger.Info("ingestion_skipped", "source", input.Source, "reason", "empty_document")
		size, _ := u.index.Count(ctx, u.collection)
		return &IndexKnowledgeOutput{
			CountByType:    map[domain.ContentType]int{},
			CollectionSize: size,
			Elapsed:        time.Since(started),
		}, nil
	}

	batches := splitBatches(chunks, u.batchSize)
	indexedPerBatch, err := worker.Run(ctx, u.concurrency, batches, func(ctx context.Context, batch []domain.Chunk) (int, error) {
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		embeddings, err := u.encoder.Encode(ctx, texts, domain.RoleIndexing)
		if err != nil {
			return 0, fmt.Errorf("failed to encode batch: %w", err)
		}
		if len(embeddings) != len(batch) {
			return 0, fmt.Errorf("%w: expected %d, got %d", domain.ErrEmbeddingSizeMismatch, len(batch), len(embeddings))
		}
		for i := range batch {
			batch[i].Embedding = pgvector.NewVector(embeddings[i])
		}
		if err := u.index.Upsert(ctx, u.collection, batch); err != nil {
			return 0, fmt.Errorf("failed to upsert batch: %w", err)
		}
		return len(batch), nil
	})
	if err != nil {
		return nil, err
	}

	indexed := 0
	for _, n := range indexedPerBatch {
		indexed += n
	}

	byType := make(map[domain.ContentType]int)
	for _, c := range chunks {
		byType[c.Type]++
	}

	size, err := u.index.Count(ctx, u.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to count collection %s: %w", u.collection, err)
	}

	out := &IndexKnowledgeOutput{
		ChunksProduced: len(chunks),
		ChunksIndexed:  indexed,
		CountByType:    byType,
		CollectionSize: size,
		Elapsed:        time.Since(started),
	}
	u.logger.Info("ingestion_completed",
		"source", input.Source,
		"chunks", out.ChunksProduced,
		"indexed", out.ChunksIndexed,
		"collection_size", out.CollectionSize,
		"elapsed_ms", out.Elapsed.Milliseconds())
	return out, nil
}

func splitBatches(chunks []domain.Chunk, size int) [][]domain.Chunk {
	var batches [][]domain.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}
