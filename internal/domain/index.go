package domain

import "context"

// DistanceMetric is declared at collection creation time.
type DistanceMetric string

const (
	// MetricCosine scores hits by cosine similarity in [-1,1], more is
	// better.
	MetricCosine DistanceMetric = "cosine"
)

// CollectionSpec declares a collection's identity up front. The index
// rejects writes against unknown or dimension-mismatched collections.
type CollectionSpec struct {
	Name      string
	Dimension int
	Metric    DistanceMetric
}

// SearchFilter narrows a search to chunks matching the given metadata.
// Zero-valued fields do not filter.
type SearchFilter struct {
	ContentType ContentType
	Section     string
}

// SearchHit is one similarity-search result.
type SearchHit struct {
	Chunk      Chunk
	Similarity float32
}

// VectorIndex stores chunk embeddings and answers similarity queries. It is
// the only durable state in the system; Upsert is idempotent per chunk id so
// re-ingestion and cancellation mid-batch are safe.
type VectorIndex interface {
	// CreateCollection declares a collection. Recreating an existing
	// collection with the same spec is a no-op; forceRecreate drops any prior
	// content first.
	CreateCollection(ctx context.Context, spec CollectionSpec, forceRecreate bool) error

	// Upsert stores chunks with their embeddings. Re-upserting an id replaces
	// the prior entry atomically from the caller's perspective. Returns
	// ErrDimensionMismatch for wrong-size embeddings and
	// ErrCollectionNotFound for undeclared collections.
	Upsert(ctx context.Context, collection string, chunks []Chunk) error

	// Search returns up to topK hits ordered by descending similarity.
	Search(ctx context.Context, collection string, queryVector []float32, topK int, filter *SearchFilter) ([]SearchHit, error)

	// Count reports how many chunks a collection holds.
	Count(ctx context.Context, collection string) (int, error)

	// DropCollection removes a collection and its content.
	DropCollection(ctx context.Context, collection string) error
}
