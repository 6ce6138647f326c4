package domain

import "context"

// EmbedRole tells the embedding service whether the texts are corpus content
// being indexed or a query being searched. Some embedding models vary the
// representation by role.
type EmbedRole string

const (
	RoleIndexing EmbedRole = "indexing"
	RoleQuery    EmbedRole = "query"
)

// VectorEncoder converts texts into fixed-dimension embeddings. Output order
// matches input order and output length equals input length exactly;
// implementations return ErrEmbeddingSizeMismatch otherwise.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string, role EmbedRole) ([][]float32, error)
	// Dimension reports the fixed output vector size.
	Dimension() int
	Version() string
}
