package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// ContentType labels what kind of knowledge a chunk carries. The label is
// assigned by lightweight structural heuristics at chunking time and is used
// for retrieval filtering and importance weighting.
type ContentType string

const (
	// ContentFactualEntity marks chunks dense in named entities and years.
	ContentFactualEntity ContentType = "factual-entity"
	// ContentList marks chunks dominated by bullet or numbered list items.
	ContentList ContentType = "list"
	// ContentRelational marks chunks built from labeled key-value facts
	// (e.g. "Director:", "Music:").
	ContentRelational ContentType = "relational"
	// ContentNarrative marks ordinary running prose.
	ContentNarrative ContentType = "narrative"
	// ContentGeneric is the fallback when no other signal applies.
	ContentGeneric ContentType = "generic"
)

const (
	// MinChunkChars is the minimum chunk length in runes. A document shorter
	// than this still yields one (importance-penalized) chunk.
	MinChunkChars = 80
	// MaxChunkChars is the maximum chunk length in runes before splitting at
	// sentence boundaries.
	MaxChunkChars = 1000
	// OverlapChars is the upper bound on trailing text carried into the next
	// chunk to preserve context continuity.
	OverlapChars = 200
)

// Chunk is a single indexed unit of knowledge-base text.
//
// Text includes Overlap leading runes duplicated from the tail of the
// previous chunk; stripping that prefix from every chunk and concatenating
// in Ordinal order reconstructs the normalized source text exactly.
type Chunk struct {
	ID         string
	Ordinal    int
	Text       string
	Overlap    int // rune count of the leading overlap prefix
	Section    string
	Subsection string
	Type       ContentType
	Entities   []string
	Importance float64
	Embedding  pgvector.Vector // zero until indexed
}

// ChunkID derives a stable identifier from the source name, the chunk's rune
// offset in the normalized document, and its content. Re-ingesting identical
// input produces identical ids, which makes re-upserts replace rather than
// duplicate.
func ChunkID(source string, offset int, text string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", source, offset, text)))
	return hex.EncodeToString(h[:])
}

// Chunker splits raw knowledge text into ordered, typed, scored chunks.
type Chunker interface {
	Chunk(source, text string) ([]Chunk, error)
}
