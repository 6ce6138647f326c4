package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmbeddingSizeMismatch signals that the embedding service returned a
	// different number of vectors than texts submitted.
	ErrEmbeddingSizeMismatch = errors.New("embedding count does not match input count")

	// ErrDimensionMismatch signals a vector whose dimensionality differs from
	// the collection's declared size. Writes are rejected at upsert time.
	ErrDimensionMismatch = errors.New("vector dimension does not match collection")

	// ErrCollectionNotFound signals an operation against a collection that
	// was never created. The index fails closed.
	ErrCollectionNotFound = errors.New("collection does not exist")

	// ErrRerankUnavailable marks the degraded (non-fatal) path where stage-2
	// reranking could not run and stage-1 ordering is used instead.
	ErrRerankUnavailable = errors.New("reranking unavailable")

	// ErrAnswerFormatMismatch marks the degraded (non-fatal) path where the
	// generated text did not parse into the declared question type's shape.
	ErrAnswerFormatMismatch = errors.New("generated answer does not match question format")
)

// EmbeddingServiceError reports retry exhaustion against the embedding
// service, carrying the index of the batch that triggered it so the caller
// can decide whether to skip or abort.
type EmbeddingServiceError struct {
	BatchIndex int
	Err        error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service failed on batch %d: %v", e.BatchIndex, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError reports retry exhaustion against the generation
// service for a single question.
type GenerationServiceError struct {
	QuestionID string
	Err        error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service failed for question %s: %v", e.QuestionID, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }
