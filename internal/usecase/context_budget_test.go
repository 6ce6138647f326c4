package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase"
)

func budgetItems(texts ...string) []usecase.RetrievedChunk {
	items := make([]usecase.RetrievedChunk, len(texts))
	for i, text := range texts {
		items[i] = usecase.RetrievedChunk{
			Chunk: domain.Chunk{ID: string(rune('a' + i)), Text: text},
		}
	}
	return items
}

func TestTokenBudget_IncludesEverythingUnderLimit(t *testing.T) {
	b := usecase.NewTokenBudget(100000)

	text, ids := b.Assemble(budgetItems("first chunk", "second chunk", "third chunk"))

	assert.Equal(t, "first chunk\n\nsecond chunk\n\nthird chunk", text)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestTokenBudget_TruncatesAtChunkBoundary(t *testing.T) {
	b := usecase.NewTokenBudget(30)

	long := strings.Repeat("word ", 60)
	text, ids := b.Assemble(budgetItems("short opener", long, "never reached"))

	require.Equal(t, []string{"a"}, ids, "oversized chunk is dropped whole, nothing after it sneaks in")
	assert.Equal(t, "short opener", text)
}

func TestTokenBudget_FirstChunkAlwaysIncluded(t *testing.T) {
	b := usecase.NewTokenBudget(5)

	long := strings.Repeat("word ", 100)
	text, ids := b.Assemble(budgetItems(long))

	require.Equal(t, []string{"a"}, ids)
	assert.Equal(t, long, text)
}

func TestTokenBudget_EmptyInput(t *testing.T) {
	b := usecase.NewTokenBudget(1000)

	text, ids := b.Assemble(nil)
	assert.Empty(t, text)
	assert.Empty(t, ids)
}
