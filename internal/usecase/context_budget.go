package usecase

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenBudget assembles retrieved chunks into a single context block without
// exceeding a token limit. Chunks are kept or dropped whole, never cut in the
// middle, so the model always sees complete passages.
type TokenBudget struct {
	enc   *tiktoken.Tiktoken
	limit int
}

// NewTokenBudget creates a budget backed by the cl100k_base encoding. When
// the encoding cannot be loaded (offline environments), counting falls back
// to a whitespace approximation instead of failing.
func NewTokenBudget(limit int) *TokenBudget {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &TokenBudget{enc: enc, limit: limit}
}

// Assemble joins chunk texts with blank lines, stopping before the first
// chunk that would push the total past the limit. It returns the assembled
// context and the IDs of the chunks that made it in. The highest ranked
// chunk is always included even when it alone exceeds the limit, so an
// answer never runs with empty context while context exists.
func (b *TokenBudget) Assemble(items []RetrievedChunk) (string, []string) {
	if len(items) == 0 {
		return "", nil
	}

	var parts []string
	var ids []string
	used := 0
	for i, item := range items {
		cost := b.countTokens(item.Chunk.Text)
		if i > 0 && used+cost > b.limit {
			break
		}
		parts = append(parts, item.Chunk.Text)
		ids = append(ids, item.Chunk.ID)
		used += cost
	}
	return strings.Join(parts, "\n\n"), ids
}

func (b *TokenBudget) countTokens(text string) int {
	if b.enc != nil {
		return len(b.enc.Encode(text, nil, nil))
	}
	return len(strings.Fields(text))
}
