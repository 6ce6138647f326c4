package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-orchestrator/internal/domain"
	"answer-orchestrator/internal/usecase"
)

func TestPromptBuilder_StructureAndContext(t *testing.T) {
	b := usecase.NewPromptBuilder()

	messages, err := b.Build(usecase.PromptInput{
		Question: domain.Question{
			ID:           "q1",
			Text:         "Who directed the film?",
			DeclaredType: domain.FreeText,
		},
		Context: "The film was directed by Ashutosh Gowariker.",
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "EXACT SAME FORMAT")
	assert.Equal(t, "user", messages[1].Role)
	assert.Contains(t, messages[1].Content, "Context:\nThe film was directed by Ashutosh Gowariker.")
	assert.Contains(t, messages[1].Content, "Question: Who directed the film?")
}

func TestPromptBuilder_LettersOptions(t *testing.T) {
	b := usecase.NewPromptBuilder()

	messages, err := b.Build(usecase.PromptInput{
		Question: domain.Question{
			ID:           "q2",
			Text:         "Pick the release year.",
			DeclaredType: domain.MultipleChoiceSingle,
			Options:      []string{"2000", "2001", "2002"},
		},
	})
	require.NoError(t, err)

	user := messages[1].Content
	assert.Contains(t, user, "A. 2000")
	assert.Contains(t, user, "B. 2001")
	assert.Contains(t, user, "C. 2002")
	assert.Contains(t, user, "✓")
}

func TestPromptBuilder_EmptyContextFallsBack(t *testing.T) {
	b := usecase.NewPromptBuilder()

	messages, err := b.Build(usecase.PromptInput{
		Question: domain.Question{ID: "q3", Text: "Anything?", DeclaredType: domain.FreeText},
	})
	require.NoError(t, err)
	assert.Contains(t, messages[1].Content, "No relevant context found.")
}

func TestPromptBuilder_TypeSpecificInstructions(t *testing.T) {
	b := usecase.NewPromptBuilder()

	tests := []struct {
		qtype    domain.QuestionType
		fragment string
	}{
		{domain.TrueFalse, "True ✓  False"},
		{domain.FillInBlank, "blanks filled in"},
		{domain.Matching, "→"},
		{domain.Checkbox, "☑"},
		{domain.Numeric, "numerical answer"},
		{domain.DateTime, "date, year, or time period"},
		{domain.Ordering, "chronological or logical order"},
		{domain.Definition, "definition"},
		{domain.Evaluation, "evaluative response"},
	}
	for _, tt := range tests {
		messages, err := b.Build(usecase.PromptInput{
			Question: domain.Question{ID: "q", Text: "?", DeclaredType: tt.qtype},
		})
		require.NoError(t, err, "type %s", tt.qtype)
		assert.Contains(t, messages[1].Content, tt.fragment, "type %s", tt.qtype)
	}
}

func TestPromptBuilder_UnknownTypeRejected(t *testing.T) {
	b := usecase.NewPromptBuilder()

	_, err := b.Build(usecase.PromptInput{
		Question: domain.Question{ID: "q", Text: "?", DeclaredType: domain.QuestionType("riddle")},
	})
	assert.Error(t, err)
}

func TestPromptBuilder_AllTypesCovered(t *testing.T) {
	b := usecase.NewPromptBuilder()

	for _, qt := range domain.AllQuestionTypes {
		messages, err := b.Build(usecase.PromptInput{
			Question: domain.Question{ID: "q", Text: "?", DeclaredType: qt},
		})
		require.NoError(t, err, "type %s", qt)
		// Every type appends an instruction beyond the bare question line.
		after := messages[1].Content[strings.Index(messages[1].Content, "Question: ?"):]
		assert.Greater(t, len(strings.TrimSpace(after)), len("Question: ?"), "type %s has no instruction", qt)
	}
}
