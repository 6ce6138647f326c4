package usecase

import (
	"fmt"
	"strings"

	"answer-orchestrator/internal/domain"
)

// systemPrompt instructs the model to answer inside the question's own
// structure instead of producing a free-form answer section.
const systemPrompt = `You are an expert assistant answering questionnaire items from a provided knowledge base.
Use the provided context to answer questions accurately and concisely.

CRITICAL INSTRUCTION: Output answers in the EXACT SAME FORMAT as the input question. Recreate the original structure with the answers filled in.

ESSENTIAL PRINCIPLES:
1. PRESERVE THE ORIGINAL QUESTION STRUCTURE. Do not invent new formats.
2. FILL IN or MARK the original question elements directly.
3. Make it look like a human completed the original question form.
4. Base answers strictly on the provided context.

FORMAT RULES:
- Multiple choice: reproduce the full option list with labels (A, B, C, ...) and mark the correct option(s) with a trailing check mark.
- True/False: show both choices and mark the correct one, for example "True  False".
- Fill in the blank: return the complete sentence with the blanks replaced by the answers.
- Checkboxes: reproduce every item, correct ones as checked boxes, incorrect ones as empty boxes.
- Match the following: connect each item to its match with an arrow.

REMEMBER: the output must look like the original question completed by hand, never a separate answer section.`

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Question domain.Question
	Context  string
}

// PromptBuilder builds the chat messages sent to the LLM.
type PromptBuilder interface {
	Build(input PromptInput) ([]domain.Message, error)
}

// questionPromptBuilder renders a type-specific user prompt: context first,
// then the question, then the formatting instruction for its declared type.
type questionPromptBuilder struct{}

// NewPromptBuilder creates the default PromptBuilder.
func NewPromptBuilder() PromptBuilder {
	return &questionPromptBuilder{}
}

func (b *questionPromptBuilder) Build(input PromptInput) ([]domain.Message, error) {
	q := input.Question
	if !q.DeclaredType.Valid() {
		return nil, fmt.Errorf("unknown question type %q", q.DeclaredType)
	}

	contextText := strings.TrimSpace(input.Context)
	if contextText == "" {
		contextText = "No relevant context found."
	}

	var sb strings.Builder
	sb.WriteString("Context:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(q.Text)
	sb.WriteString("\n")
	writeTypeInstruction(&sb, q)

	return []domain.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}, nil
}

func writeTypeInstruction(sb *strings.Builder, q domain.Question) {
	switch q.DeclaredType {
	case domain.MultipleChoiceSingle:
		if len(q.Options) > 0 {
			writeLetteredOptions(sb, q.Options)
			sb.WriteString("\nIMPORTANT: Return ALL options with the correct one marked with ✓.\n")
			sb.WriteString("Example format: \"A. Option 1  B. Option 2 ✓  C. Option 3\"\n")
		} else {
			sb.WriteString("\nPlease provide the correct answer in a concise format.\n")
		}
	case domain.MultipleChoiceMulti:
		if len(q.Options) > 0 {
			writeLetteredOptions(sb, q.Options)
			sb.WriteString("\nIMPORTANT: Return ALL options with the correct ones marked with ✓.\n")
			sb.WriteString("Example format: \"A. Option 1 ✓  B. Option 2  C. Option 3 ✓\"\n")
		} else {
			sb.WriteString("\nPlease provide all correct answers with clear marking.\n")
		}
	case domain.TrueFalse:
		sb.WriteString("\nIMPORTANT: Return both True and False with the correct one marked with ✓.\n")
		sb.WriteString("Example format: \"True ✓  False\" or \"True  False ✓\"\n")
	case domain.FillInBlank:
		sb.WriteString("\nIMPORTANT: Return the complete sentence with the blanks filled in.\n")
		sb.WriteString("Do NOT just provide the missing words. Show the full text with answers inserted.\n")
	case domain.Matching:
		sb.WriteString("\nIMPORTANT: Show the matched pairs clearly connected with arrows.\n")
		sb.WriteString("Example format: \"1. Item A → Match X  2. Item B → Match Y\"\n")
	case domain.Checkbox:
		if len(q.Options) > 0 {
			sb.WriteString("\nOptions:\n")
			for _, opt := range q.Options {
				sb.WriteString("☐ ")
				sb.WriteString(opt)
				sb.WriteString("\n")
			}
			sb.WriteString("\nIMPORTANT: Return ALL options, correct ones marked ☑ and incorrect ones ☐.\n")
		} else {
			sb.WriteString("\nIMPORTANT: Use ☑ for correct items and ☐ for incorrect items.\n")
		}
	case domain.Numeric:
		sb.WriteString("\nPlease provide the numerical answer with appropriate units if applicable. Be precise and concise.\n")
	case domain.DateTime:
		sb.WriteString("\nPlease provide the specific date, year, or time period. Format dates clearly (e.g., 'Year: 2001' or 'Period: 2000-2010').\n")
	case domain.Ordering:
		sb.WriteString("\nPlease provide the correct chronological or logical order. Number the items clearly (1, 2, 3, etc.).\n")
	case domain.Categorization:
		sb.WriteString("\nPlease categorize or classify the items mentioned. Provide clear categories and the classification criteria.\n")
	case domain.Comparison:
		sb.WriteString("\nPlease compare the items mentioned. Highlight similarities, differences, and key distinguishing features.\n")
	case domain.CauseEffect:
		sb.WriteString("\nPlease explain the cause and effect relationship. Clearly identify what caused what and the resulting impact.\n")
	case domain.Definition:
		sb.WriteString("\nPlease provide a clear, accurate definition. Include key characteristics and context if relevant.\n")
	case domain.Explanation:
		sb.WriteString("\nPlease provide a detailed explanation. Break down complex concepts and provide context for better understanding.\n")
	case domain.Analysis:
		sb.WriteString("\nPlease provide an analytical response. Examine the topic critically, considering multiple perspectives and implications.\n")
	case domain.Evaluation:
		sb.WriteString("\nPlease provide an evaluative response. Assess the topic's significance, quality, impact, or value based on the available information.\n")
	case domain.FreeText:
		sb.WriteString("\nPlease provide a comprehensive answer based on the context provided.\n")
	}
}

func writeLetteredOptions(sb *strings.Builder, options []string) {
	sb.WriteString("\nOptions:\n")
	for i, opt := range options {
		sb.WriteString(fmt.Sprintf("%c. %s\n", 'A'+i, opt))
	}
}
