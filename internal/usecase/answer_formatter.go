package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"answer-orchestrator/internal/domain"
)

const (
	checkMark    = "✓"
	checkedBox   = "☑"
	uncheckedBox = "☐"
	matchArrow   = "→"
)

// optionLabelPattern locates "A. ", "B. " style labels so the answer can be
// split into per-option segments.
var optionLabelPattern = regexp.MustCompile(`\b([A-Z])\.\s`)

var digitPattern = regexp.MustCompile(`\d`)

// AnswerFormatter checks that a raw LLM answer honors the output conventions
// of the question's declared type and returns the cleaned text. A
// domain.ErrAnswerFormatMismatch result means the caller should fall back to
// the raw text and flag the answer as degraded.
type AnswerFormatter struct{}

// NewAnswerFormatter creates a formatter instance (currently stateless).
func NewAnswerFormatter() AnswerFormatter {
	return AnswerFormatter{}
}

// Format validates raw against the question's declared type.
func (f AnswerFormatter) Format(q domain.Question, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer for question %s", domain.ErrAnswerFormatMismatch, q.ID)
	}

	switch q.DeclaredType {
	case domain.MultipleChoiceSingle:
		return f.formatChoice(q, text, true)
	case domain.MultipleChoiceMulti:
		return f.formatChoice(q, text, false)
	case domain.TrueFalse:
		return f.formatTrueFalse(q, text)
	case domain.Checkbox:
		if !strings.Contains(text, checkedBox) && !strings.Contains(text, uncheckedBox) {
			return "", fmt.Errorf("%w: checkbox answer for %s carries no box marks", domain.ErrAnswerFormatMismatch, q.ID)
		}
		return text, nil
	case domain.Matching:
		if !strings.Contains(text, matchArrow) && !strings.Contains(text, "->") {
			return "", fmt.Errorf("%w: matching answer for %s carries no pair arrows", domain.ErrAnswerFormatMismatch, q.ID)
		}
		return text, nil
	case domain.FillInBlank:
		if strings.Contains(text, "____") {
			return "", fmt.Errorf("%w: fill-in answer for %s still contains blanks", domain.ErrAnswerFormatMismatch, q.ID)
		}
		return text, nil
	case domain.Numeric, domain.DateTime:
		if !digitPattern.MatchString(text) {
			return "", fmt.Errorf("%w: answer for %s contains no digits", domain.ErrAnswerFormatMismatch, q.ID)
		}
		return text, nil
	default:
		// Prose types pass through as-is.
		return text, nil
	}
}

// formatChoice requires at least one check mark and rejects marks that point
// at options the question never declared. single additionally caps the marks
// at one.
func (f AnswerFormatter) formatChoice(q domain.Question, text string, single bool) (string, error) {
	marks := strings.Count(text, checkMark)
	if marks == 0 {
		return "", fmt.Errorf("%w: choice answer for %s has no marked option", domain.ErrAnswerFormatMismatch, q.ID)
	}
	if single && marks > 1 {
		return "", fmt.Errorf("%w: single-choice answer for %s marks %d options", domain.ErrAnswerFormatMismatch, q.ID, marks)
	}
	if len(q.Options) == 0 {
		return text, nil
	}

	// Split the answer into labeled segments and check each marked one
	// against the declared options.
	labels := optionLabelPattern.FindAllStringSubmatchIndex(text, -1)
	for i, label := range labels {
		segEnd := len(text)
		if i+1 < len(labels) {
			segEnd = labels[i+1][0]
		}
		segment := text[label[0]:segEnd]
		if !strings.Contains(segment, checkMark) {
			continue
		}
		letter := text[label[2]:label[3]]
		if idx := int(letter[0] - 'A'); idx >= len(q.Options) {
			return "", fmt.Errorf("%w: answer for %s marks option %s outside the declared list", domain.ErrAnswerFormatMismatch, q.ID, letter)
		}
	}
	return text, nil
}

func (f AnswerFormatter) formatTrueFalse(q domain.Question, text string) (string, error) {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "true") || !strings.Contains(lower, "false") {
		return "", fmt.Errorf("%w: true/false answer for %s must show both choices", domain.ErrAnswerFormatMismatch, q.ID)
	}
	if strings.Count(text, checkMark) != 1 {
		return "", fmt.Errorf("%w: true/false answer for %s must mark exactly one choice", domain.ErrAnswerFormatMismatch, q.ID)
	}
	return text, nil
}
