package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	yearPattern  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	namePattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`)
	labelPattern = regexp.MustCompile(`(?m)^\s*\**\s*[A-Z][A-Za-z ]{1,30}:\s`)
)

const maxNameEntities = 10

// extractEntities pulls year tokens and capitalized multi-word spans out of
// the text. The result is informational metadata, deduplicated and capped to
// keep noise down.
func extractEntities(text string) []string {
	seen := make(map[string]struct{})
	var entities []string

	for _, year := range yearPattern.FindAllString(text, -1) {
		key := "YEAR:" + year
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			entities = append(entities, key)
		}
	}

	names := namePattern.FindAllString(text, -1)
	if len(names) > maxNameEntities {
		names = names[:maxNameEntities]
	}
	for _, name := range names {
		key := "NAME:" + name
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			entities = append(entities, key)
		}
	}

	return entities
}

// classifyContent assigns a ContentType from structural and lexical cues.
// Heuristic precedence: labeled key-value facts, then list markers, then
// entity density, then length.
func classifyContent(text string) ContentType {
	if len(labelPattern.FindAllString(text, 3)) >= 2 {
		return ContentRelational
	}

	lines := strings.Split(text, "\n")
	markers := 0
	nonEmpty := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if isListLine(trimmed) {
			markers++
		}
	}
	if markers >= 3 || (nonEmpty > 0 && markers*2 >= nonEmpty && markers >= 2) {
		return ContentList
	}

	runeLen := utf8.RuneCountInString(text)
	entityCount := len(yearPattern.FindAllString(text, -1)) + len(namePattern.FindAllString(text, -1))
	if entityCount >= 4 || (entityCount >= 2 && runeLen < 300) {
		return ContentFactualEntity
	}

	if runeLen >= 200 {
		return ContentNarrative
	}
	return ContentGeneric
}

func isListLine(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") {
		return true
	}
	// Numbered items: "1. ", "12) "
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') && i+1 < len(line) && line[i+1] == ' '
}

// Content-type weights for the importance score. Tunable, not derived.
var contentTypeWeight = map[ContentType]float64{
	ContentFactualEntity: 0.15,
	ContentRelational:    0.15,
	ContentList:          0.10,
	ContentNarrative:     0.05,
	ContentGeneric:       0.0,
}

// importanceScore combines entity count, content-type weight, and normalized
// length into a [0,1] score. Used only for ranking tie-breaks, never as a
// hard filter.
func importanceScore(text string, ctype ContentType, entityCount int) float64 {
	score := 0.5
	score += float64(entityCount) * 0.05
	score += contentTypeWeight[ctype]

	lengthNorm := float64(utf8.RuneCountInString(text)) / float64(MaxChunkChars)
	if lengthNorm > 1 {
		lengthNorm = 1
	}
	score += 0.1 * lengthNorm

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
