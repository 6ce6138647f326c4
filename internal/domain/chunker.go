package domain

import (
	"strings"
	"unicode"
)

// ChunkerConfig carries the size bounds for the semantic chunker. The zero
// value is not usable; call DefaultChunkerConfig.
type ChunkerConfig struct {
	MinChars int
	MaxChars int
	Overlap  int
}

// DefaultChunkerConfig returns the tuned production bounds.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MinChars: MinChunkChars,
		MaxChars: MaxChunkChars,
		Overlap:  OverlapChars,
	}
}

type semanticChunker struct {
	cfg ChunkerConfig
}

// NewChunker creates the default structure-aware chunker.
func NewChunker(cfg ChunkerConfig) Chunker {
	return &semanticChunker{cfg: cfg}
}

type heading struct {
	pos   int // rune offset of the line start
	level int
	title string
}

// Chunk splits the document at structural boundaries (headings, paragraph
// breaks), falling back to sentence boundaries inside oversized segments.
// Chunk spans partition the normalized text; each chunk after the first
// additionally carries a bounded overlap prefix from its predecessor.
func (c *semanticChunker) Chunk(source, text string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	if strings.TrimSpace(normalized) == "" {
		return nil, nil
	}

	doc := []rune(normalized)
	n := len(doc)
	headings := scanHeadings(doc)

	spans := c.cutSpans(doc, headings)

	// A trailing remainder below the minimum folds into its predecessor.
	if len(spans) > 1 {
		last := spans[len(spans)-1]
		if last[1]-last[0] < c.cfg.MinChars {
			spans[len(spans)-2][1] = last[1]
			spans = spans[:len(spans)-1]
		}
	}

	tooShort := n < c.cfg.MinChars

	chunks := make([]Chunk, 0, len(spans))
	hi := 0 // heading cursor
	section, subsection := "", ""
	for ord, span := range spans {
		start, end := span[0], span[1]

		for hi < len(headings) && headings[hi].pos <= start {
			if headings[hi].level <= 2 {
				section = headings[hi].title
				subsection = ""
			} else {
				subsection = headings[hi].title
			}
			hi++
		}

		overlap := 0
		if ord > 0 {
			overlap = c.overlapLen(doc, spans[ord-1][0], start)
		}
		body := string(doc[start-overlap : end])
		core := string(doc[start:end])

		entities := extractEntities(core)
		ctype := classifyContent(core)
		importance := importanceScore(core, ctype, len(entities))
		if tooShort {
			importance /= 2
		}

		chunks = append(chunks, Chunk{
			ID:         ChunkID(source, start, core),
			Ordinal:    ord,
			Text:       body,
			Overlap:    overlap,
			Section:    section,
			Subsection: subsection,
			Type:       ctype,
			Entities:   entities,
			Importance: importance,
		})
	}

	return chunks, nil
}

// cutSpans partitions doc into [start,end) rune spans no longer than
// MaxChars, cutting greedily at the farthest heading or paragraph boundary,
// then at the farthest sentence boundary, then hard.
func (c *semanticChunker) cutSpans(doc []rune, headings []heading) [][2]int {
	n := len(doc)
	var spans [][2]int
	start := 0
	for start < n {
		if n-start <= c.cfg.MaxChars {
			spans = append(spans, [2]int{start, n})
			break
		}
		lo, hi := start+c.cfg.MinChars, start+c.cfg.MaxChars
		cut := lastStructuralBoundary(doc, headings, lo, hi)
		if cut < 0 {
			cut = lastSentenceBoundary(doc, lo, hi)
		}
		if cut < 0 {
			cut = hi
		}
		spans = append(spans, [2]int{start, cut})
		start = cut
	}
	return spans
}

// overlapLen computes how many trailing runes of the previous chunk to carry
// forward. The window is clipped to the previous span, shrunk to begin after
// the last sentence end inside it, and stripped of leading whitespace.
func (c *semanticChunker) overlapLen(doc []rune, prevStart, start int) int {
	o := c.cfg.Overlap
	if start-prevStart < o {
		o = start - prevStart
	}
	from := start - o
	if idx := lastSentenceEnd(doc, from, start); idx >= 0 && idx-from > o/2 {
		from = idx + 1
	}
	for from < start && unicode.IsSpace(doc[from]) {
		from++
	}
	return start - from
}

func scanHeadings(doc []rune) []heading {
	var hs []heading
	for i := 0; i < len(doc); {
		if i == 0 || doc[i-1] == '\n' {
			if level, title, ok := parseHeadingLine(doc, i); ok {
				hs = append(hs, heading{pos: i, level: level, title: title})
			}
		}
		for i < len(doc) && doc[i] != '\n' {
			i++
		}
		i++
	}
	return hs
}

func parseHeadingLine(doc []rune, pos int) (int, string, bool) {
	level := 0
	i := pos
	for i < len(doc) && doc[i] == '#' {
		level++
		i++
	}
	if level == 0 || level > 6 || i >= len(doc) || doc[i] != ' ' {
		return 0, "", false
	}
	j := i
	for j < len(doc) && doc[j] != '\n' {
		j++
	}
	title := strings.TrimSpace(string(doc[i:j]))
	if title == "" {
		return 0, "", false
	}
	return level, title, true
}

// lastStructuralBoundary returns the largest position in (lo, hi] that starts
// a heading line or follows a blank line, or -1.
func lastStructuralBoundary(doc []rune, headings []heading, lo, hi int) int {
	best := -1
	for _, h := range headings {
		if h.pos > hi {
			break
		}
		if h.pos > lo {
			best = h.pos
		}
	}
	for p := hi; p > lo; p-- {
		if p >= 2 && doc[p-1] == '\n' && doc[p-2] == '\n' {
			if p > best {
				best = p
			}
			break
		}
	}
	return best
}

// lastSentenceBoundary returns the largest cut position in (lo, hi] that
// immediately follows a sentence-ending punctuation mark, or -1.
func lastSentenceBoundary(doc []rune, lo, hi int) int {
	if idx := lastSentenceEnd(doc, lo, hi); idx >= 0 {
		return idx + 1
	}
	return -1
}

// lastSentenceEnd returns the index of the last sentence-terminating rune in
// [from, to) whose successor is whitespace or end of text, or -1.
func lastSentenceEnd(doc []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		switch doc[i] {
		case '.', '!', '?', '。':
			if i+1 >= len(doc) || doc[i+1] == ' ' || doc[i+1] == '\n' {
				return i
			}
		}
	}
	return -1
}
