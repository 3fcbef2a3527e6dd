// Package batch groups consecutive chapters into single model requests and
// maps between the request's continuous line numbering and each chapter's own
// 1-based numbering.
package batch

import (
	"fmt"
	"strings"
)

// Chapter is one chapter's contribution to a batch: body text already
// extracted and blank-line filtered, split into lines.
type Chapter struct {
	Number int
	Title  string
	Lines  []string
}

// LineMapping records where a chapter landed in a batch's continuous
// numbering. EndLine = StartLine + LineCount - 1; the next chapter starts at
// EndLine + 1.
type LineMapping struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
	LineCount int `json:"line_count"`
}

// Contains reports whether the absolute line falls inside this chapter.
func (m LineMapping) Contains(line int) bool {
	return line >= m.StartLine && line <= m.EndLine
}

// Prompt is the combined request body for one batch plus the per-chapter
// line mappings needed to route the response back.
type Prompt struct {
	Body     string
	Mappings map[int]LineMapping // keyed by chapter number
}

// Group splits chapters into batches of perBatch consecutive chapters,
// preserving order. Chapters edited together share one model response, which
// keeps names and terminology consistent across them.
func Group(chapters []Chapter, perBatch int) [][]Chapter {
	if perBatch < 1 {
		perBatch = 1
	}
	var groups [][]Chapter
	for i := 0; i < len(chapters); i += perBatch {
		end := min(i+perBatch, len(chapters))
		groups = append(groups, chapters[i:end])
	}
	return groups
}

// Build concatenates chapters in input order with continuous 1-based line
// numbering. Each chapter gets a header block naming its number, title and
// absolute line range, followed by its lines prefixed "<n>: ".
func Build(chapters []Chapter) Prompt {
	var b strings.Builder
	mappings := make(map[int]LineMapping, len(chapters))

	next := 1
	for i, ch := range chapters {
		m := LineMapping{
			StartLine: next,
			EndLine:   next + len(ch.Lines) - 1,
			LineCount: len(ch.Lines),
		}
		mappings[ch.Number] = m

		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== CHAPTER %d: %s (lines %d-%d) ===\n", ch.Number, ch.Title, m.StartLine, m.EndLine)
		for j, line := range ch.Lines {
			fmt.Fprintf(&b, "%d: %s\n", m.StartLine+j, line)
		}

		next = m.EndLine + 1
	}

	return Prompt{Body: b.String(), Mappings: mappings}
}

// SplitText prepares chapter body text for batching: split on newlines with
// blank lines dropped, so prompt numbering has no empty rows.
func SplitText(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
