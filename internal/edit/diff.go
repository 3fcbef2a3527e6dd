package edit

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// diffContextLines is the fixed context window around each change region.
const diffContextLines = 3

// ChangeKind classifies one line within a diff chunk.
type ChangeKind string

const (
	ChangeContext  ChangeKind = "context"
	ChangeAddition ChangeKind = "addition"
	ChangeDeletion ChangeKind = "deletion"
)

// Change is a single line of a diff chunk. Content keeps the unified-diff
// prefix character so clients can render it verbatim.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Content string     `json:"content"`
}

// Chunk is one @@-delimited hunk of a unified diff.
type Chunk struct {
	Header  string   `json:"header"`
	Changes []Change `json:"changes"`
}

// Diff produces a structured line diff between original and edited text for
// display. Read-only; it never mutates content.
func Diff(original, edited string) ([]Chunk, error) {
	ud := difflib.UnifiedDiff{
		A:       difflib.SplitLines(original),
		B:       difflib.SplitLines(edited),
		Context: diffContextLines,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("failed to generate diff: %w", err)
	}
	if text == "" {
		return nil, nil
	}

	var chunks []Chunk
	var current *Chunk

	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++"):
			// File headers carry no content.
		case strings.HasPrefix(line, "@@"):
			if current != nil {
				chunks = append(chunks, *current)
			}
			current = &Chunk{Header: line}
		case current != nil:
			kind := ChangeContext
			if strings.HasPrefix(line, "-") {
				kind = ChangeDeletion
			} else if strings.HasPrefix(line, "+") {
				kind = ChangeAddition
			}
			current.Changes = append(current.Changes, Change{Kind: kind, Content: line})
		}
	}

	if current != nil {
		chunks = append(chunks, *current)
	}

	return chunks, nil
}
