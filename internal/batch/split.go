package batch

import (
	"log/slog"

	"github.com/starmast/epub-edit/internal/edit"
)

// Splitter routes commands parsed from a batch response back to individual
// chapters, rebasing absolute line numbers to chapter-relative ones.
type Splitter struct {
	logger *slog.Logger
}

// NewSplitter returns a splitter that logs unroutable commands to logger.
func NewSplitter(logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{logger: logger.With("component", "batch_splitter")}
}

// Split assigns each command to the chapter whose mapping contains its anchor
// line (Merge routes on its start line) and rewrites the command's line
// numbers relative to that chapter's start. Commands outside every mapping
// should not occur if the model respected the prompt numbering; they are
// dropped with a warning.
func (s *Splitter) Split(commands []edit.Command, mappings map[int]LineMapping) map[int][]edit.Command {
	out := make(map[int][]edit.Command, len(mappings))
	for number := range mappings {
		out[number] = nil
	}

	for _, cmd := range commands {
		number, ok := s.route(cmd.Anchor(), mappings)
		if !ok {
			s.logger.Warn("command outside all chapter ranges, dropped", "command", cmd.String())
			continue
		}
		out[number] = append(out[number], rebase(cmd, mappings[number].StartLine))
	}

	return out
}

func (s *Splitter) route(line int, mappings map[int]LineMapping) (int, bool) {
	for number, m := range mappings {
		if m.Contains(line) {
			return number, true
		}
	}
	return 0, false
}

// rebase translates a command's absolute line numbers to be 1-indexed
// relative to the chapter starting at start. The switch is exhaustive over
// the closed command set.
func rebase(cmd edit.Command, start int) edit.Command {
	offset := start - 1
	switch c := cmd.(type) {
	case edit.Replace:
		c.Line -= offset
		return c
	case edit.Delete:
		c.Line -= offset
		return c
	case edit.Insert:
		c.Line -= offset
		return c
	case edit.Merge:
		c.StartLine -= offset
		c.EndLine -= offset
		return c
	}
	return cmd
}
