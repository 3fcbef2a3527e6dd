package edit

import (
	"log/slog"
	"slices"
	"strings"
)

// Stats summarizes one application of a command list. Derived on every
// apply; never authoritative.
type Stats struct {
	TotalEdits    int `json:"total_edits"`
	Replacements  int `json:"replacements"`
	Deletions     int `json:"deletions"`
	Insertions    int `json:"insertions"`
	Merges        int `json:"merges"`
	OriginalLines int `json:"original_line_count"`
	EditedLines   int `json:"edited_line_count"`
}

// Applier applies parsed commands to chapter text.
type Applier struct {
	logger *slog.Logger
}

// NewApplier returns an applier that logs skipped commands to logger.
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger.With("component", "edit_applier")}
}

// Apply runs commands against content in the order given and returns the
// edited text plus stats. Out-of-range commands are skipped with a warning.
// Delete and Merge tombstone lines (set them empty); tombstoned and
// whitespace-only lines are filtered once all commands have run.
//
// Commands are applied directly against the mutating slice while still
// referencing original line numbers, so a batch mixing several structural
// edits (insert/delete/merge) can land later commands on shifted rows. This
// matches the edit protocol's contract with the model (sparse, roughly
// sequential edits) and is deliberately not reordered here.
func (a *Applier) Apply(content string, commands []Command) (string, Stats) {
	lines := strings.Split(content, "\n")

	stats := Stats{
		OriginalLines: len(lines),
	}

	for _, cmd := range commands {
		switch c := cmd.(type) {
		case Replace:
			if !a.inRange(c.Line, len(lines), cmd) {
				continue
			}
			lines[c.Line-1] = strings.ReplaceAll(lines[c.Line-1], c.Pattern, c.Replacement)
			stats.Replacements++

		case Delete:
			if !a.inRange(c.Line, len(lines), cmd) {
				continue
			}
			lines[c.Line-1] = ""
			stats.Deletions++

		case Insert:
			if !a.inRange(c.Line, len(lines), cmd) {
				continue
			}
			lines = slices.Insert(lines, c.Line, c.Text)
			stats.Insertions++

		case Merge:
			if !a.inRange(c.StartLine, len(lines), cmd) || !a.inRange(c.EndLine, len(lines), cmd) {
				continue
			}
			lines[c.StartLine-1] = c.Text
			for i := c.StartLine; i < c.EndLine; i++ {
				lines[i] = ""
			}
			stats.Merges++
		}
	}

	stats.TotalEdits = stats.Replacements + stats.Deletions + stats.Insertions + stats.Merges

	// Drop tombstones and whitespace-only leftovers.
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}

	stats.EditedLines = len(kept)
	return strings.Join(kept, "\n"), stats
}

func (a *Applier) inRange(line, max int, cmd Command) bool {
	if line >= 1 && line <= max {
		return true
	}
	a.logger.Warn("line number out of range, command skipped",
		"line", line, "lines", max, "command", cmd.String())
	return false
}
