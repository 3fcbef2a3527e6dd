// Package edit implements the line-edit mini-language produced by the model:
// parsing raw responses into commands, applying commands to chapter text, and
// generating display diffs.
package edit

import "fmt"

// Wire-format constants. The model is prompted to emit exactly these
// delimiters; they are protocol, not configuration.
const (
	FieldSep   = "∆"
	ReplaceSep = "⟹"
	CommandSep = "◊"

	// NoEditsSentinel anywhere in a trimmed response means the empty edit set.
	NoEditsSentinel = "NO_EDITS_NEEDED"
)

// Command is one atomic edit instruction. The set of implementations is
// closed (Replace, Delete, Insert, Merge) so type switches over Command are
// exhaustive.
//
// Line numbers are 1-indexed into the line sequence the command was issued
// against. They are interpreted against the original numbering: applying a
// structural edit does not renumber the targets of later commands.
type Command interface {
	// Anchor returns the line the command targets; for Merge this is the
	// start of the range. Used to route commands to chapters in a batch.
	Anchor() int

	fmt.Stringer

	isCommand()
}

// Replace substitutes a literal substring on one line.
type Replace struct {
	Line        int
	Pattern     string
	Replacement string
}

// Delete clears one line. The line is tombstoned rather than spliced out so
// that later commands keep their original targets.
type Delete struct {
	Line int
}

// Insert adds a new line immediately after Line.
type Insert struct {
	Line int
	Text string
}

// Merge collapses lines [StartLine..EndLine] into a single line of Text.
type Merge struct {
	StartLine int
	EndLine   int
	Text      string
}

func (c Replace) Anchor() int { return c.Line }
func (c Delete) Anchor() int  { return c.Line }
func (c Insert) Anchor() int  { return c.Line }
func (c Merge) Anchor() int   { return c.StartLine }

func (Replace) isCommand() {}
func (Delete) isCommand()  {}
func (Insert) isCommand()  {}
func (Merge) isCommand()   {}

func (c Replace) String() string {
	return fmt.Sprintf("Replace(line=%d, pattern=%q, replacement=%q)", c.Line, snippet(c.Pattern), snippet(c.Replacement))
}

func (c Delete) String() string {
	return fmt.Sprintf("Delete(line=%d)", c.Line)
}

func (c Insert) String() string {
	return fmt.Sprintf("Insert(line=%d, text=%q)", c.Line, snippet(c.Text))
}

func (c Merge) String() string {
	return fmt.Sprintf("Merge(lines=%d-%d, text=%q)", c.StartLine, c.EndLine, snippet(c.Text))
}

// snippet truncates long field values for logs and stored command summaries.
func snippet(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
