package edit

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Command patterns. Pattern/replacement/text fields may span multiple lines,
// hence (?s). Replace captures the pattern lazily up to the first ⟹.
var (
	replaceRe = regexp.MustCompile(`(?s)^R∆(\d+)∆(.+?)⟹(.+)$`)
	deleteRe  = regexp.MustCompile(`^D∆(\d+)`)
	insertRe  = regexp.MustCompile(`(?s)^I∆(\d+)∆(.+)$`)
	mergeRe   = regexp.MustCompile(`(?s)^M∆(\d+)-(\d+)∆(.+)$`)
)

// Parser extracts edit commands from raw model responses. Model output is
// untrusted free text: a malformed segment is dropped with a warning and
// never fails the rest of the response.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a parser that logs dropped segments to logger.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("component", "edit_parser")}
}

// Parse splits raw on the command separator and parses each segment.
// Commands are returned in order of appearance, not sorted by line number.
func (p *Parser) Parse(raw string) []Command {
	if strings.Contains(strings.TrimSpace(raw), NoEditsSentinel) {
		p.logger.Info("model indicated no edits needed")
		return nil
	}

	var commands []Command
	for _, part := range strings.Split(raw, CommandSep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cmd, ok := p.parseSegment(part)
		if !ok {
			continue
		}
		commands = append(commands, cmd)
	}

	return commands
}

func (p *Parser) parseSegment(part string) (Command, bool) {
	switch {
	case strings.HasPrefix(part, "R"+FieldSep):
		m := replaceRe.FindStringSubmatch(part)
		if m == nil {
			p.logger.Warn("could not parse replace command", "segment", snippet(part))
			return nil, false
		}
		line, err := strconv.Atoi(m[1])
		if err != nil {
			p.logger.Warn("invalid line number in replace command", "segment", snippet(part))
			return nil, false
		}
		return Replace{
			Line:        line,
			Pattern:     strings.TrimSpace(m[2]),
			Replacement: strings.TrimSpace(m[3]),
		}, true

	case strings.HasPrefix(part, "D"+FieldSep):
		m := deleteRe.FindStringSubmatch(part)
		if m == nil {
			p.logger.Warn("could not parse delete command", "segment", snippet(part))
			return nil, false
		}
		line, err := strconv.Atoi(m[1])
		if err != nil {
			p.logger.Warn("invalid line number in delete command", "segment", snippet(part))
			return nil, false
		}
		return Delete{Line: line}, true

	case strings.HasPrefix(part, "I"+FieldSep):
		m := insertRe.FindStringSubmatch(part)
		if m == nil {
			p.logger.Warn("could not parse insert command", "segment", snippet(part))
			return nil, false
		}
		line, err := strconv.Atoi(m[1])
		if err != nil {
			p.logger.Warn("invalid line number in insert command", "segment", snippet(part))
			return nil, false
		}
		return Insert{Line: line, Text: strings.TrimSpace(m[2])}, true

	case strings.HasPrefix(part, "M"+FieldSep):
		m := mergeRe.FindStringSubmatch(part)
		if m == nil {
			p.logger.Warn("could not parse merge command", "segment", snippet(part))
			return nil, false
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			p.logger.Warn("invalid start line in merge command", "segment", snippet(part))
			return nil, false
		}
		end, err := strconv.Atoi(m[2])
		if err != nil {
			p.logger.Warn("invalid end line in merge command", "segment", snippet(part))
			return nil, false
		}
		return Merge{StartLine: start, EndLine: end, Text: strings.TrimSpace(m[3])}, true

	default:
		p.logger.Warn("unknown command format", "segment", snippet(part))
		return nil, false
	}
}
