package asmtext

import (
	"bufio"
	"strings"
)

// line is one non-blank, non-comment-only source line split into
// whitespace-delimited fields, mirroring the teacher's asm.next().
type line struct {
	fields []string
	raw    string
}

// cursor walks a pre-scanned list of lines. Recursive entry parsing just
// advances the shared index, so nested "entry:" blocks fall out naturally
// without re-entering a bufio.Scanner.
type cursor struct {
	lines []line
	pos   int
}

func newCursor(src string) *cursor {
	var lines []line
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := splitFields(text)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, line{fields: fields, raw: text})
	}
	return &cursor{lines: lines}
}

// splitFields is strings.Fields with one addition: a double-quoted span
// (str operands carry arbitrary text, including spaces) is kept as one
// field, quotes included, so the instruction parser can strconv.Unquote it.
func splitFields(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}

// peek returns the current line's fields without advancing, or nil at EOF.
func (c *cursor) peek() []string {
	if c.pos >= len(c.lines) {
		return nil
	}
	return c.lines[c.pos].fields
}

// take returns the current line's fields and advances.
func (c *cursor) take() []string {
	f := c.peek()
	c.pos++
	return f
}
