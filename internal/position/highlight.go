package position

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Highlight returns the source line(s) covered by span followed by a caret
// marker under the highlighted columns.
//
//	   3 | val x: Int = "no"
//	     |              ^^^^
func (sf *SourceFile) Highlight(span Span) string {
	if !span.Start.IsValid() {
		return ""
	}

	endLine := span.End.Line
	if endLine < span.Start.Line {
		endLine = span.Start.Line
	}
	// Multi-line spans only show their first line; the caret runs to its end.
	line := sf.GetLine(span.Start.Line)

	var b strings.Builder
	fmt.Fprintf(&b, "%4d | %s\n", span.Start.Line, line)
	b.WriteString("     | ")

	endCol := span.End.Column
	if endLine != span.Start.Line || endCol <= span.Start.Column {
		endCol = utf8.RuneCountInString(line) + 1
	}
	writeCarets(&b, line, span.Start.Column, endCol)
	b.WriteString("\n")

	return b.String()
}

// writeCarets pads up to startCol (keeping tabs so the marker lines up) and
// writes at least one caret.
func writeCarets(b *strings.Builder, line string, startCol, endCol int) {
	runes := []rune(line)

	for i := 1; i < startCol; i++ {
		if i <= len(runes) && runes[i-1] == '\t' {
			b.WriteString("\t")
		} else {
			b.WriteString(" ")
		}
	}

	n := endCol - startCol
	if rest := len(runes) - startCol + 1; n > rest {
		n = rest
	}
	if n < 1 {
		n = 1
	}
	b.WriteString(strings.Repeat("^", n))
}
