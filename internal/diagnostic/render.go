package diagnostic

import (
	"fmt"
	"io"
	"strings"

	"github.com/gaultier/microkt/internal/position"
)

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Render writes err followed by a caret snippet of the offending source line.
// Errors that are not *Error are written verbatim.
func Render(w io.Writer, err error, src *position.SourceFile, color bool) {
	de, ok := As(err)
	if !ok {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	var b strings.Builder
	if de.Span.Start.IsValid() {
		pos := de.Span.Start
		if src != nil && src.Filename != "" {
			pos.Filename = src.Filename
		}
		b.WriteString(pos.String())
		b.WriteString(": ")
	}

	label := fmt.Sprintf("%s error", de.Phase())
	if color {
		label = ansiBold + ansiRed + label + ansiReset
	}
	fmt.Fprintf(&b, "%s: [%s] %s\n", label, de.Kind, de.Message)

	if src != nil && de.Span.Start.IsValid() {
		snippet := src.Highlight(de.Span)
		if color {
			snippet = colorCarets(snippet)
		}
		b.WriteString(snippet)
	}

	io.WriteString(w, b.String())
}

// colorCarets paints the caret run of a highlight snippet.
func colorCarets(snippet string) string {
	i := strings.IndexByte(snippet, '^')
	if i < 0 {
		return snippet
	}
	j := i
	for j < len(snippet) && snippet[j] == '^' {
		j++
	}
	return snippet[:i] + ansiRed + snippet[i:j] + ansiReset + snippet[j:]
}
