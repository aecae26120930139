package tui

import (
	"strings"
	"unicode"
)

// Sanitize strips control characters that could corrupt the terminal,
// such as ANSI escapes, NUL or BEL. Newlines, tabs and carriage returns
// are kept.
func Sanitize(s string) string {
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
