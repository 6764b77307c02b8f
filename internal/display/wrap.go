package display

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/muesli/reflow/wordwrap"
)

// DefaultWidth is the column count assumed for clients that never report one.
const DefaultWidth = 80

// Wrap word-wraps text to DefaultWidth, preserving ANSI escape sequences.
func Wrap(text string) string {
	return WrapWidth(text, DefaultWidth)
}

// WrapWidth word-wraps text to width columns. A width below 1 leaves text alone.
func WrapWidth(text string, width int) string {
	if width < 1 {
		return text
	}
	return wordwrap.String(text, width)
}

// Capitalize returns s with its first rune uppercased.
func Capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Columns lays items out left to right, perRow to a line, each padded to width.
func Columns(items []string, perRow, width int) string {
	if perRow < 1 {
		perRow = 1
	}
	var b strings.Builder
	for i, item := range items {
		b.WriteString(item)
		last := i%perRow == perRow-1 || i == len(items)-1
		if last {
			b.WriteString("\n")
			continue
		}
		if pad := width - utf8.RuneCountInString(item); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}
