package ticket

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultColumns = 42
	DefaultMargin  = 2
)

// Layout is a fixed-width monospaced grid. Columns is the usable width; every
// helper prefixes Margin spaces so text never touches the paper edge.
type Layout struct {
	Columns int
	Margin  int
}

// DefaultLayout is the 80mm paper layout at normal scale.
func DefaultLayout() Layout {
	return Layout{Columns: DefaultColumns, Margin: DefaultMargin}
}

// Wide is the same paper at double-width scale: half the columns and half
// the margin, since each character occupies two cells.
func (l Layout) Wide() Layout {
	return Layout{Columns: l.Columns / 2, Margin: l.Margin / 2}
}

func (l Layout) margin() string {
	return strings.Repeat(" ", l.Margin)
}

// Center pads text so it sits in the middle of the usable width.
func (l Layout) Center(text string) string {
	text = truncate(text, l.Columns)
	pad := (l.Columns - utf8.RuneCountInString(text)) / 2
	return l.margin() + strings.Repeat(" ", pad) + text
}

// RightAlign places right flush against the right edge and left at the start
// of the line, truncating left when the two would collide.
func (l Layout) RightAlign(left, right string) string {
	rw := utf8.RuneCountInString(right)
	if rw >= l.Columns {
		return l.margin() + truncate(right, l.Columns)
	}
	left = truncate(left, l.Columns-rw-1)
	gap := l.Columns - utf8.RuneCountInString(left) - rw
	return l.margin() + left + strings.Repeat(" ", gap) + right
}

// Divider is a full-width rule of ch.
func (l Layout) Divider(ch rune) string {
	return l.margin() + strings.Repeat(string(ch), l.Columns)
}

// Left returns text wrapped to the usable width, one margin-prefixed line each.
func (l Layout) Left(text string) []string {
	return l.Indent(text, "")
}

// Indent wraps text after prefix; continuation lines align under the first
// character following prefix.
func (l Layout) Indent(text, prefix string) []string {
	pw := utf8.RuneCountInString(prefix)
	width := l.Columns - pw
	if width < 1 {
		width = 1
	}
	wrapped := WordWrap(text, width)
	lines := make([]string, 0, len(wrapped))
	hang := strings.Repeat(" ", pw)
	for i, w := range wrapped {
		lead := hang
		if i == 0 {
			lead = prefix
		}
		lines = append(lines, l.margin()+lead+w)
	}
	return lines
}

// WordWrap breaks text into lines no longer than width. Words are packed
// greedily; a single token longer than width is hard-split into width-sized
// chunks. Explicit line breaks are preserved and blank lines dropped.
func WordWrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		line := ""
		lineLen := 0
		for _, word := range strings.Fields(paragraph) {
			token := []rune(word)
			for len(token) > width {
				if lineLen > 0 {
					lines = append(lines, line)
					line, lineLen = "", 0
				}
				lines = append(lines, string(token[:width]))
				token = token[width:]
			}
			switch {
			case len(token) == 0:
			case lineLen == 0:
				line, lineLen = string(token), len(token)
			case lineLen+1+len(token) <= width:
				line += " " + string(token)
				lineLen += 1 + len(token)
			default:
				lines = append(lines, line)
				line, lineLen = string(token), len(token)
			}
		}
		if lineLen > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
