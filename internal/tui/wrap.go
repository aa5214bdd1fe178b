package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

type cell struct {
	r     rune
	width int
	space bool
	wide  bool
}

// wrapText wraps text to width display columns. Lines break at spaces or
// after wide (CJK) runes; words longer than a line are split.
func wrapText(text string, width int) []string {
	paragraphs := strings.Split(text, "\n")
	if width <= 0 {
		return paragraphs
	}
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		lines = append(lines, wrapLine(p, width)...)
	}
	return lines
}

func wrapLine(s string, width int) []string {
	cells := toCells(strings.TrimSpace(s))
	if len(cells) == 0 {
		return []string{""}
	}
	var out []string
	line := make([]cell, 0, len(cells))
	lineWidth := 0
	brk := -1

	for i := 0; i < len(cells); {
		c := cells[i]
		if c.space && len(line) == 0 {
			i++
			continue
		}
		if lineWidth+c.width > width && len(line) > 0 {
			if c.space {
				out = append(out, renderCells(line))
				line = line[:0]
				lineWidth = 0
				brk = -1
				i++
				continue
			}
			cut, rest := len(line), len(line)
			if brk >= 0 {
				cut, rest = brk+1, brk+1
				if line[brk].space {
					cut = brk
				}
			}
			out = append(out, renderCells(line[:cut]))
			line = trimLeadingSpace(append([]cell{}, line[rest:]...))
			lineWidth = widthOf(line)
			brk = lastBreak(line)
			continue
		}
		line = append(line, c)
		lineWidth += c.width
		if c.space || c.wide {
			brk = len(line) - 1
		}
		i++
	}
	if len(line) > 0 {
		out = append(out, renderCells(line))
	}
	return out
}

func toCells(s string) []cell {
	out := make([]cell, 0, len(s))
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		out = append(out, cell{r: r, width: w, space: unicode.IsSpace(r), wide: w > 1})
	}
	return out
}

func renderCells(cells []cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteRune(c.r)
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

func trimLeadingSpace(cells []cell) []cell {
	for len(cells) > 0 && cells[0].space {
		cells = cells[1:]
	}
	return cells
}

func widthOf(cells []cell) int {
	total := 0
	for _, c := range cells {
		total += c.width
	}
	return total
}

func lastBreak(cells []cell) int {
	for i := len(cells) - 1; i >= 0; i-- {
		if cells[i].space || cells[i].wide {
			return i
		}
	}
	return -1
}
