package display

import (
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTerminalWidth = 120
	minCellWidth         = 8
)

// Table renders rows as aligned, space separated columns
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth int
	colors   *ColorSystem
}

// NewTable creates a table that fits the terminal width
func NewTable(colors *ColorSystem, headers ...string) *Table {
	return &Table{
		headers:  headers,
		maxWidth: getTerminalWidth(),
		colors:   colors,
	}
}

// AddRow appends a row; missing cells are rendered empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the table as text, one line per row
func (t *Table) Render() string {
	widths := t.columnWidths()

	var b strings.Builder
	if len(t.headers) > 0 {
		line := t.renderRow(t.headers, widths)
		if t.colors != nil {
			line = t.colors.Colorize(line, t.colors.Theme().Primary)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	for _, row := range t.rows {
		b.WriteString(t.renderRow(row, widths))
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Table) columnWidths() []int {
	n := len(t.headers)
	for _, row := range t.rows {
		if len(row) > n {
			n = len(row)
		}
	}

	widths := make([]int, n)
	measure := func(row []string) {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	// shrink the widest column until the table fits
	for total(widths) > t.maxWidth {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minCellWidth {
			break
		}
		widths[widest]--
	}
	return widths
}

func total(widths []int) int {
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if len(widths) > 1 {
		sum += 2 * (len(widths) - 1)
	}
	return sum
}

func (t *Table) renderRow(row []string, widths []int) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		cells[i] = pad(truncate(cell, width), width)
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ")
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-3]) + "..."
}

func pad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// getTerminalWidth returns the current terminal width
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}
