package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns with a bold header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow appends a row; cells past the header count are dropped
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	bold := paint(color.New(color.Bold, color.FgCyan), t.noColor)
	gray := paint(color.New(color.FgHiBlack), t.noColor)

	t.line(t.headers, widths, bold)
	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("─", w)
	}
	t.line(separators, widths, gray)
	for _, row := range t.rows {
		t.line(row, widths, nil)
	}
}

func (t *Table) line(cells []string, widths []int, c *color.Color) {
	for i, cell := range cells {
		if i < len(cells)-1 {
			cell = padRight(cell, widths[i]) + "  "
		}
		if c != nil {
			c.Fprint(t.writer, cell)
		} else {
			fmt.Fprint(t.writer, cell)
		}
	}
	fmt.Fprintln(t.writer)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Header renders a title underlined to its width
func Header(w io.Writer, title string, noColor bool) {
	paint(color.New(color.Bold, color.FgCyan), noColor).Fprintln(w, title)
	paint(color.New(color.FgHiBlack), noColor).Fprintln(w, strings.Repeat("─", len(title)))
}
