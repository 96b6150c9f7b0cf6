package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table renders rows as left-aligned, space-padded columns.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{w: w, headers: headers}
}

// AddRow appends a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	for i, h := range t.headers {
		fmt.Fprint(t.w, RenderHeader(padRight(h, widths[i])))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.w, "  ")
		}
	}
	fmt.Fprintln(t.w)

	for i, width := range widths {
		fmt.Fprint(t.w, RenderMuted(strings.Repeat("─", width)))
		if i < len(widths)-1 {
			fmt.Fprint(t.w, "  ")
		}
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		n := min(len(row), len(widths))
		for i := 0; i < n; i++ {
			cell := row[i]
			if i < n-1 {
				cell = padRight(cell, widths[i]) + "  "
			}
			fmt.Fprint(t.w, cell)
		}
		fmt.Fprintln(t.w)
	}
}

// KeyValues renders aligned "key: value" lines.
func KeyValues(w io.Writer, pairs [][2]string) {
	width := 0
	for _, p := range pairs {
		width = max(width, utf8.RuneCountInString(p[0])+1)
	}
	for _, p := range pairs {
		fmt.Fprintf(w, "%s %s\n", RenderAccent(padRight(p[0]+":", width)), p[1])
	}
}

func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
