package output

import (
	"io"
	"strings"
	"unicode/utf8"
)

// columnGap separates table columns.
const columnGap = "  "

// Table lays out rows in aligned columns under a dashed header. The last
// column is not padded, so lines carry no trailing spaces.
type Table struct {
	headers []string
	rows    [][]string
	right   map[int]bool
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, right: map[int]bool{}}
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// AlignRight right-aligns column col, for amounts.
func (t *Table) AlignRight(col int) *Table {
	t.right[col] = true
	return t
}

// Render writes the table. A table without headers writes nothing.
func (t *Table) Render(w io.Writer) error {
	if len(t.headers) == 0 {
		return nil
	}
	widths := t.widths()

	var sb strings.Builder
	t.line(&sb, t.headers, widths)
	dashes := make([]string, len(widths))
	for i, n := range widths {
		dashes[i] = strings.Repeat("-", n)
	}
	t.line(&sb, dashes, widths)
	for _, row := range t.rows {
		t.line(&sb, row, widths)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// String returns the rendered table.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Render(&sb)
	return sb.String()
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}
	return widths
}

func (t *Table) line(sb *strings.Builder, cells []string, widths []int) {
	last := len(widths) - 1
	for i, width := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(cell))

		switch {
		case t.right[i]:
			sb.WriteString(pad + cell)
		case i == last:
			sb.WriteString(cell)
		default:
			sb.WriteString(cell + pad)
		}
		if i != last {
			sb.WriteString(columnGap)
		}
	}
	sb.WriteByte('\n')
}
