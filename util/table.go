package util

import (
	"fmt"
	"io"
	"strings"
)

// Table is a simple column-aligned text table, used to render profiling
// traces (spec §7) the way the original runtime's Table utility rendered
// counter dumps to stdout. It is intentionally dumb: no wrapping,
// no truncation, column width is the widest cell seen so far.
type Table struct {
	header []string
	rows   [][]string
}

// NewTable returns an empty table with the given column headers.
func NewTable(header ...string) *Table {
	return &Table{header: header}
}

// AddRow appends one row. The number of cells must match the header count;
// mismatches are silently padded or truncated rather than erroring, since
// this is a diagnostics aid, not a validated data structure.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.header))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// AddRowf is AddRow with each cell built via fmt.Sprintf("%v", arg).
func (t *Table) AddRowf(args ...interface{}) {
	cells := make([]string, len(args))
	for i, a := range args {
		cells[i] = fmt.Sprintf("%v", a)
	}
	t.AddRow(cells...)
}

func (t *Table) widths() []int {
	w := make([]int, len(t.header))
	for i, h := range t.header {
		w[i] = len(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(w) && len(c) > w[i] {
				w[i] = len(c)
			}
		}
	}
	return w
}

// WriteTo renders the table as a plain-text, space-padded grid.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	widths := t.widths()
	var b strings.Builder

	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(c)
			if pad := widths[i] - len(c); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteByte('\n')
	}

	writeRow(t.header)
	for _, row := range t.rows {
		writeRow(row)
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// String renders the table, for log lines and test assertions.
func (t *Table) String() string {
	var b strings.Builder
	_, _ = t.WriteTo(&b)
	return b.String()
}
