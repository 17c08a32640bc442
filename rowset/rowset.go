// Package rowset holds materialized query results and the local utilities
// used to slice them without going back to the database.
package rowset

import (
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
)

// Table is a materialized result set. Every row has exactly one datum per
// column; SQL NULL is tree.DNull.
type Table struct {
	Columns []string
	Rows    []tree.Datums
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (t *Table) mustColumn(name string) (int, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return -1, errors.Newf("column %q not found in [%s]", name, strings.Join(t.Columns, ", "))
	}
	return idx, nil
}

// Append adds a row, checking its width.
func (t *Table) Append(row tree.Datums) error {
	if len(row) != len(t.Columns) {
		return errors.AssertionFailedf("row has %d values, table has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Value returns the datum at the given row for the named column.
func (t *Table) Value(row int, column string) (tree.Datum, error) {
	idx, err := t.mustColumn(column)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= len(t.Rows) {
		return nil, errors.Newf("row %d out of range [0, %d)", row, len(t.Rows))
	}
	return t.Rows[row][idx], nil
}

// Strings returns each row formatted with FormatDatum.
func (t *Table) Strings() [][]string {
	ret := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		ret[i] = make([]string, len(row))
		for j, d := range row {
			ret[i][j] = FormatDatum(d)
		}
	}
	return ret
}

// String renders the table as tab separated lines, header first.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(t.Columns, "\t"))
	sb.WriteString("\n")
	for _, row := range t.Strings() {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatDatum formats a datum for display, without quoting strings.
func FormatDatum(d tree.Datum) string {
	if d == nil || d == tree.DNull {
		return "NULL"
	}
	if s, ok := d.(*tree.DString); ok {
		return string(*s)
	}
	f := tree.NewFmtCtx(tree.FmtBareStrings)
	f.FormatNode(d)
	return f.CloseAndGetString()
}
