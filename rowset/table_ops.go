package rowset

import (
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
)

// Project returns a new table with the given columns, in the given order,
// renamed to renameTo. A nil columns list selects every column; a nil
// renameTo keeps the names.
func Project(t *Table, columns []string, renameTo []string) (*Table, error) {
	if columns == nil {
		columns = t.Columns
	}
	if renameTo == nil {
		renameTo = columns
	}
	if len(renameTo) != len(columns) {
		return nil, errors.Newf("cannot rename %d columns to %d names", len(columns), len(renameTo))
	}
	idxs := make([]int, len(columns))
	for i, c := range columns {
		idx, err := t.mustColumn(c)
		if err != nil {
			return nil, errors.Wrap(err, "error projecting table")
		}
		idxs[i] = idx
	}
	ret := NewTable(renameTo...)
	ret.Rows = make([]tree.Datums, 0, len(t.Rows))
	for _, row := range t.Rows {
		projected := make(tree.Datums, len(idxs))
		for i, idx := range idxs {
			projected[i] = row[idx]
		}
		ret.Rows = append(ret.Rows, projected)
	}
	return ret, nil
}

// Filter returns the rows matching all predicates. With no predicates,
// every row is kept.
func Filter(t *Table, preds ...Predicate) (*Table, error) {
	bound := make([]int, len(preds))
	for i, p := range preds {
		idx, err := t.mustColumn(p.Column)
		if err != nil {
			return nil, errors.Wrap(err, "error filtering table")
		}
		bound[i] = idx
	}
	ret := NewTable(t.Columns...)
	for _, row := range t.Rows {
		keep := true
		for i, p := range preds {
			if !p.matches(row[bound[i]]) {
				keep = false
				break
			}
		}
		if keep {
			ret.Rows = append(ret.Rows, row)
		}
	}
	return ret, nil
}
