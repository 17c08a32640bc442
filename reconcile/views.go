package reconcile

import (
	"slices"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/rowset"
)

// ColumnDiff holds the rows of matched keys whose values of Column differ,
// as (key, left value, right value) with the columns named after the key
// and the two labels.
type ColumnDiff struct {
	Column string
	Rows   *rowset.Table
}

// ColumnDiffs returns a ColumnDiff per compared non-key column, skipping the
// columns which never differ.
func ColumnDiffs(r *RunResult) ([]ColumnDiff, error) {
	labels := r.Labels()
	key := r.KeyColumn()
	var ret []ColumnDiff
	for _, c := range r.Columns {
		if c.Left == key {
			continue
		}
		t, err := rowset.Filter(
			r.Rows,
			rowset.Eq(compose.DiffName(c.Left), tree.DBoolTrue),
			rowset.Eq(compose.KeyDiff, tree.DBoolFalse),
		)
		if err != nil {
			return nil, err
		}
		if t.Len() == 0 {
			continue
		}
		t, err = rowset.Project(
			t,
			[]string{compose.LeftName(key), compose.LeftName(c.Left), compose.RightName(c.Left)},
			columnDiffNames(key, labels),
		)
		if err != nil {
			return nil, err
		}
		ret = append(ret, ColumnDiff{Column: c.Left, Rows: t})
	}
	return ret, nil
}

// columnDiffNames returns the key and the labels, with the side appended
// to a label that would repeat an earlier name.
func columnDiffNames(key string, labels [2]string) []string {
	names := []string{key, labels[0], labels[1]}
	for i := 1; i < len(names); i++ {
		for slices.Contains(names[:i], names[i]) {
			names[i] += "_" + sides[i-1].String()
		}
	}
	return names
}

// LeftOnly returns the rows whose key is only in the left dataset, with the
// left column names.
func LeftOnly(r *RunResult) (*rowset.Table, error) {
	return sideOnly(r, Left)
}

// RightOnly returns the rows whose key is only in the right dataset, with
// the right column names.
func RightOnly(r *RunResult) (*rowset.Table, error) {
	return sideOnly(r, Right)
}

func sideOnly(r *RunResult, side Side) (*rowset.Table, error) {
	name := compose.LeftName
	if side == Right {
		name = compose.RightName
	}
	t, err := rowset.Filter(
		r.Rows,
		rowset.Eq(compose.KeyDiff, tree.DBoolTrue),
		rowset.IsNotNull(name(r.KeyColumn())),
	)
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(r.Columns))
	renames := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		columns[i] = name(c.Left)
		renames[i] = c.Left
		if side == Right {
			renames[i] = c.Right
		}
	}
	return rowset.Project(t, columns, renames)
}

// Views are the tables presented for a run.
type Views struct {
	Divergent   *rowset.Table
	KeySummary  *rowset.Table
	RowSummary  *rowset.Table
	ColumnDiffs []ColumnDiff
	LeftOnly    *rowset.Table
	RightOnly   *rowset.Table
}

// BuildViews slices the result into its views. Summary tables are nil when
// the result was not summarized.
func BuildViews(r *RunResult) (*Views, error) {
	v := &Views{Divergent: r.Rows}
	if r.Summary != nil {
		v.KeySummary = SummaryTable(r.Summary.KeyRows(r.Labels()))
		v.RowSummary = SummaryTable(r.Summary.RowRows(r.Labels()))
	}
	var err error
	if v.ColumnDiffs, err = ColumnDiffs(r); err != nil {
		return nil, err
	}
	if v.LeftOnly, err = LeftOnly(r); err != nil {
		return nil, err
	}
	if v.RightOnly, err = RightOnly(r); err != nil {
		return nil, err
	}
	return v, nil
}
