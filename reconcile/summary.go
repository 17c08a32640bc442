package reconcile

import (
	"context"
	"strconv"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
)

// SummaryRow is one line of a summary table.
type SummaryRow struct {
	Metric string
	Number int64
}

// Columns of the summary tables.
const (
	MetricColumn = "metric"
	NumberColumn = "number"
)

// SummaryTable lays rows out as a two column table.
func SummaryTable(rows []SummaryRow) *rowset.Table {
	t := rowset.NewTable(MetricColumn, NumberColumn)
	for _, r := range rows {
		t.Rows = append(t.Rows, tree.Datums{tree.NewDString(r.Metric), tree.NewDInt(tree.DInt(r.Number))})
	}
	return t
}

// KeyCounts classifies the distinct key values of the joined datasets.
type KeyCounts struct {
	Total     int64
	Matching  int64
	LeftOnly  int64
	RightOnly int64
}

func (k KeyCounts) Rows(labels [2]string) []SummaryRow {
	return []SummaryRow{
		{Metric: "Total unique key values", Number: k.Total},
		{Metric: "Matching key values", Number: k.Matching},
		{Metric: "Keys only in " + labels[0], Number: k.LeftOnly},
		{Metric: "Keys only in " + labels[1], Number: k.RightOnly},
	}
}

// RowCounts is the number of rows of each filtered dataset.
type RowCounts [2]int64

func (r RowCounts) Rows(labels [2]string) []SummaryRow {
	return []SummaryRow{
		{Metric: "Total rows in " + labels[0], Number: r[0]},
		{Metric: "Total rows in " + labels[1], Number: r[1]},
	}
}

type Summary struct {
	Keys KeyCounts
	Rows RowCounts
	// DifferentRows is the number of divergent rows whose key is on both
	// sides. IdenticalRows is the rest of the matching keys.
	DifferentRows int64
	IdenticalRows int64
}

func (s *Summary) KeyRows(labels [2]string) []SummaryRow {
	return s.Keys.Rows(labels)
}

// RowRows is the row summary followed by the derived identical and different
// row counts.
func (s *Summary) RowRows(labels [2]string) []SummaryRow {
	return append(
		s.Rows.Rows(labels),
		SummaryRow{Metric: "Identical rows", Number: s.IdenticalRows},
		SummaryRow{Metric: "Different rows", Number: s.DifferentRows},
	)
}

func summaryQuery(ctx context.Context, conn dbconn.Conn, plan compose.Query, what string) (*rowset.Table, error) {
	q, err := compose.DialectFor(conn.Dialect()).Render(plan)
	if err != nil {
		return nil, executionFailed(err, "error composing %s", what)
	}
	tbl, err := conn.Query(ctx, q)
	observeQuery(queryKindSummary, err)
	if err != nil {
		return nil, executionFailed(err, "error running %s", what)
	}
	return tbl, nil
}

// KeySummary counts the key values of the datasets of result.
func KeySummary(ctx context.Context, conn dbconn.Conn, result *RunResult) (KeyCounts, error) {
	var ret KeyCounts
	tbl, err := summaryQuery(ctx, conn, compose.KeySummary(result.sources(), result.keys()), "key summary")
	if err != nil {
		return ret, err
	}
	if tbl.Len() != 1 {
		return ret, errors.AssertionFailedf("key summary returned %d rows", tbl.Len())
	}
	for _, f := range []struct {
		column string
		dst    *int64
	}{
		{compose.TotalKeys, &ret.Total},
		{compose.MatchingKeys, &ret.Matching},
		{compose.LeftOnlyKeys, &ret.LeftOnly},
		{compose.RightOnlyKeys, &ret.RightOnly},
	} {
		if *f.dst, err = tableInt(tbl, 0, f.column); err != nil {
			return ret, err
		}
	}
	return ret, nil
}

// RowSummary counts the rows of each filtered dataset of result.
func RowSummary(ctx context.Context, conn dbconn.Conn, result *RunResult) (RowCounts, error) {
	var ret RowCounts
	tbl, err := summaryQuery(ctx, conn, compose.RowSummary(result.sources()), "row summary")
	if err != nil {
		return ret, err
	}
	if tbl.Len() != 2 {
		return ret, errors.AssertionFailedf("row summary returned %d rows", tbl.Len())
	}
	for i := range tbl.Rows {
		side, err := tableInt(tbl, i, compose.SideColumn)
		if err != nil {
			return ret, err
		}
		if side != 0 && side != 1 {
			return ret, errors.AssertionFailedf("unexpected side %d in row summary", side)
		}
		if ret[side], err = tableInt(tbl, i, compose.TotalRows); err != nil {
			return ret, err
		}
	}
	return ret, nil
}

// Summarize returns a copy of result with its summary computed.
func Summarize(ctx context.Context, conn dbconn.Conn, result *RunResult, opts ...ReconcileOpt) (*RunResult, error) {
	o := makeOpts(opts)
	conn = dbconn.RateLimited(conn, o.queriesPerSecond)
	var keys KeyCounts
	var rows RowCounts
	keySummary := func(ctx context.Context, conn dbconn.Conn) (err error) {
		keys, err = KeySummary(ctx, conn, result)
		return err
	}
	rowSummary := func(ctx context.Context, conn dbconn.Conn) (err error) {
		rows, err = RowSummary(ctx, conn, result)
		return err
	}
	if o.concurrent {
		if err := o.parallel(ctx, conn, keySummary, rowSummary); err != nil {
			return nil, err
		}
	} else {
		if err := keySummary(ctx, conn); err != nil {
			return nil, err
		}
		if err := rowSummary(ctx, conn); err != nil {
			return nil, err
		}
	}
	different, err := result.DifferentRows()
	if err != nil {
		return nil, err
	}
	ret := *result
	ret.Summary = &Summary{
		Keys:          keys,
		Rows:          rows,
		DifferentRows: different,
		IdenticalRows: keys.Matching - different,
	}
	return &ret, nil
}

func tableInt(tbl *rowset.Table, row int, column string) (int64, error) {
	d, err := tbl.Value(row, column)
	if err != nil {
		return 0, err
	}
	return datumInt(d)
}

// datumInt reads a count. Sums over no rows are NULL and read as zero.
func datumInt(d tree.Datum) (int64, error) {
	if d == tree.DNull {
		return 0, nil
	}
	switch d := d.(type) {
	case *tree.DInt:
		return int64(*d), nil
	case *tree.DDecimal:
		return d.Int64()
	case *tree.DFloat:
		return int64(*d), nil
	case *tree.DString:
		return strconv.ParseInt(string(*d), 10, 64)
	}
	return 0, errors.AssertionFailedf("expected a count, found %T", d)
}
