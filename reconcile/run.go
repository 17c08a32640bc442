package reconcile

import (
	"context"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/report"
	"github.com/cockroachdb/differ/rowset"
	"github.com/rs/zerolog"
)

// Run reconciles the datasets and summarizes the result.
func Run(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, datasets [2]Dataset, opts ...ReconcileOpt,
) (*RunResult, error) {
	result, err := Reconcile(ctx, conn, logger, datasets, opts...)
	if err != nil {
		return nil, err
	}
	return Summarize(ctx, conn, result, opts...)
}

// ReportResult reports the outcome of a run followed by each divergent row
// and the summaries.
func ReportResult(reporter report.Reporter, r *RunResult) error {
	labels := r.Labels()
	if r.Match() {
		reporter.Report(report.DatasetsMatch{Labels: labels})
	} else {
		reporter.Report(report.DifferencesFound{Labels: labels, DivergentRows: r.Rows.Len()})
	}
	key := r.KeyColumn()
	for i := range r.Rows.Rows {
		keyDiff, err := r.Rows.Value(i, compose.KeyDiff)
		if err != nil {
			return err
		}
		if keyDiff == tree.DBoolTrue {
			missing, err := missingRow(r, i)
			if err != nil {
				return err
			}
			reporter.Report(missing)
			continue
		}
		row := report.MismatchingRow{}
		for _, c := range r.Columns {
			vals, err := rowValues(r.Rows, i, c.Left)
			if err != nil {
				return err
			}
			if c.Left == key {
				row.Key = vals[0]
			}
			if vals[2] == "true" {
				row.MismatchingColumns = append(row.MismatchingColumns, c.Left)
				row.LeftVals = append(row.LeftVals, vals[0])
				row.RightVals = append(row.RightVals, vals[1])
			}
		}
		reporter.Report(row)
	}
	if r.Summary != nil {
		reporter.Report(summaryReport("key summary", r.Summary.KeyRows(labels)))
		reporter.Report(summaryReport("row summary", r.Summary.RowRows(labels)))
		if !r.Match() && r.Summary.DifferentRows == 0 {
			reporter.Report(report.StatusReport{Info: "All rows with matching keys are identical."})
		}
	}
	return nil
}

// missingRow attributes a row whose key did not match to the side it came
// from. Rows with a NULL key on both sides belong to the side with a value.
func missingRow(r *RunResult, row int) (report.MissingRow, error) {
	labels := r.Labels()
	key := r.KeyColumn()
	var present [2]bool
	var keyVals [2]string
	for _, c := range r.Columns {
		for side, name := range []string{compose.LeftName(c.Left), compose.RightName(c.Left)} {
			d, err := r.Rows.Value(row, name)
			if err != nil {
				return report.MissingRow{}, err
			}
			if d != tree.DNull {
				present[side] = true
			}
			if c.Left == key {
				keyVals[side] = rowset.FormatDatum(d)
			}
		}
	}
	if present[Left] {
		return report.MissingRow{Label: labels[0], Key: keyVals[0]}, nil
	}
	return report.MissingRow{Label: labels[1], Key: keyVals[1]}, nil
}

// rowValues formats the left value, right value and diff flag of column.
func rowValues(t *rowset.Table, row int, column string) ([3]string, error) {
	var ret [3]string
	for i, name := range []string{compose.LeftName(column), compose.RightName(column), compose.DiffName(column)} {
		d, err := t.Value(row, name)
		if err != nil {
			return ret, err
		}
		ret[i] = rowset.FormatDatum(d)
	}
	return ret, nil
}

func summaryReport(title string, rows []SummaryRow) report.Summary {
	s := report.Summary{Title: title}
	for _, r := range rows {
		s.Metrics = append(s.Metrics, report.Metric{Name: r.Metric, Value: r.Number})
	}
	return s
}
