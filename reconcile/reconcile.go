// Package reconcile compares two datasets of the same database by key and
// reports the rows that differ.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/report"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunResult is the outcome of one reconciliation. It is never modified after
// being returned.
type RunResult struct {
	ID uuid.UUID
	// Datasets are the normalized inputs with their keys resolved to the
	// actual column names.
	Datasets [2]Dataset
	// Columns are the compared column pairs, keys first.
	Columns []compose.ColumnPair
	// Rows holds the divergent rows in the layout of compose.Comparison,
	// with every diff flag a boolean.
	Rows *rowset.Table
	// SchemaMismatch is set when the columns differed and the mismatch was
	// allowed.
	SchemaMismatch *SchemaMismatchError
	// Summary is set by Summarize.
	Summary *Summary

	StartedAt time.Time
	Duration  time.Duration
}

func (r *RunResult) Labels() [2]string {
	return labelsOf(r.Datasets)
}

// KeyColumn is the name of the key in the output columns.
func (r *RunResult) KeyColumn() string {
	return r.Datasets[0].Key
}

// Match is true when no row differs.
func (r *RunResult) Match() bool {
	return r.Rows.Len() == 0
}

// DifferentRows counts the divergent rows whose key exists on both sides.
func (r *RunResult) DifferentRows() (int64, error) {
	t, err := rowset.Filter(r.Rows, rowset.Eq(compose.KeyDiff, tree.DBoolFalse))
	if err != nil {
		return 0, err
	}
	return int64(t.Len()), nil
}

func (r *RunResult) sources() [2]compose.Source {
	return [2]compose.Source{r.Datasets[0].source(), r.Datasets[1].source()}
}

func (r *RunResult) keys() [2]string {
	return [2]string{r.Datasets[0].Key, r.Datasets[1].Key}
}

// Reconcile validates both datasets, then compares them with a single query
// and returns the divergent rows.
//
// Queries are validated first and keys only once both queries are valid;
// failures are returned as *ValidationErrors wrapping ErrInvalidQuery or
// ErrInvalidKey. A failure to execute any later query wraps
// ErrQueryExecutionFailed.
func Reconcile(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, datasets [2]Dataset, opts ...ReconcileOpt,
) (*RunResult, error) {
	o := makeOpts(opts)
	conn = dbconn.RateLimited(conn, o.queriesPerSecond)
	start := time.Now()
	result, err := reconcile(ctx, conn, logger, o, normalizeDatasets(datasets))
	runDurationMetric.Observe(time.Since(start).Seconds())
	runsMetric.WithLabelValues(outcomeOf(result, err)).Inc()
	if err != nil {
		return nil, err
	}
	result.StartedAt = start
	result.Duration = time.Since(start)
	divergentRowsMetric.Set(float64(result.Rows.Len()))
	return result, nil
}

func reconcile(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, o reconcileOpts, datasets [2]Dataset,
) (*RunResult, error) {
	result := &RunResult{ID: uuid.New()}
	logger = logger.With().Str("run", result.ID.String()).Logger()

	if err := validate(ctx, conn, logger, o, datasets); err != nil {
		return nil, err
	}

	columns, err := discoverColumns(ctx, conn, logger, o, datasets)
	if err != nil {
		return nil, err
	}
	if datasets, err = resolveKeys(o, datasets, columns); err != nil {
		return nil, err
	}
	result.Datasets = datasets

	var leftOnly, rightOnly []string
	result.Columns, leftOnly, rightOnly = pairColumns(datasets, columns)
	if len(leftOnly) > 0 || len(rightOnly) > 0 {
		mismatch := &SchemaMismatchError{Labels: labelsOf(datasets), LeftOnly: leftOnly, RightOnly: rightOnly}
		o.report(report.SchemaMismatch{LeftOnly: leftOnly, RightOnly: rightOnly, Allowed: o.allowSchemaMismatch})
		if !o.allowSchemaMismatch {
			return nil, mismatch
		}
		logger.Warn().Err(mismatch).Msg("comparing shared columns only")
		result.SchemaMismatch = mismatch
	}

	if result.Rows, err = compare(ctx, conn, logger, result); err != nil {
		return nil, err
	}
	logger.Info().
		Int("columns", len(result.Columns)).
		Int("rows", result.Rows.Len()).
		Msg("comparison complete")
	return result, nil
}

func compare(ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, result *RunResult) (*rowset.Table, error) {
	plan := compose.Comparison(result.sources(), result.keys(), result.Columns)
	q, err := compose.DialectFor(conn.Dialect()).Render(plan)
	if err != nil {
		return nil, executionFailed(err, "error composing comparison")
	}
	logger.Debug().Str("query", q).Msg("running comparison")
	tbl, err := conn.Query(ctx, q)
	observeQuery(queryKindCompare, err)
	if err != nil {
		return nil, executionFailed(err, "error running comparison")
	}
	return normalizeComparison(tbl, result.Columns)
}

// ComparisonColumns lists the output columns of the comparison of pairs.
func ComparisonColumns(pairs []compose.ColumnPair) []string {
	var ret []string
	for _, p := range pairs {
		ret = append(ret, compose.LeftName(p.Left), compose.RightName(p.Left), compose.DiffName(p.Left))
	}
	return append(ret, compose.KeyDiff)
}

// normalizeComparison names the columns as composed and turns the diff
// flags into booleans.
func normalizeComparison(tbl *rowset.Table, pairs []compose.ColumnPair) (*rowset.Table, error) {
	columns := ComparisonColumns(pairs)
	if len(tbl.Columns) != len(columns) {
		return nil, errors.AssertionFailedf(
			"comparison returned %d columns, expected %d", len(tbl.Columns), len(columns),
		)
	}
	var flags []int
	for i := 2; i < len(columns)-1; i += 3 {
		flags = append(flags, i)
	}
	flags = append(flags, len(columns)-1)

	ret := &rowset.Table{Columns: columns, Rows: make([]tree.Datums, 0, len(tbl.Rows))}
	for _, row := range tbl.Rows {
		row = append(tree.Datums(nil), row...)
		for _, i := range flags {
			b, err := asBool(row[i])
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", columns[i])
			}
			row[i] = b
		}
		ret.Rows = append(ret.Rows, row)
	}
	return ret, nil
}

func asBool(d tree.Datum) (*tree.DBool, error) {
	switch d := d.(type) {
	case *tree.DBool:
		return d, nil
	case *tree.DInt:
		return tree.MakeDBool(*d != 0), nil
	case *tree.DDecimal:
		return tree.MakeDBool(tree.DBool(!d.IsZero())), nil
	case *tree.DString:
		switch strings.ToLower(string(*d)) {
		case "true", "t", "1":
			return tree.DBoolTrue, nil
		case "false", "f", "0":
			return tree.DBoolFalse, nil
		}
	}
	return nil, errors.AssertionFailedf("cannot read %s as a boolean", rowset.FormatDatum(d))
}

func outcomeOf(result *RunResult, err error) string {
	switch {
	case err == nil && result.Match():
		return outcomeMatch
	case err == nil:
		return outcomeDifferent
	case errors.Is(err, ErrSchemaMismatch):
		return outcomeMismatch
	case errors.Is(err, ErrInvalidQuery), errors.Is(err, ErrInvalidKey):
		return outcomeInvalid
	}
	return outcomeFailed
}
