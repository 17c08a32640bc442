package reconcile

import (
	"context"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/report"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/differ/testutils"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func execAll(t *testing.T, conn *dbconn.SQLiteConn, stmts ...string) {
	for _, stmt := range stmts {
		_, err := conn.ExecContext(context.Background(), stmt)
		require.NoError(t, err)
	}
}

func scenarioConn(t *testing.T) *dbconn.SQLiteConn {
	conn := testutils.SQLiteConn(t)
	execAll(
		t,
		conn,
		"CREATE TABLE t1 (id INT, v INT)",
		"CREATE TABLE t2 (id INT, v INT)",
		"INSERT INTO t1 VALUES (1, 10), (2, 20)",
		"INSERT INTO t2 VALUES (1, 10), (2, 99), (3, 5)",
	)
	return conn
}

var scenarioDatasets = [2]Dataset{
	{Query: "SELECT id, v FROM t1", Key: "id"},
	{Query: "SELECT id, v FROM t2"},
}

func TestNormalizeDatasets(t *testing.T) {
	ds := normalizeDatasets([2]Dataset{
		{Query: " SELECT 1 AS k; ", Key: " k "},
		{Label: "prod", Query: "SELECT 1 AS k"},
	})
	require.Equal(t, [2]Dataset{
		{Label: "A", Query: "SELECT 1 AS k", Key: "k"},
		{Label: "prod", Query: "SELECT 1 AS k", Key: "k"},
	}, ds)

	ds = normalizeDatasets([2]Dataset{
		{Label: "prod", Query: "SELECT 1 AS k", Key: "k"},
		{Label: " prod", Query: "SELECT 1 AS k"},
	})
	require.Equal(t, [2]string{"prod (left)", "prod (right)"}, labelsOf(ds))
}

func TestColumnDiffNames(t *testing.T) {
	for _, tc := range []struct {
		key      string
		labels   [2]string
		expected []string
	}{
		{key: "id", labels: [2]string{"A", "B"}, expected: []string{"id", "A", "B"}},
		{key: "id", labels: [2]string{"id", "B"}, expected: []string{"id", "id_left", "B"}},
		{key: "id", labels: [2]string{"A", "id"}, expected: []string{"id", "A", "id_right"}},
		{key: "id", labels: [2]string{"id", "id_left"}, expected: []string{"id", "id_left", "id_left_right"}},
	} {
		require.Equal(t, tc.expected, columnDiffNames(tc.key, tc.labels))
	}
}

func TestColumnDiffsLabelNamedAfterKey(t *testing.T) {
	ctx := context.Background()
	conn := scenarioConn(t)

	datasets := scenarioDatasets
	datasets[0].Label = "id"
	result, err := Run(ctx, conn, zerolog.Nop(), datasets)
	require.NoError(t, err)
	diffs, err := ColumnDiffs(result)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	require.Equal(t, []string{"id", "id_left", "B"}, diffs[0].Rows.Columns)
	require.Equal(t, [][]string{{"2", "20", "99"}}, diffs[0].Rows.Strings())
}

func TestResolveColumn(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		columns  []string
		name     string
		expected string
		ok       bool
	}{
		{desc: "exact", columns: []string{"ID", "id"}, name: "id", expected: "id", ok: true},
		{desc: "folded", columns: []string{"CustomerID"}, name: "customerid", expected: "CustomerID", ok: true},
		{desc: "missing", columns: []string{"a", "b"}, name: "c"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			c, ok := resolveColumn(tc.columns, tc.name)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, c)
		})
	}
}

func TestPairColumns(t *testing.T) {
	for _, tc := range []struct {
		desc              string
		keys              [2]string
		columns           [2][]string
		expectedPairs     []compose.ColumnPair
		expectedLeftOnly  []string
		expectedRightOnly []string
	}{
		{
			desc:    "same columns",
			keys:    [2]string{"id", "id"},
			columns: [2][]string{{"id", "a", "b"}, {"b", "id", "a"}},
			expectedPairs: []compose.ColumnPair{
				{Left: "id", Right: "id"}, {Left: "a", Right: "a"}, {Left: "b", Right: "b"},
			},
		},
		{
			desc:    "different keys and case",
			keys:    [2]string{"id", "REF"},
			columns: [2][]string{{"id", "amount"}, {"REF", "AMOUNT"}},
			expectedPairs: []compose.ColumnPair{
				{Left: "id", Right: "REF"}, {Left: "amount", Right: "AMOUNT"},
			},
		},
		{
			desc:              "mismatch",
			keys:              [2]string{"id", "id"},
			columns:           [2][]string{{"id", "a", "b"}, {"id", "a", "c"}},
			expectedPairs:     []compose.ColumnPair{{Left: "id", Right: "id"}, {Left: "a", Right: "a"}},
			expectedLeftOnly:  []string{"b"},
			expectedRightOnly: []string{"c"},
		},
		{
			desc:             "right key is not a value column",
			keys:             [2]string{"id", "ref"},
			columns:          [2][]string{{"id", "ref"}, {"ref"}},
			expectedPairs:    []compose.ColumnPair{{Left: "id", Right: "ref"}},
			expectedLeftOnly: []string{"ref"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ds := [2]Dataset{{Key: tc.keys[0]}, {Key: tc.keys[1]}}
			pairs, leftOnly, rightOnly := pairColumns(ds, tc.columns)
			require.Equal(t, tc.expectedPairs, pairs)
			require.Equal(t, tc.expectedLeftOnly, leftOnly)
			require.Equal(t, tc.expectedRightOnly, rightOnly)
		})
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	conn := scenarioConn(t)

	result, err := Run(ctx, conn, zerolog.Nop(), scenarioDatasets)
	require.NoError(t, err)
	require.False(t, result.Match())
	require.Equal(t, [2]string{"A", "B"}, result.Labels())
	require.Equal(t, "id", result.Datasets[1].Key)
	require.Equal(t, 2, result.Rows.Len())
	require.Equal(
		t,
		[][]string{
			{"2", "2", "false", "20", "99", "true", "false"},
			{"NULL", "3", "true", "NULL", "5", "true", "true"},
		},
		result.Rows.Strings(),
	)
	require.Equal(t, &Summary{
		Keys:          KeyCounts{Total: 3, Matching: 2, LeftOnly: 0, RightOnly: 1},
		Rows:          RowCounts{2, 3},
		DifferentRows: 1,
		IdenticalRows: 1,
	}, result.Summary)
	require.Equal(t, []SummaryRow{
		{Metric: "Total rows in A", Number: 2},
		{Metric: "Total rows in B", Number: 3},
		{Metric: "Identical rows", Number: 1},
		{Metric: "Different rows", Number: 1},
	}, result.Summary.RowRows(result.Labels()))

	t.Run("idempotent", func(t *testing.T) {
		again, err := Run(ctx, conn, zerolog.Nop(), scenarioDatasets, WithConcurrency(true))
		require.NoError(t, err)
		require.NotEqual(t, result.ID, again.ID)
		require.Equal(t, result.Rows.String(), again.Rows.String())
		require.Equal(t, result.Summary, again.Summary)
	})

	t.Run("identical datasets", func(t *testing.T) {
		same, err := Run(ctx, conn, zerolog.Nop(), [2]Dataset{scenarioDatasets[0], scenarioDatasets[0]})
		require.NoError(t, err)
		require.True(t, same.Match())
		require.Equal(t, 0, same.Rows.Len())
		require.Equal(t, int64(2), same.Summary.IdenticalRows)
	})

	t.Run("summary is not computed by Reconcile", func(t *testing.T) {
		r, err := Reconcile(ctx, conn, zerolog.Nop(), scenarioDatasets)
		require.NoError(t, err)
		require.Nil(t, r.Summary)
		summarized, err := Summarize(ctx, conn, r)
		require.NoError(t, err)
		require.Nil(t, r.Summary)
		require.NotNil(t, summarized.Summary)
	})
}

func TestReconcileInvalidKeySkipsComparison(t *testing.T) {
	ctx := context.Background()
	sqlite := scenarioConn(t)
	conn := dbconn.MakeFakeConn("fake", dbconn.DialectSQLite, sqlite.Query)

	collector := &report.Collector{}
	_, err := Reconcile(ctx, conn, zerolog.Nop(), [2]Dataset{
		{Query: "SELECT id, v FROM t1", Key: "id"},
		{Query: "SELECT id, v FROM t2", Key: "nosuch"},
	}, WithReporter(collector))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidKey))
	require.False(t, errors.Is(err, ErrInvalidQuery))

	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []Side{Right}, verr.Sides())
	require.Equal(t, "key", verr.Errors[0].Field())
	require.Equal(t, []report.ReportableObject{
		report.InvalidInput{Side: "right", Label: "B", Field: "key", Value: "nosuch"},
	}, collector.Objects())

	// Two query probes and two key probes.
	require.Len(t, conn.Queries(), 4)
	for _, q := range conn.Queries() {
		require.NotContains(t, q, "FULL JOIN")
	}
}

func TestReconcileNullKeys(t *testing.T) {
	ctx := context.Background()
	conn := testutils.SQLiteConn(t)
	execAll(
		t,
		conn,
		"CREATE TABLE n1 (id INT, v INT)",
		"CREATE TABLE n2 (id INT, v INT)",
		"INSERT INTO n1 VALUES (1, 1), (NULL, 2)",
		"INSERT INTO n2 VALUES (1, 1), (NULL, NULL)",
	)
	result, err := Run(ctx, conn, zerolog.Nop(), [2]Dataset{
		{Query: "SELECT id, v FROM n1", Key: "id"},
		{Query: "SELECT id, v FROM n2"},
	})
	require.NoError(t, err)
	// NULL keys never join, even when the rows are entirely NULL.
	require.Equal(t, 2, result.Rows.Len())
	require.Equal(t, KeyCounts{Total: 1, Matching: 1}, result.Summary.Keys)
	require.Equal(t, int64(0), result.Summary.DifferentRows)

	collector := &report.Collector{}
	require.NoError(t, ReportResult(collector, result))
	var missing []report.MissingRow
	for _, obj := range collector.Objects() {
		if m, ok := obj.(report.MissingRow); ok {
			missing = append(missing, m)
		}
	}
	require.ElementsMatch(t, []report.MissingRow{
		{Label: "A", Key: "NULL"},
		{Label: "B", Key: "NULL"},
	}, missing)
	require.Contains(t, collector.Objects(), report.StatusReport{Info: "All rows with matching keys are identical."})

	left, err := LeftOnly(result)
	require.NoError(t, err)
	require.Equal(t, 0, left.Len())
}

func TestReconcileQueryExecutionFailed(t *testing.T) {
	ctx := context.Background()
	sqlite := scenarioConn(t)
	conn := dbconn.MakeFakeConn("fake", dbconn.DialectSQLite, func(ctx context.Context, q string) (*rowset.Table, error) {
		if strings.Contains(q, "FULL JOIN") {
			return nil, errors.New("connection reset")
		}
		return sqlite.Query(ctx, q)
	})
	_, err := Reconcile(ctx, conn, zerolog.Nop(), scenarioDatasets)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrQueryExecutionFailed))
	require.Contains(t, err.Error(), "connection reset")
}

func TestReconcileSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	conn := scenarioConn(t)
	ds := [2]Dataset{
		{Query: "SELECT id, v, v AS extra FROM t1", Key: "id"},
		{Query: "SELECT id, v FROM t2"},
	}
	_, err := Reconcile(ctx, conn, zerolog.Nop(), ds)
	require.True(t, errors.Is(err, ErrSchemaMismatch))
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, []string{"extra"}, mismatch.LeftOnly)
	require.Empty(t, mismatch.RightOnly)

	result, err := Reconcile(ctx, conn, zerolog.Nop(), ds, WithAllowSchemaMismatch(true))
	require.NoError(t, err)
	require.NotNil(t, result.SchemaMismatch)
	require.Equal(t, []compose.ColumnPair{{Left: "id", Right: "id"}, {Left: "v", Right: "v"}}, result.Columns)
	require.Equal(t, 2, result.Rows.Len())
}

// mysqlFake answers probes with an empty table and the comparison with
// integer flags, as MySQL does.
func mysqlFake(ctx context.Context, q string) (*rowset.Table, error) {
	switch {
	case strings.Contains(q, "`joined`"):
		return &rowset.Table{
			Columns: ComparisonColumns([]compose.ColumnPair{{Left: "id", Right: "id"}}),
			Rows: []tree.Datums{
				{tree.NewDInt(3), tree.DNull, tree.NewDInt(1), tree.NewDInt(1)},
			},
		}, nil
	case strings.Contains(q, "SELECT *"):
		return rowset.NewTable("id"), nil
	}
	return rowset.NewTable("probe"), nil
}

func TestReconcileNormalizesFlags(t *testing.T) {
	conn := dbconn.MakeFakeConn("fake", dbconn.DialectMySQL, mysqlFake)
	result, err := Reconcile(context.Background(), conn, zerolog.Nop(), [2]Dataset{
		{Query: "SELECT id FROM t1", Key: "id"},
		{Query: "SELECT id FROM t2"},
	})
	require.NoError(t, err)
	require.Equal(t, tree.Datums{tree.NewDInt(3), tree.DNull, tree.DBoolTrue, tree.DBoolTrue}, result.Rows.Rows[0])
	left, err := LeftOnly(result)
	require.NoError(t, err)
	require.Equal(t, "id\n3\n", left.String())
}

func TestAsBool(t *testing.T) {
	for _, tc := range []struct {
		d        tree.Datum
		expected *tree.DBool
		err      bool
	}{
		{d: tree.DBoolFalse, expected: tree.DBoolFalse},
		{d: tree.NewDInt(0), expected: tree.DBoolFalse},
		{d: tree.NewDInt(1), expected: tree.DBoolTrue},
		{d: &tree.DDecimal{Decimal: *apd.New(1, 0)}, expected: tree.DBoolTrue},
		{d: &tree.DDecimal{Decimal: *apd.New(0, 0)}, expected: tree.DBoolFalse},
		{d: tree.NewDString("t"), expected: tree.DBoolTrue},
		{d: tree.NewDString("maybe"), err: true},
		{d: tree.DNull, err: true},
	} {
		b, err := asBool(tc.d)
		if tc.err {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.expected, b)
	}
}

func TestDatumInt(t *testing.T) {
	for _, tc := range []struct {
		d        tree.Datum
		expected int64
	}{
		{d: tree.DNull, expected: 0},
		{d: tree.NewDInt(7), expected: 7},
		{d: &tree.DDecimal{Decimal: *apd.New(12, 0)}, expected: 12},
		{d: tree.NewDFloat(3), expected: 3},
		{d: tree.NewDString("5"), expected: 5},
	} {
		n, err := datumInt(tc.d)
		require.NoError(t, err)
		require.Equal(t, tc.expected, n)
	}
	_, err := datumInt(tree.DBoolTrue)
	require.Error(t, err)
}

func TestSession(t *testing.T) {
	ctx := context.Background()
	conn := scenarioConn(t)
	var s Session
	require.Nil(t, s.Current())

	result, err := s.Run(ctx, conn, zerolog.Nop(), scenarioDatasets)
	require.NoError(t, err)
	require.Equal(t, result, s.Current())

	_, err = s.Run(ctx, conn, zerolog.Nop(), scenarioDatasets)
	require.True(t, errors.Is(err, ErrRunInProgress))
	require.Equal(t, result, s.Current())

	s.Reset()
	require.Nil(t, s.Current())
	_, err = s.Run(ctx, conn, zerolog.Nop(), [2]Dataset{{Query: "SELEC", Key: "id"}, {}})
	require.True(t, errors.Is(err, ErrInvalidQuery))
	require.Nil(t, s.Current())
}

// TestReconcileGenerated checks the summary identities over generated
// datasets against counts computed in Go.
func TestReconcileGenerated(t *testing.T) {
	ctx := context.Background()
	for seed := int64(1); seed <= 5; seed++ {
		faker := gofakeit.New(seed)
		conn := testutils.SQLiteConn(t)
		execAll(t, conn, "CREATE TABLE g1 (id INT, v INT, w TEXT)", "CREATE TABLE g2 (id INT, v INT, w TEXT)")

		type row struct {
			v any
			w any
		}
		randomRow := func() row {
			r := row{v: faker.Number(0, 3), w: faker.RandomString([]string{"x", "y"})}
			if faker.Number(0, 4) == 0 {
				r.v = nil
			}
			if faker.Number(0, 4) == 0 {
				r.w = nil
			}
			return r
		}
		var expected KeyCounts
		var different int64
		for id := 1; id <= 40; id++ {
			var sides [2]*row
			for i, table := range []string{"g1", "g2"} {
				if faker.Number(0, 5) == 0 {
					continue
				}
				r := randomRow()
				if i == 1 && sides[0] != nil && faker.Bool() {
					r = *sides[0]
				}
				sides[i] = &r
				_, err := conn.ExecContext(ctx, "INSERT INTO "+table+" VALUES (?, ?, ?)", id, r.v, r.w)
				require.NoError(t, err)
			}
			switch {
			case sides[0] != nil && sides[1] != nil:
				expected.Matching++
				if *sides[0] != *sides[1] {
					different++
				}
			case sides[0] != nil:
				expected.LeftOnly++
			case sides[1] != nil:
				expected.RightOnly++
			default:
				continue
			}
			expected.Total++
		}

		result, err := Run(ctx, conn, zerolog.Nop(), [2]Dataset{
			{Query: "SELECT id, v, w FROM g1", Key: "id"},
			{Query: "SELECT id, v, w FROM g2"},
		})
		require.NoError(t, err)
		s := result.Summary
		require.Equal(t, expected, s.Keys)
		require.Equal(t, different, s.DifferentRows)
		require.Equal(t, s.Keys.Matching, s.IdenticalRows+s.DifferentRows)
		require.Equal(t, int64(result.Rows.Len()), s.DifferentRows+s.Keys.LeftOnly+s.Keys.RightOnly)

		left, err := LeftOnly(result)
		require.NoError(t, err)
		require.Equal(t, int(expected.LeftOnly), left.Len())
		right, err := RightOnly(result)
		require.NoError(t, err)
		require.Equal(t, int(expected.RightOnly), right.Len())
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	conn := scenarioConn(t)
	require.NoError(t, Check(ctx, conn, zerolog.Nop(), scenarioDatasets))

	err := Check(ctx, conn, zerolog.Nop(), [2]Dataset{
		{Query: "SELECT id, v FROM t1", Key: "nosuch"},
		{Query: "SELECT id, v FROM t2", Key: "id"},
	})
	require.True(t, errors.Is(err, ErrInvalidKey))
	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []Side{Left}, verr.Sides())
}
