package reconcile

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/report"
	"github.com/cockroachdb/differ/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		for _, conn := range testutils.Conns(t) {
			conn := conn
			t.Run(conn.Dialect(), func(t *testing.T) {
				testDataDriven(t, path, conn)
			})
		}
	})
}

func testDataDriven(t *testing.T, path string, conn dbconn.Conn) {
	ctx := context.Background()
	var session Session

	datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
		var sb strings.Builder
		switch d.Cmd {
		case "exec":
			return testutils.ExecConnCommand(t, d, conn)
		case "query":
			return testutils.QueryConnCommand(t, d, conn)
		case "reconcile":
			var opts []ReconcileOpt
			for _, arg := range d.CmdArgs {
				switch arg.Key {
				case "concurrent":
					opts = append(opts, WithConcurrency(true))
				case "allow-schema-mismatch":
					opts = append(opts, WithAllowSchemaMismatch(true))
				default:
					t.Fatalf("unknown argument: %s", arg.Key)
				}
			}
			reporter := report.LogReporter{Logger: zerolog.New(&sb)}
			opts = append(opts, WithReporter(reporter))

			session.Reset()
			result, err := session.Run(ctx, conn, zerolog.Nop(), parseDatasets(t, d.Input), opts...)
			if err != nil {
				sb.WriteString(fmt.Sprintf("error: %s\n", err.Error()))
				return sb.String()
			}
			require.NoError(t, ReportResult(reporter, result))
		case "views":
			result := session.Current()
			require.NotNil(t, result)
			views, err := BuildViews(result)
			require.NoError(t, err)
			sb.WriteString("divergent:\n")
			sb.WriteString(views.Divergent.String())
			for _, c := range views.ColumnDiffs {
				sb.WriteString(fmt.Sprintf("column %s:\n", c.Column))
				sb.WriteString(c.Rows.String())
			}
			sb.WriteString("left only:\n")
			sb.WriteString(views.LeftOnly.String())
			sb.WriteString("right only:\n")
			sb.WriteString(views.RightOnly.String())
		default:
			t.Fatalf("unknown command: %s", d.Cmd)
		}
		return sb.String()
	})
}

// parseDatasets reads "field: value" lines.
func parseDatasets(t *testing.T, input string) [2]Dataset {
	var ret [2]Dataset
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		require.True(t, ok, "expected field: value, got %q", line)
		value = strings.TrimSpace(value)
		switch field {
		case "left":
			ret[0].Query = value
		case "right":
			ret[1].Query = value
		case "key":
			ret[0].Key = value
		case "left-key":
			ret[0].Key = value
		case "right-key":
			ret[1].Key = value
		case "left-label":
			ret[0].Label = value
		case "right-label":
			ret[1].Label = value
		case "left-filter":
			ret[0].Filter = value
		case "right-filter":
			ret[1].Filter = value
		default:
			t.Fatalf("unknown field: %s", field)
		}
	}
	return ret
}
