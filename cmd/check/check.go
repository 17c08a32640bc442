package check

import (
	"context"

	"github.com/cockroachdb/differ/cmd/internal/cmdutil"
	"github.com/cockroachdb/differ/reconcile"
	"github.com/cockroachdb/differ/report"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var checkConcurrent bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the queries and keys of both datasets.",
		Long:  `Check runs each query and key against the database without comparing the datasets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			v, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}

			reporter := report.CombinedReporter{}
			reporter.Reporters = append(reporter.Reporters, report.LogReporter{Logger: logger})
			defer reporter.Close()

			ctx := context.Background()
			conn, err := cmdutil.LoadDBConn(ctx, logger, v)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close(ctx) }()

			if err := reconcile.Check(
				ctx,
				conn,
				logger,
				cmdutil.Datasets(v),
				reconcile.WithConcurrency(checkConcurrent),
				reconcile.WithQueriesPerSecond(cmdutil.QueriesPerSecond()),
				reconcile.WithReporter(reporter),
			); err != nil {
				return err
			}
			reporter.Report(report.StatusReport{Info: "queries and keys are valid"})
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(
		&checkConcurrent,
		"concurrent",
		false,
		"check both datasets at the same time",
	)
	cmdutil.RegisterConfigFlags(cmd)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterDatasetFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	return cmd
}
