package run

import (
	"context"
	"os"

	"github.com/cockroachdb/differ/cmd/internal/cmdutil"
	"github.com/cockroachdb/differ/export"
	"github.com/cockroachdb/differ/reconcile"
	"github.com/cockroachdb/differ/report"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var (
		runConcurrent          bool
		runAllowSchemaMismatch bool
		runReportRows          bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare two datasets and print the differences.",
		Long:  `Run joins the two datasets on their keys, then prints the divergent rows, the key and row summaries and the per-column differences.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			format, err := cmdutil.Format()
			if err != nil {
				return err
			}
			v, err := cmdutil.LoadConfig(cmd)
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			reporter := report.CombinedReporter{}
			reporter.Reporters = append(reporter.Reporters, report.LogReporter{Logger: logger})
			defer reporter.Close()

			ctx := context.Background()
			store, exportOpts, err := cmdutil.ExportStore(ctx, logger, v)
			if err != nil {
				return err
			}
			conn, err := cmdutil.LoadDBConn(ctx, logger, v)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close(ctx) }()

			reporter.Report(report.StatusReport{Info: "reconciliation in progress"})
			result, err := reconcile.Run(
				ctx,
				conn,
				logger,
				cmdutil.Datasets(v),
				reconcile.WithConcurrency(runConcurrent),
				reconcile.WithAllowSchemaMismatch(runAllowSchemaMismatch),
				reconcile.WithQueriesPerSecond(cmdutil.QueriesPerSecond()),
				reconcile.WithReporter(reporter),
			)
			if err != nil {
				return errors.Wrapf(err, "error reconciling")
			}
			if runReportRows {
				if err := reconcile.ReportResult(reporter, result); err != nil {
					return err
				}
			}

			doc, err := cmdutil.NewResultDoc(result)
			if err != nil {
				return err
			}
			if store != nil {
				if doc.Exported, err = export.Export(ctx, logger, store, result, exportOpts); err != nil {
					return errors.Wrapf(err, "error exporting")
				}
			}
			if err := cmdutil.WriteResult(os.Stdout, format, doc); err != nil {
				return err
			}
			reporter.Report(report.StatusReport{Info: "reconciliation complete"})
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(
		&runConcurrent,
		"concurrent",
		false,
		"run the queries of both datasets at the same time",
	)
	cmd.PersistentFlags().BoolVar(
		&runAllowSchemaMismatch,
		"allow-schema-mismatch",
		false,
		"compare only the shared columns when the datasets have different columns",
	)
	cmd.PersistentFlags().BoolVar(
		&runReportRows,
		"log-rows",
		false,
		"also log each divergent row",
	)
	cmdutil.RegisterConfigFlags(cmd)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterDatasetFlags(cmd)
	cmdutil.RegisterExportFlags(cmd)
	cmdutil.RegisterOutputFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	return cmd
}
