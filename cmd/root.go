package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/differ/cmd/check"
	"github.com/cockroachdb/differ/cmd/run"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "differ",
	Short:         "Reconcile two datasets of the same database by key",
	Long:          `differ compares the rows of two queries joined on a key column and reports the rows, keys and columns that differ.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(run.Command())
	rootCmd.AddCommand(check.Command())
}
