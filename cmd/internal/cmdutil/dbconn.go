package cmdutil

import (
	"context"

	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/retry"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type dbConnConfig struct {
	retries          int
	queriesPerSecond float64
}

var dbConnCfg = dbConnConfig{
	retries: retry.DefaultSettings().MaxRetries,
}

func RegisterDBConnFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		"conn",
		"",
		"URL of the database holding both datasets (postgres://, mysql:// or sqlite://)",
	)
	cmd.PersistentFlags().IntVar(
		&dbConnCfg.retries,
		"conn-retries",
		dbConnCfg.retries,
		"number of times to retry connecting to the database",
	)
	cmd.PersistentFlags().Float64Var(
		&dbConnCfg.queriesPerSecond,
		"queries-per-second",
		0,
		"if set, maximum number of queries run against the database per second",
	)
}

func QueriesPerSecond() float64 {
	return dbConnCfg.queriesPerSecond
}

// LoadDBConn connects to the conn setting of v, retrying on failure.
func LoadDBConn(ctx context.Context, logger zerolog.Logger, v *viper.Viper) (dbconn.Conn, error) {
	connStr := v.GetString("conn")
	if connStr == "" {
		return nil, errors.New("a connection string must be given with --conn, DIFFER_CONN or the config file")
	}
	settings := retry.DefaultSettings()
	settings.MaxRetries = dbConnCfg.retries
	return dbconn.ConnectWithRetry(ctx, logger, "differ", connStr, settings)
}
