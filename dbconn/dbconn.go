package dbconn

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/differ/mysqlurl"
	"github.com/cockroachdb/differ/retry"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type ID string

// Dialect names returned by Conn.Dialect.
const (
	DialectPostgreSQL  = "PostgreSQL"
	DialectCockroachDB = "CockroachDB"
	DialectMySQL       = "MySQL"
	DialectSQLite      = "SQLite"
)

// Conn is a relational query executor.
type Conn interface {
	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	// Clone creates a new Conn with the same underlying connections arguments.
	Clone(ctx context.Context) (Conn, error)
	// Query runs q and materializes every row it returns.
	Query(ctx context.Context, q string) (*rowset.Table, error)
	ConnStr() string
	Dialect() string
}

func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, errors.Newf("empty connection string")
	}

	before := strings.SplitN(connStr, "://", 2)

	switch {
	case strings.Contains(before[0], "postgres"):
		u, err := url.Parse(connStr)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse url: %s", mysqlurl.Redact(connStr))
		}
		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(before[0], "mysql"):
		return ConnectMySQL(ctx, id, connStr)
	case strings.HasPrefix(before[0], "sqlite"):
		if len(before) != 2 || before[1] == "" {
			return nil, errors.Newf("sqlite connection string must name a file: %s", connStr)
		}
		return ConnectSQLite(ctx, id, before[1])
	case strings.HasPrefix(connStr, "file:"), connStr == ":memory:":
		return ConnectSQLite(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised scheme %s from %s", before[0], mysqlurl.Redact(connStr))
}

// ConnectWithRetry calls Connect until it succeeds, the retry settings are
// exhausted or ctx is done.
func ConnectWithRetry(
	ctx context.Context, logger zerolog.Logger, id ID, connStr string, settings retry.Settings,
) (Conn, error) {
	var conn Conn
	err := retry.Do(ctx, settings, func(ctx context.Context) error {
		var err error
		conn, err = Connect(ctx, id, connStr)
		return err
	}, func(err error, wait time.Duration) {
		logger.Warn().Err(err).Str("conn", string(id)).Dur("wait", wait).Msg("failed to connect, retrying")
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", id)
	}
	return conn, nil
}
