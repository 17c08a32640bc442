package testutils

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/stretchr/testify/require"
)

// PGConnStr returns the PostgreSQL or CockroachDB instance to test against,
// if one is configured.
func PGConnStr() (string, bool) {
	return os.LookupEnv("POSTGRES_URL")
}

// MySQLConnStr returns the MySQL instance to test against, if one is
// configured.
func MySQLConnStr() (string, bool) {
	return os.LookupEnv("MYSQL_URL")
}

// SQLiteConn opens a private in-memory database closed at the end of the
// test.
func SQLiteConn(t *testing.T) *dbconn.SQLiteConn {
	ctx := context.Background()
	conn, err := dbconn.ConnectSQLite(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close(ctx))
	})
	return conn
}

// Conns returns a SQLite connection, plus a connection to each configured
// server instance.
func Conns(t *testing.T) []dbconn.Conn {
	ctx := context.Background()
	conns := []dbconn.Conn{SQLiteConn(t)}
	for _, connStr := range []func() (string, bool){PGConnStr, MySQLConnStr} {
		s, ok := connStr()
		if !ok {
			continue
		}
		conn, err := dbconn.Connect(ctx, "", s)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, conn.Close(ctx))
		})
		conns = append(conns, conn)
	}
	return conns
}

// Statements splits input on semicolons.
func Statements(input string) []string {
	var ret []string
	for _, stmt := range strings.Split(input, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			ret = append(ret, stmt)
		}
	}
	return ret
}

// ExecConnCommand executes every statement of the test input.
func ExecConnCommand(t *testing.T, d *datadriven.TestData, conn dbconn.Conn) string {
	ctx := context.Background()
	var sb strings.Builder
	for _, stmt := range Statements(d.Input) {
		var err error
		switch conn := conn.(type) {
		case *dbconn.PGConn:
			_, err = conn.Exec(ctx, stmt)
		case *dbconn.MySQLConn:
			_, err = conn.ExecContext(ctx, stmt)
		case *dbconn.SQLiteConn:
			_, err = conn.ExecContext(ctx, stmt)
		default:
			t.Fatalf("unhandled Conn type: %T", conn)
		}
		if err != nil {
			sb.WriteString(fmt.Sprintf("[%s] error: %s\n", conn.ID(), err.Error()))
		}
	}
	if sb.Len() == 0 {
		return "ok"
	}
	return sb.String()
}

// QueryConnCommand runs the test input and prints the resulting table.
func QueryConnCommand(t *testing.T, d *datadriven.TestData, conn dbconn.Conn) string {
	tbl, err := conn.Query(context.Background(), d.Input)
	if err != nil {
		return fmt.Sprintf("[%s] error: %s\n", conn.ID(), err.Error())
	}
	return tbl.String()
}
