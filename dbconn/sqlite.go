package dbconn

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/datumconv"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteConn executes queries against a SQLite database file.
type SQLiteConn struct {
	sqlConn
}

var _ Conn = (*SQLiteConn)(nil)

// ConnectSQLite opens path, which may be ":memory:". The pool is limited
// to a single connection so in-memory databases are shared by all queries.
func ConnectSQLite(ctx context.Context, id ID, path string) (*SQLiteConn, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening sqlite database")
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "error pinging sqlite database")
	}
	if id == "" {
		id = ID(path)
	}
	return &SQLiteConn{sqlConn: sqlConn{id: id, connStr: "sqlite://" + path, DB: db}}, nil
}

func (c *SQLiteConn) Clone(ctx context.Context) (Conn, error) {
	return &SQLiteConn{sqlConn: c.sqlConn.clone()}, nil
}

func (c *SQLiteConn) Query(ctx context.Context, q string) (*rowset.Table, error) {
	var width int
	return c.query(
		ctx,
		q,
		func(typs []*sql.ColumnType) error {
			width = len(typs)
			return nil
		},
		func(rows *sql.Rows) (tree.Datums, error) {
			vals := make([]any, width)
			valPtrs := make([]any, width)
			for i := range vals {
				valPtrs[i] = &vals[i]
			}
			if err := rows.Scan(valPtrs...); err != nil {
				return nil, errors.Wrap(err, "failed to scan row")
			}
			return datumconv.FromSQLiteValues(vals)
		},
	)
}

func (c *SQLiteConn) Dialect() string {
	return DialectSQLite
}
