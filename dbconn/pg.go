package dbconn

import (
	"context"
	"strings"

	"github.com/cockroachdb/differ/datumconv"
	"github.com/cockroachdb/differ/rowset"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq/oid"
)

// PGConn executes queries against PostgreSQL or CockroachDB.
type PGConn struct {
	id ID
	*pgx.Conn
	version     string
	connStr     string
	isCockroach bool
}

var _ Conn = (*PGConn)(nil)

func NewPGConn(id ID, conn *pgx.Conn, connStr string, version string) *PGConn {
	return &PGConn{
		id:          id,
		Conn:        conn,
		version:     version,
		connStr:     connStr,
		isCockroach: strings.Contains(version, "CockroachDB"),
	}
}

func ConnectPG(ctx context.Context, id ID, connStr string) (*PGConn, error) {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing postgres connection string")
	}
	return ConnectPGConfig(ctx, id, cfg, connStr)
}

func ConnectPGConfig(ctx context.Context, id ID, cfg *pgx.ConnConfig, connStr string) (*PGConn, error) {
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrap(err, "error determining server version")
	}
	return NewPGConn(id, conn, connStr, version), nil
}

func (c *PGConn) ID() ID {
	return c.id
}

func (c *PGConn) IsCockroach() bool {
	return c.isCockroach
}

func (c *PGConn) Clone(ctx context.Context) (Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, c.Config())
	if err != nil {
		return nil, err
	}
	return NewPGConn(c.id, conn, c.connStr, c.version), nil
}

func (c *PGConn) Query(ctx context.Context, q string) (*rowset.Table, error) {
	rows, err := c.Conn.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	ret := rowset.NewTable()
	typOIDs := make([]oid.Oid, len(fds))
	for i, fd := range fds {
		ret.Columns = append(ret.Columns, fd.Name)
		typOIDs[i] = oid.Oid(fd.DataTypeOID)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row, err := datumconv.FromPGValues(c.TypeMap(), vals, typOIDs)
		if err != nil {
			return nil, err
		}
		ret.Rows = append(ret.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *PGConn) ConnStr() string {
	return c.connStr
}

func (c *PGConn) Dialect() string {
	if c.IsCockroach() {
		return DialectCockroachDB
	}
	return DialectPostgreSQL
}
