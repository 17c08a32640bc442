package dbconn

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/rowset"
)

// sqlConn is the part shared by the database/sql backed connections.
// Clones share the pool of the connection they were cloned from, and only
// the connection that opened the pool closes it.
type sqlConn struct {
	id      ID
	connStr string
	*sql.DB
	borrowed bool
}

func (c *sqlConn) ID() ID {
	return c.id
}

func (c *sqlConn) ConnStr() string {
	return c.connStr
}

func (c *sqlConn) Close(ctx context.Context) error {
	if c.borrowed {
		return nil
	}
	return c.DB.Close()
}

func (c *sqlConn) clone() sqlConn {
	return sqlConn{id: c.id, connStr: c.connStr, DB: c.DB, borrowed: true}
}

// query runs q, handing each row to scan along with the column types.
func (c *sqlConn) query(
	ctx context.Context,
	q string,
	prepare func(typs []*sql.ColumnType) error,
	scan func(rows *sql.Rows) (tree.Datums, error),
) (*rowset.Table, error) {
	rows, err := c.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	typs, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	ret := rowset.NewTable()
	for _, typ := range typs {
		ret.Columns = append(ret.Columns, typ.Name())
	}
	if err := prepare(typs); err != nil {
		return nil, err
	}
	for rows.Next() {
		row, err := scan(rows)
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
