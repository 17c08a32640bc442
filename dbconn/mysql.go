package dbconn

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/differ/datumconv"
	"github.com/cockroachdb/differ/mysqlurl"
	"github.com/cockroachdb/differ/rowset"
	"github.com/lib/pq/oid"
)

// MySQLConn executes queries against MySQL.
type MySQLConn struct {
	sqlConn
	database string
}

var _ Conn = (*MySQLConn)(nil)

func NewMySQLConn(id ID, db *sql.DB, connStr string, database string) *MySQLConn {
	return &MySQLConn{sqlConn: sqlConn{id: id, connStr: connStr, DB: db}, database: database}
}

func ConnectMySQL(ctx context.Context, id ID, connStr string) (*MySQLConn, error) {
	cfg, err := mysqlurl.Parse(connStr)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewMySQLConn(id, db, connStr, cfg.DBName), nil
}

func (c *MySQLConn) Clone(ctx context.Context) (Conn, error) {
	return &MySQLConn{sqlConn: c.sqlConn.clone(), database: c.database}, nil
}

func (c *MySQLConn) Database() string {
	return c.database
}

func (c *MySQLConn) Query(ctx context.Context, q string) (*rowset.Table, error) {
	var typOIDs []oid.Oid
	return c.query(
		ctx,
		q,
		func(typs []*sql.ColumnType) error {
			for _, typ := range typs {
				typOIDs = append(typOIDs, datumconv.MySQLTypeToOID(typ.DatabaseTypeName()))
			}
			return nil
		},
		func(rows *sql.Rows) (tree.Datums, error) {
			return datumconv.ScanMySQLRow(rows, typOIDs)
		},
	)
}

func (c *MySQLConn) Dialect() string {
	return DialectMySQL
}
