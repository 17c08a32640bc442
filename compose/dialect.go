package compose

import "strings"

// Dialect renders plans to SQL.
type Dialect interface {
	Name() string
	Render(q Query) (string, error)
}

var (
	// Postgres renders SQL understood by PostgreSQL, CockroachDB and SQLite.
	Postgres Dialect = postgresDialect{}
	// MySQL renders SQL for MySQL, which has no FULL JOIN.
	MySQL Dialect = mysqlDialect{}
)

// DialectFor returns the dialect to use for a connection reporting the
// given dialect name.
func DialectFor(connDialect string) Dialect {
	if strings.EqualFold(connDialect, "mysql") {
		return MySQL
	}
	return Postgres
}
