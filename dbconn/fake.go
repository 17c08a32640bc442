package dbconn

import (
	"context"
	"sync"

	"github.com/cockroachdb/differ/rowset"
)

type QueryFunc func(ctx context.Context, q string) (*rowset.Table, error)

type queryLog struct {
	mu      sync.Mutex
	queries []string
}

// FakeConn answers queries with a QueryFunc and records every query it is
// given. Clones share the QueryFunc and the record.
type FakeConn struct {
	id      ID
	dialect string
	fn      QueryFunc
	log     *queryLog
}

var _ Conn = FakeConn{}

func MakeFakeConn(id ID, dialect string, fn QueryFunc) FakeConn {
	return FakeConn{id: id, dialect: dialect, fn: fn, log: &queryLog{}}
}

func (f FakeConn) ID() ID {
	return f.id
}

func (f FakeConn) Close(ctx context.Context) error {
	return nil
}

func (f FakeConn) Clone(ctx context.Context) (Conn, error) {
	return f, nil
}

func (f FakeConn) Query(ctx context.Context, q string) (*rowset.Table, error) {
	f.log.mu.Lock()
	f.log.queries = append(f.log.queries, q)
	f.log.mu.Unlock()
	return f.fn(ctx, q)
}

// Queries returns every query run so far, in order.
func (f FakeConn) Queries() []string {
	f.log.mu.Lock()
	defer f.log.mu.Unlock()
	return append([]string(nil), f.log.queries...)
}

func (f FakeConn) ConnStr() string {
	return "fake://"
}

func (f FakeConn) Dialect() string {
	return f.dialect
}
