package dbconn

import (
	"context"
	"time"

	"github.com/cockroachdb/differ/rowset"
	"golang.org/x/time/rate"
)

type rateLimitedConn struct {
	Conn
	limiter *rate.Limiter
}

// RateLimited wraps conn so Query runs at most queriesPerSecond times a
// second. Clones share the limit. A non-positive rate returns conn as is.
func RateLimited(conn Conn, queriesPerSecond float64) Conn {
	if queriesPerSecond <= 0 {
		return conn
	}
	return &rateLimitedConn{
		Conn:    conn,
		limiter: rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/queriesPerSecond)), 1),
	}
}

func (c *rateLimitedConn) Query(ctx context.Context, q string) (*rowset.Table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.Conn.Query(ctx, q)
}

func (c *rateLimitedConn) Clone(ctx context.Context) (Conn, error) {
	inner, err := c.Conn.Clone(ctx)
	if err != nil {
		return nil, err
	}
	return &rateLimitedConn{Conn: inner, limiter: c.limiter}, nil
}
