package reconcile

import (
	"context"

	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/report"
	"golang.org/x/sync/errgroup"
)

type ReconcileOpt func(*reconcileOpts)

type reconcileOpts struct {
	concurrent          bool
	allowSchemaMismatch bool
	queriesPerSecond    float64
	reporter            report.Reporter
}

// WithConcurrency runs the per-side probes and the summary queries in
// parallel, each on a cloned connection.
func WithConcurrency(c bool) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.concurrent = c
	}
}

// WithAllowSchemaMismatch compares only the shared columns instead of
// failing when the two datasets have different columns.
func WithAllowSchemaMismatch(allow bool) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.allowSchemaMismatch = allow
	}
}

func WithQueriesPerSecond(qps float64) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.queriesPerSecond = qps
	}
}

// WithReporter receives validation failures and schema mismatches as they
// are found.
func WithReporter(r report.Reporter) ReconcileOpt {
	return func(o *reconcileOpts) {
		o.reporter = r
	}
}

func makeOpts(opts []ReconcileOpt) reconcileOpts {
	var o reconcileOpts
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	return o
}

func (o reconcileOpts) report(obj report.ReportableObject) {
	if o.reporter != nil {
		o.reporter.Report(obj)
	}
}

// forEachSide calls fn for the left then the right side, or for both at once
// on cloned connections when concurrency is on.
func (o reconcileOpts) forEachSide(
	ctx context.Context, conn dbconn.Conn, fn func(ctx context.Context, conn dbconn.Conn, side Side) error,
) error {
	if !o.concurrent {
		for _, side := range sides {
			if err := fn(ctx, conn, side); err != nil {
				return err
			}
		}
		return nil
	}
	return o.parallel(ctx, conn, func(ctx context.Context, conn dbconn.Conn) error {
		return fn(ctx, conn, Left)
	}, func(ctx context.Context, conn dbconn.Conn) error {
		return fn(ctx, conn, Right)
	})
}

// parallel runs each fn on its own clone of conn.
func (o reconcileOpts) parallel(
	ctx context.Context, conn dbconn.Conn, fns ...func(ctx context.Context, conn dbconn.Conn) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			clone, err := conn.Clone(gctx)
			if err != nil {
				return executionFailed(err, "error cloning connection %s", conn.ID())
			}
			defer func() { _ = clone.Close(ctx) }()
			return fn(gctx, clone)
		})
	}
	return g.Wait()
}
