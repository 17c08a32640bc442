package reconcile

import (
	"context"

	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/cockroachdb/differ/report"
	"github.com/cockroachdb/differ/rowset"
	"github.com/rs/zerolog"
)

// Validate reports whether expression can be selected from sourceQuery with
// the optional filter applied. Nothing is returned by the probe; any parse,
// render or execution failure yields false.
func Validate(ctx context.Context, conn dbconn.Conn, expression, sourceQuery, filter string) bool {
	_, err := probe(ctx, conn, queryKindProbe, compose.Raw{SQL: expression}, compose.Source{Query: sourceQuery, Filter: filter})
	return err == nil
}

func probe(
	ctx context.Context, conn dbconn.Conn, kind string, expr compose.Expr, src compose.Source,
) (*rowset.Table, error) {
	q, err := compose.DialectFor(conn.Dialect()).Render(compose.Probe(src, expr))
	if err != nil {
		observeQuery(kind, err)
		return nil, err
	}
	tbl, err := conn.Query(ctx, q)
	observeQuery(kind, err)
	return tbl, err
}

// Check validates the queries of both datasets, then their keys, without
// comparing them. Failures are returned as *ValidationErrors.
func Check(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, datasets [2]Dataset, opts ...ReconcileOpt,
) error {
	o := makeOpts(opts)
	conn = dbconn.RateLimited(conn, o.queriesPerSecond)
	return validate(ctx, conn, logger, o, normalizeDatasets(datasets))
}

// validate checks the keys only once both queries are valid.
func validate(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, o reconcileOpts, datasets [2]Dataset,
) error {
	if err := validateField(ctx, conn, logger, o, datasets, ErrInvalidQuery); err != nil {
		return err
	}
	return validateField(ctx, conn, logger, o, datasets, ErrInvalidKey)
}

// validateField probes one field of each dataset and collects the failures.
func validateField(
	ctx context.Context,
	conn dbconn.Conn,
	logger zerolog.Logger,
	o reconcileOpts,
	datasets [2]Dataset,
	kind error,
) error {
	var failed [2]*ValidationError
	if err := o.forEachSide(ctx, conn, func(ctx context.Context, conn dbconn.Conn, side Side) error {
		d := datasets[side]
		expression, value := "true", d.Query
		if kind == ErrInvalidKey {
			expression, value = d.Key, d.Key
		}
		ok := value != "" && Validate(ctx, conn, expression, d.Query, d.Filter)
		logger.Debug().
			Str("side", side.String()).
			Str("label", d.Label).
			Bool("valid", ok).
			Msgf("validated %s", fieldName(kind))
		if !ok {
			failed[side] = &ValidationError{Side: side, Label: d.Label, Kind: kind, Value: value}
		}
		return nil
	}); err != nil {
		return err
	}
	return collectFailures(o, kind, failed)
}

func collectFailures(o reconcileOpts, kind error, failed [2]*ValidationError) error {
	verr := &ValidationErrors{Kind: kind}
	for _, f := range failed {
		if f == nil {
			continue
		}
		verr.Errors = append(verr.Errors, f)
		o.report(report.InvalidInput{
			Side:  f.Side.String(),
			Label: f.Label,
			Field: f.Field(),
			Value: f.Value,
		})
	}
	if len(verr.Errors) == 0 {
		return nil
	}
	return verr
}

func fieldName(kind error) string {
	return (&ValidationError{Kind: kind}).Field()
}
