package reconcile

import (
	"context"

	"github.com/cockroachdb/differ/compose"
	"github.com/cockroachdb/differ/dbconn"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// discoverColumns returns the output columns of each dataset.
func discoverColumns(
	ctx context.Context, conn dbconn.Conn, logger zerolog.Logger, o reconcileOpts, datasets [2]Dataset,
) ([2][]string, error) {
	var columns [2][]string
	err := o.forEachSide(ctx, conn, func(ctx context.Context, conn dbconn.Conn, side Side) error {
		d := datasets[side]
		tbl, err := probe(ctx, conn, queryKindSchema, compose.Star{}, d.source())
		if err != nil {
			return executionFailed(err, "error discovering columns of %s", d.Label)
		}
		columns[side] = tbl.Columns
		logger.Debug().
			Str("side", side.String()).
			Strs("columns", tbl.Columns).
			Msg("discovered columns")
		return nil
	})
	return columns, err
}

// resolveColumn finds name among columns, preferring an exact match over a
// case-insensitive one.
func resolveColumn(columns []string, name string) (string, bool) {
	for _, c := range columns {
		if c == name {
			return c, true
		}
	}
	fold := cases.Fold()
	target := fold.String(name)
	for _, c := range columns {
		if fold.String(c) == target {
			return c, true
		}
	}
	return "", false
}

// resolveKeys replaces each key with the actual name of its column.
func resolveKeys(o reconcileOpts, datasets [2]Dataset, columns [2][]string) ([2]Dataset, error) {
	var failed [2]*ValidationError
	for _, side := range sides {
		d := &datasets[side]
		resolved, ok := resolveColumn(columns[side], d.Key)
		if !ok {
			failed[side] = &ValidationError{Side: side, Label: d.Label, Kind: ErrInvalidKey, Value: d.Key}
			continue
		}
		d.Key = resolved
	}
	return datasets, collectFailures(o, ErrInvalidKey, failed)
}

// pairColumns matches the right columns to the left ones. The keys always
// pair with each other and come first.
func pairColumns(
	datasets [2]Dataset, columns [2][]string,
) (pairs []compose.ColumnPair, leftOnly []string, rightOnly []string) {
	leftKey, rightKey := datasets[0].Key, datasets[1].Key
	pairs = []compose.ColumnPair{{Left: leftKey, Right: rightKey}}
	var candidates []string
	for _, c := range columns[1] {
		if c != rightKey {
			candidates = append(candidates, c)
		}
	}
	used := make(map[string]bool)
	for _, l := range columns[0] {
		if l == leftKey {
			continue
		}
		r, ok := resolveColumn(candidates, l)
		if !ok || used[r] {
			leftOnly = append(leftOnly, l)
			continue
		}
		used[r] = true
		pairs = append(pairs, compose.ColumnPair{Left: l, Right: r})
	}
	for _, r := range candidates {
		if !used[r] {
			rightOnly = append(rightOnly, r)
		}
	}
	return pairs, leftOnly, rightOnly
}
