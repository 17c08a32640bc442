// Package datumconv converts driver values into tree.Datums so rows from
// every supported engine can be compared locally with the same rules.
package datumconv

import (
	"time"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/util/duration"
	"github.com/cockroachdb/cockroachdb-parser/pkg/util/timeutil/pgdate"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
)

// parseTimeContext is passed to the tree.ParseD* helpers.
type parseTimeContext struct{}

func (p parseTimeContext) GetCollationEnv() *tree.CollationEnvironment {
	return nil
}

func (p parseTimeContext) GetDateHelper() *pgdate.ParseHelper {
	return nil
}

func (p parseTimeContext) GetRelativeParseTime() time.Time {
	return time.Now().UTC()
}

func (p parseTimeContext) GetIntervalStyle() duration.IntervalStyle {
	return duration.IntervalStyle_POSTGRES
}

func (p parseTimeContext) GetDateStyle() pgdate.DateStyle {
	return pgdate.DefaultDateStyle()
}

var timeCtx = &parseTimeContext{}

func checkWidth[T any](vals []T, typOIDs []oid.Oid) error {
	if len(vals) != len(typOIDs) {
		return errors.AssertionFailedf("val length != oid length: %d vs %d", len(vals), len(typOIDs))
	}
	return nil
}
