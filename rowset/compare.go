package rowset

import (
	"time"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/types"
)

// compareContext implements tree.CompareContext
type compareContext struct{}

func (c *compareContext) UnwrapDatum(d tree.Datum) tree.Datum {
	return d
}

func (c *compareContext) GetLocation() *time.Location {
	return time.UTC
}

func (c *compareContext) GetRelativeParseTime() time.Time {
	return time.Now().UTC()
}

func (c *compareContext) MustGetPlaceholderValue(p *tree.Placeholder) tree.Datum {
	return p
}

// CompareContext is used for all datum comparisons done locally.
var CompareContext tree.CompareContext = &compareContext{}

func numericFamily(f types.Family) bool {
	switch f {
	case types.IntFamily, types.FloatFamily, types.DecimalFamily:
		return true
	}
	return false
}

// Comparable reports whether a and b can be compared without the
// comparison panicking. NULL is comparable with everything.
func Comparable(a, b tree.Datum) bool {
	if a == tree.DNull || b == tree.DNull {
		return true
	}
	fa, fb := a.ResolvedType().Family(), b.ResolvedType().Family()
	return fa == fb || (numericFamily(fa) && numericFamily(fb))
}

// Equal reports whether a and b are non-NULL and equal. Datums of
// incomparable families are never equal.
func Equal(a, b tree.Datum) bool {
	if a == tree.DNull || b == tree.DNull || !Comparable(a, b) {
		return false
	}
	return a.Compare(CompareContext, b) == 0
}
