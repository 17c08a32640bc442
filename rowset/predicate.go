package rowset

import (
	"fmt"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
)

type predicateOp int

const (
	opEq predicateOp = iota
	opIsNull
	opIsNotNull
)

// Predicate is a condition on a single column of a row.
type Predicate struct {
	Column string
	op     predicateOp
	value  tree.Datum
}

// Eq matches rows whose column equals v. Eq(c, tree.DNull) behaves like
// IsNull(c).
func Eq(column string, v tree.Datum) Predicate {
	if v == nil || v == tree.DNull {
		return IsNull(column)
	}
	return Predicate{Column: column, op: opEq, value: v}
}

// IsNull matches rows whose column is NULL.
func IsNull(column string) Predicate {
	return Predicate{Column: column, op: opIsNull}
}

// IsNotNull matches rows whose column is not NULL.
func IsNotNull(column string) Predicate {
	return Predicate{Column: column, op: opIsNotNull}
}

func (p Predicate) matches(d tree.Datum) bool {
	switch p.op {
	case opIsNull:
		return d == tree.DNull
	case opIsNotNull:
		return d != tree.DNull
	default:
		return Equal(d, p.value)
	}
}

func (p Predicate) String() string {
	switch p.op {
	case opIsNull:
		return fmt.Sprintf("%s IS NULL", p.Column)
	case opIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", p.Column)
	default:
		return fmt.Sprintf("%s = %s", p.Column, FormatDatum(p.value))
	}
}
