// Package compose builds the queries a reconciliation run executes as
// dialect neutral plans, and renders them to SQL through a parser AST so
// user supplied fragments are never spliced into SQL text.
package compose

// Expr is a scalar expression in a plan.
type Expr interface {
	expr()
}

type (
	// Raw is a SQL expression supplied by the user, parsed when rendered.
	Raw struct{ SQL string }
	// Column references a column. An empty Source refers to an output
	// column of the query.
	Column struct{ Source, Name string }
	Bool   bool
	Int    int64
	// Star is `*`, only valid as a projection or a count argument.
	Star struct{}
	Eq   struct{ Left, Right Expr }
	IsNull struct {
		Expr Expr
		Not  bool
	}
	And      []Expr
	Or       []Expr
	Case     struct{ When, Then, Else Expr }
	Coalesce []Expr
	Agg      struct {
		Func     AggFunc
		Distinct bool
		Arg      Expr
	}
)

func (Raw) expr()      {}
func (Column) expr()   {}
func (Bool) expr()     {}
func (Int) expr()      {}
func (Star) expr()     {}
func (Eq) expr()       {}
func (IsNull) expr()   {}
func (And) expr()      {}
func (Or) expr()       {}
func (Case) expr()     {}
func (Coalesce) expr() {}
func (Agg) expr()      {}

type AggFunc string

const (
	AggCount AggFunc = "count"
	AggSum   AggFunc = "sum"
)

type Projection struct {
	Expr Expr
	As   string
}

// From is the source of a Select.
type From interface {
	from()
}

type (
	// TableRef references a common table expression.
	TableRef struct{ Name string }
	// Subquery is a user supplied query used as a derived table.
	Subquery struct{ Query, Alias string }
	// FullJoin is a full outer join of two common table expressions on
	// Right.RightKey = Left.LeftKey.
	FullJoin struct{ Left, LeftKey, Right, RightKey string }
)

func (TableRef) from() {}
func (Subquery) from() {}
func (FullJoin) from() {}

type Select struct {
	Projections []Projection
	From        From
	Where       Expr
}

// CTE is a named user query, optionally narrowed by a user predicate.
type CTE struct {
	Name   string
	Query  string
	Filter string
}

// Query is a set of selects combined with UNION ALL. OrderBy may only
// reference output columns.
type Query struct {
	With    []CTE
	Selects []Select
	OrderBy []Expr
}

// mapExpr rebuilds e bottom up, replacing each node with fn(node).
func mapExpr(e Expr, fn func(Expr) Expr) Expr {
	mapAll := func(exprs []Expr) []Expr {
		ret := make([]Expr, len(exprs))
		for i, sub := range exprs {
			ret[i] = mapExpr(sub, fn)
		}
		return ret
	}
	switch e := e.(type) {
	case nil:
		return nil
	case Eq:
		return fn(Eq{Left: mapExpr(e.Left, fn), Right: mapExpr(e.Right, fn)})
	case IsNull:
		return fn(IsNull{Expr: mapExpr(e.Expr, fn), Not: e.Not})
	case And:
		return fn(And(mapAll(e)))
	case Or:
		return fn(Or(mapAll(e)))
	case Case:
		return fn(Case{When: mapExpr(e.When, fn), Then: mapExpr(e.Then, fn), Else: mapExpr(e.Else, fn)})
	case Coalesce:
		return fn(Coalesce(mapAll(e)))
	case Agg:
		return fn(Agg{Func: e.Func, Distinct: e.Distinct, Arg: mapExpr(e.Arg, fn)})
	default:
		return fn(e)
	}
}

// resolveOutputs replaces references to s's output columns with the
// expressions producing them.
func (s Select) resolveOutputs(e Expr) Expr {
	return mapExpr(e, func(e Expr) Expr {
		if c, ok := e.(Column); ok && c.Source == "" {
			for _, p := range s.Projections {
				if p.As == c.Name {
					return p.Expr
				}
			}
		}
		return e
	})
}

// sourceColumns returns the distinct qualified columns referenced by the
// given expressions, in order of appearance.
func sourceColumns(exprs ...Expr) []Column {
	var ret []Column
	seen := map[Column]struct{}{}
	for _, e := range exprs {
		mapExpr(e, func(e Expr) Expr {
			if c, ok := e.(Column); ok && c.Source != "" {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					ret = append(ret, c)
				}
			}
			return e
		})
	}
	return ret
}
