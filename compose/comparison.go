package compose

// Aliases of the two datasets inside every composed query.
const (
	LeftAlias  = "diff_a"
	RightAlias = "diff_b"
)

const (
	// KeyDiff is the output column of a comparison telling whether the key
	// is absent on one side.
	KeyDiff = "key_diff"

	probeAlias  = "probe"
	filterAlias = "src"
)

// Output columns of KeySummary and RowSummary.
const (
	TotalKeys     = "total_keys"
	MatchingKeys  = "matching_keys"
	LeftOnlyKeys  = "left_only_keys"
	RightOnlyKeys = "right_only_keys"
	SideColumn    = "side"
	TotalRows     = "total_rows"
)

// Source is one side of a comparison: a query and an optional filter.
type Source struct {
	Query  string
	Filter string
}

// ColumnPair names a compared column on each side. Output columns are
// named after the left column.
type ColumnPair struct {
	Left  string
	Right string
}

func LeftName(c string) string  { return c + "_left" }
func RightName(c string) string { return c + "_right" }
func DiffName(c string) string  { return c + "_diff" }

func datasets(sources [2]Source) []CTE {
	return []CTE{
		{Name: LeftAlias, Query: sources[0].Query, Filter: sources[0].Filter},
		{Name: RightAlias, Query: sources[1].Query, Filter: sources[1].Filter},
	}
}

func join(keys [2]string) FullJoin {
	return FullJoin{Left: LeftAlias, LeftKey: keys[0], Right: RightAlias, RightKey: keys[1]}
}

// Probe selects expr from the source without returning any rows, so that
// executing it checks the query, the filter and the expression.
func Probe(src Source, expr Expr) Query {
	var where Expr = Bool(false)
	if src.Filter != "" {
		where = And{Bool(false), Raw{SQL: src.Filter}}
	}
	return Query{
		Selects: []Select{{
			Projections: []Projection{{Expr: expr}},
			From:        Subquery{Query: src.Query, Alias: probeAlias},
			Where:       where,
		}},
	}
}

// Schema is a probe returning all columns of the source and no rows.
func Schema(src Source) Query {
	return Probe(src, Star{})
}

// WithKeyPair returns columns with the key pair first, unless already
// present.
func WithKeyPair(keys [2]string, columns []ColumnPair) []ColumnPair {
	for _, c := range columns {
		if c.Left == keys[0] {
			return columns
		}
	}
	return append([]ColumnPair{{Left: keys[0], Right: keys[1]}}, columns...)
}

// Comparison full outer joins the two sources on their keys and returns,
// for each pair of columns, both values and whether they differ. Only rows
// where at least one column differs are returned, ordered by key.
//
// Output columns are LeftName, RightName and DiffName of each pair, then
// KeyDiff. Two NULLs are equal; a NULL and a value differ.
func Comparison(sources [2]Source, keys [2]string, columns []ColumnPair) Query {
	columns = WithKeyPair(keys, columns)
	sel := Select{From: join(keys)}
	var diffs Or
	for _, c := range columns {
		l := Column{Source: LeftAlias, Name: c.Left}
		r := Column{Source: RightAlias, Name: c.Right}
		diff := Case{
			When: Or{Eq{Left: l, Right: r}, And{IsNull{Expr: l}, IsNull{Expr: r}}},
			Then: Bool(false),
			Else: Bool(true),
		}
		sel.Projections = append(
			sel.Projections,
			Projection{Expr: l, As: LeftName(c.Left)},
			Projection{Expr: r, As: RightName(c.Left)},
			Projection{Expr: diff, As: DiffName(c.Left)},
		)
		diffs = append(diffs, diff)
	}
	l := Column{Source: LeftAlias, Name: keys[0]}
	r := Column{Source: RightAlias, Name: keys[1]}
	keyDiff := Case{When: Eq{Left: l, Right: r}, Then: Bool(false), Else: Bool(true)}
	sel.Projections = append(sel.Projections, Projection{Expr: keyDiff, As: KeyDiff})
	// Rows with a NULL key never join, so they are reported even when all
	// their columns are NULL.
	sel.Where = append(diffs, keyDiff)
	return Query{
		With:    datasets(sources),
		Selects: []Select{sel},
		OrderBy: []Expr{Coalesce{Column{Name: LeftName(keys[0])}, Column{Name: RightName(keys[0])}}},
	}
}

// KeySummary counts, over the same join as Comparison, the distinct keys,
// the matched keys and the keys present on only one side.
func KeySummary(sources [2]Source, keys [2]string) Query {
	l := Column{Source: LeftAlias, Name: keys[0]}
	r := Column{Source: RightAlias, Name: keys[1]}
	countIf := func(cond Expr) Expr {
		return Agg{Func: AggSum, Arg: Case{When: cond, Then: Int(1), Else: Int(0)}}
	}
	return Query{
		With: datasets(sources),
		Selects: []Select{{
			Projections: []Projection{
				{Expr: Agg{Func: AggCount, Distinct: true, Arg: Coalesce{l, r}}, As: TotalKeys},
				{Expr: countIf(Eq{Left: l, Right: r}), As: MatchingKeys},
				{Expr: countIf(And{IsNull{Expr: l, Not: true}, IsNull{Expr: r}}), As: LeftOnlyKeys},
				{Expr: countIf(And{IsNull{Expr: l}, IsNull{Expr: r, Not: true}}), As: RightOnlyKeys},
			},
			From: join(keys),
		}},
	}
}

// RowSummary counts the rows of each filtered source, one row per side
// tagged 0 (left) or 1 (right) in SideColumn.
func RowSummary(sources [2]Source) Query {
	q := Query{With: datasets(sources)}
	for i, alias := range []string{LeftAlias, RightAlias} {
		q.Selects = append(q.Selects, Select{
			Projections: []Projection{
				{Expr: Int(i), As: SideColumn},
				{Expr: Agg{Func: AggCount, Arg: Star{}}, As: TotalRows},
			},
			From: TableRef{Name: alias},
		})
	}
	return q
}
