package compose

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/parser"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree/treecmp"
	"github.com/cockroachdb/errors"
)

type postgresDialect struct{}

func (postgresDialect) Name() string {
	return "postgres"
}

func (postgresDialect) Render(q Query) (string, error) {
	r := &pgRenderer{}
	stmt, err := r.query(q)
	if err != nil {
		return "", err
	}
	f := tree.NewFmtCtx(tree.FmtParsableNumerics)
	f.FormatNode(stmt)
	return r.splice(f.CloseAndGetString()), nil
}

// pgRenderer renders a Query. User queries and filters are parsed to
// check that they are a single SELECT or expression, but their original
// text is what ends up in the output: the parser prints CockroachDB type
// names which PostgreSQL and SQLite reject.
type pgRenderer struct {
	// replacements holds placeholder, text pairs for strings.NewReplacer.
	replacements []string
}

func (r *pgRenderer) placeholder() string {
	return fmt.Sprintf("differ_user_sql_%d_", len(r.replacements)/2)
}

func (r *pgRenderer) replace(old, text string) {
	r.replacements = append(r.replacements, old, text)
}

func (r *pgRenderer) splice(sql string) string {
	if len(r.replacements) == 0 {
		return sql
	}
	return strings.NewReplacer(r.replacements...).Replace(sql)
}

// userText trims sql for embedding inside parentheses.
func userText(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	if lines := strings.Split(sql, "\n"); strings.Contains(lines[len(lines)-1], "--") {
		sql += "\n"
	}
	return sql
}

func (r *pgRenderer) query(q Query) (*tree.Select, error) {
	if len(q.Selects) == 0 {
		return nil, errors.AssertionFailedf("query has no selects")
	}
	var body tree.SelectStatement
	for i, s := range q.Selects {
		clause, err := r.selectClause(s)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			body = clause
			continue
		}
		body = &tree.UnionClause{
			Type:  tree.UnionOp,
			Left:  &tree.Select{Select: body},
			Right: &tree.Select{Select: clause},
			All:   true,
		}
	}
	ret := &tree.Select{Select: body}
	if len(q.With) > 0 {
		with, err := r.with(q.With)
		if err != nil {
			return nil, err
		}
		ret.With = with
	}
	if len(q.OrderBy) == 0 {
		return ret, nil
	}
	orderBy := append([]Expr(nil), q.OrderBy...)
	if len(q.Selects) == 1 {
		for i, e := range orderBy {
			orderBy[i] = q.Selects[0].resolveOutputs(e)
		}
	} else {
		// Order the union through a derived table so the order can use
		// expressions over the output columns.
		ret.Select = &tree.SelectClause{
			Exprs: tree.SelectExprs{tree.StarSelectExpr()},
			From:  tree.From{Tables: tree.TableExprs{pgDerivedTable(&tree.Select{Select: body}, "ordered")}},
		}
	}
	for _, e := range orderBy {
		expr, err := r.expr(e)
		if err != nil {
			return nil, err
		}
		ret.OrderBy = append(ret.OrderBy, &tree.Order{Expr: expr})
	}
	return ret, nil
}

func (r *pgRenderer) with(ctes []CTE) (*tree.With, error) {
	ret := &tree.With{}
	for _, cte := range ctes {
		stmt, err := r.parseSelect(cte.Query)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing query for %s", cte.Name)
		}
		if cte.Filter != "" {
			filter, err := r.parseExpr(cte.Filter)
			if err != nil {
				return nil, errors.Wrapf(err, "error parsing filter for %s", cte.Name)
			}
			stmt = &tree.Select{
				Select: &tree.SelectClause{
					Exprs: tree.SelectExprs{tree.StarSelectExpr()},
					From:  tree.From{Tables: tree.TableExprs{pgDerivedTable(stmt, filterAlias)}},
					Where: tree.NewWhere(tree.AstWhere, filter),
				},
			}
		}
		ret.CTEList = append(ret.CTEList, &tree.CTE{
			Name: tree.AliasClause{Alias: tree.Name(cte.Name)},
			Stmt: stmt,
		})
	}
	return ret, nil
}

// parseSelect checks sql is a single SELECT and returns a statement that
// renders as a placeholder for its text.
func (r *pgRenderer) parseSelect(sql string) (*tree.Select, error) {
	p, err := parser.ParseOne(sql)
	if err != nil {
		return nil, err
	}
	switch p.AST.(type) {
	case *tree.Select, *tree.ParenSelect:
	default:
		return nil, errors.Newf("expected a SELECT statement, got %s", p.AST.StatementTag())
	}
	name := r.placeholder()
	r.replace("SELECT * FROM "+name, userText(sql))
	return &tree.Select{
		Select: &tree.SelectClause{
			Exprs: tree.SelectExprs{tree.StarSelectExpr()},
			From:  tree.From{Tables: tree.TableExprs{pgTable(name)}},
		},
	}, nil
}

func (r *pgRenderer) parseExpr(sql string) (tree.Expr, error) {
	if _, err := parser.ParseExpr(sql); err != nil {
		return nil, err
	}
	name := r.placeholder()
	r.replace(name, "("+userText(sql)+")")
	return tree.NewUnresolvedName(name), nil
}

func pgDerivedTable(sel *tree.Select, alias string) tree.TableExpr {
	return &tree.AliasedTableExpr{
		Expr: &tree.Subquery{Select: &tree.ParenSelect{Select: sel}},
		As:   tree.AliasClause{Alias: tree.Name(alias)},
	}
}

func pgTable(name string) tree.TableExpr {
	return tree.NewUnqualifiedTableName(tree.Name(name))
}

func (r *pgRenderer) selectClause(s Select) (*tree.SelectClause, error) {
	ret := &tree.SelectClause{}
	for _, p := range s.Projections {
		if _, ok := p.Expr.(Star); ok {
			ret.Exprs = append(ret.Exprs, tree.StarSelectExpr())
			continue
		}
		expr, err := r.expr(p.Expr)
		if err != nil {
			return nil, err
		}
		ret.Exprs = append(ret.Exprs, tree.SelectExpr{Expr: expr, As: tree.UnrestrictedName(p.As)})
	}
	switch from := s.From.(type) {
	case TableRef:
		ret.From.Tables = tree.TableExprs{pgTable(from.Name)}
	case Subquery:
		sel, err := r.parseSelect(from.Query)
		if err != nil {
			return nil, errors.Wrap(err, "error parsing query")
		}
		ret.From.Tables = tree.TableExprs{pgDerivedTable(sel, from.Alias)}
	case FullJoin:
		on, err := r.expr(Eq{
			Left:  Column{Source: from.Right, Name: from.RightKey},
			Right: Column{Source: from.Left, Name: from.LeftKey},
		})
		if err != nil {
			return nil, err
		}
		ret.From.Tables = tree.TableExprs{&tree.JoinTableExpr{
			JoinType: tree.AstFull,
			Left:     pgTable(from.Left),
			Right:    pgTable(from.Right),
			Cond:     &tree.OnJoinCond{Expr: on},
		}}
	default:
		return nil, errors.AssertionFailedf("unknown from %T", s.From)
	}
	if s.Where != nil {
		where, err := r.expr(s.Where)
		if err != nil {
			return nil, err
		}
		ret.Where = tree.NewWhere(tree.AstWhere, where)
	}
	return ret, nil
}

func (r *pgRenderer) exprs(exprs []Expr) (tree.Exprs, error) {
	ret := make(tree.Exprs, len(exprs))
	for i, e := range exprs {
		var err error
		if ret[i], err = r.expr(e); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (r *pgRenderer) expr(e Expr) (tree.Expr, error) {
	switch e := e.(type) {
	case Raw:
		return r.parseExpr(e.SQL)
	case Column:
		if e.Source == "" {
			return tree.NewUnresolvedName(e.Name), nil
		}
		return tree.NewUnresolvedName(e.Source, e.Name), nil
	case Bool:
		return tree.MakeDBool(tree.DBool(e)), nil
	case Int:
		return tree.NewDInt(tree.DInt(e)), nil
	case Star:
		return tree.StarExpr(), nil
	case Eq:
		left, err := r.expr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.expr(e.Right)
		if err != nil {
			return nil, err
		}
		return &tree.ComparisonExpr{
			Operator: treecmp.MakeComparisonOperator(treecmp.EQ),
			Left:     left,
			Right:    right,
		}, nil
	case IsNull:
		x, err := r.expr(e.Expr)
		if err != nil {
			return nil, err
		}
		if e.Not {
			return &tree.IsNotNullExpr{Expr: x}, nil
		}
		return &tree.IsNullExpr{Expr: x}, nil
	case And:
		exprs, err := r.exprs(e)
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			return tree.DBoolTrue, nil
		}
		ret := exprs[0]
		for _, next := range exprs[1:] {
			ret = &tree.AndExpr{Left: ret, Right: next}
		}
		return ret, nil
	case Or:
		exprs, err := r.exprs(e)
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			return tree.DBoolFalse, nil
		}
		ret := exprs[0]
		for _, next := range exprs[1:] {
			ret = &tree.OrExpr{Left: ret, Right: next}
		}
		return ret, nil
	case Case:
		exprs, err := r.exprs([]Expr{e.When, e.Then, e.Else})
		if err != nil {
			return nil, err
		}
		return &tree.CaseExpr{
			Whens: []*tree.When{{Cond: exprs[0], Val: exprs[1]}},
			Else:  exprs[2],
		}, nil
	case Coalesce:
		exprs, err := r.exprs(e)
		if err != nil {
			return nil, err
		}
		return &tree.CoalesceExpr{Name: "COALESCE", Exprs: exprs}, nil
	case Agg:
		arg, err := r.expr(e.Arg)
		if err != nil {
			return nil, err
		}
		fe := &tree.FuncExpr{
			Func:  tree.ResolvableFunctionReference{FunctionReference: tree.NewUnresolvedName(string(e.Func))},
			Exprs: tree.Exprs{arg},
		}
		if e.Distinct {
			fe.Type = tree.DistinctFuncType
		}
		return fe, nil
	}
	return nil, errors.AssertionFailedf("unknown expression %T", e)
}
