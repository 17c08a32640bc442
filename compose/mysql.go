package compose

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/model"
	"github.com/pingcap/tidb/parser/opcode"
	_ "github.com/pingcap/tidb/types/parser_driver"
)

const joinedAlias = "joined"

type mysqlDialect struct{}

func (mysqlDialect) Name() string {
	return "mysql"
}

func (mysqlDialect) Render(q Query) (string, error) {
	stmt, err := mysqlQuery(q)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := stmt.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "", errors.Wrap(err, "error generating MySQL statement")
	}
	return sb.String(), nil
}

func mysqlQuery(q Query) (ast.Node, error) {
	if len(q.Selects) == 0 {
		return nil, errors.AssertionFailedf("query has no selects")
	}
	var with *ast.WithClause
	if len(q.With) > 0 {
		var err error
		if with, err = mysqlWith(q.With); err != nil {
			return nil, err
		}
	}
	if len(q.Selects) == 1 {
		orderBy := make([]Expr, len(q.OrderBy))
		for i, e := range q.OrderBy {
			orderBy[i] = q.Selects[0].resolveOutputs(e)
		}
		sel, err := mysqlSelect(q.Selects[0], orderBy)
		if err != nil {
			return nil, err
		}
		sel.With = with
		return sel, nil
	}
	union, err := mysqlUnion(q.Selects)
	if err != nil {
		return nil, err
	}
	if len(q.OrderBy) == 0 {
		union.With = with
		return union, nil
	}
	// Order the union through a derived table so the order can use
	// expressions over the output columns.
	orderBy, err := mysqlOrderBy(q.OrderBy)
	if err != nil {
		return nil, err
	}
	ret := mysqlNewSelect(mysqlWildcard(), mysqlFrom(&ast.TableSource{Source: union, AsName: model.NewCIStr("ordered")}))
	ret.With = with
	ret.OrderBy = orderBy
	return ret, nil
}

func mysqlUnion(selects []Select) (*ast.SetOprStmt, error) {
	list := &ast.SetOprSelectList{}
	for i, s := range selects {
		sel, err := mysqlSelect(s, nil)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			unionAll := ast.UnionAll
			sel.AfterSetOperator = &unionAll
		}
		list.Selects = append(list.Selects, sel)
	}
	return &ast.SetOprStmt{SelectList: list}, nil
}

func mysqlWith(ctes []CTE) (*ast.WithClause, error) {
	ret := &ast.WithClause{}
	for _, cte := range ctes {
		rs, err := mysqlParseSelect(cte.Query)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing query for %s", cte.Name)
		}
		if cte.Filter != "" {
			filter, err := mysqlParseExpr(cte.Filter)
			if err != nil {
				return nil, errors.Wrapf(err, "error parsing filter for %s", cte.Name)
			}
			sel := mysqlNewSelect(mysqlWildcard(), mysqlFrom(&ast.TableSource{Source: rs, AsName: model.NewCIStr(filterAlias)}))
			sel.Where = filter
			rs = sel
		}
		ret.CTEs = append(ret.CTEs, &ast.CommonTableExpression{
			Name:  model.NewCIStr(cte.Name),
			Query: &ast.SubqueryExpr{Query: rs},
		})
	}
	return ret, nil
}

func mysqlParseSelect(sql string) (ast.ResultSetNode, error) {
	stmt, err := parser.New().ParseOneStmt(sql, "", "")
	if err != nil {
		return nil, err
	}
	switch stmt := stmt.(type) {
	case *ast.SelectStmt:
		return stmt, nil
	case *ast.SetOprStmt:
		return stmt, nil
	}
	return nil, errors.Newf("expected a SELECT statement, got %T", stmt)
}

// mysqlParseExpr parses a single expression by parsing it as the only
// field of a SELECT.
func mysqlParseExpr(sql string) (ast.ExprNode, error) {
	stmt, err := parser.New().ParseOneStmt("SELECT "+sql, "", "")
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*ast.SelectStmt)
	if !ok ||
		sel.From != nil ||
		sel.Where != nil ||
		sel.GroupBy != nil ||
		sel.Having != nil ||
		sel.OrderBy != nil ||
		sel.Limit != nil ||
		sel.Fields == nil ||
		len(sel.Fields.Fields) != 1 ||
		sel.Fields.Fields[0].WildCard != nil ||
		sel.Fields.Fields[0].AsName.L != "" {
		return nil, errors.Newf("expected a single expression: %s", sql)
	}
	return &ast.ParenthesesExpr{Expr: sel.Fields.Fields[0].Expr}, nil
}

// mysqlNewSelect returns a SELECT with the options the parser sets by
// default; Restore expects them to be present.
func mysqlNewSelect(fields *ast.FieldList, from *ast.TableRefsClause) *ast.SelectStmt {
	return &ast.SelectStmt{
		Kind:           ast.SelectStmtKindSelect,
		SelectStmtOpts: &ast.SelectStmtOpts{SQLCache: true},
		Fields:         fields,
		From:           from,
	}
}

func mysqlWildcard() *ast.FieldList {
	return &ast.FieldList{Fields: []*ast.SelectField{{WildCard: &ast.WildCardField{}}}}
}

func mysqlFrom(left ast.ResultSetNode) *ast.TableRefsClause {
	return &ast.TableRefsClause{TableRefs: &ast.Join{Left: left}}
}

func mysqlTable(name string) *ast.TableSource {
	return &ast.TableSource{Source: &ast.TableName{Name: model.NewCIStr(name)}}
}

func mysqlOrderBy(exprs []Expr) (*ast.OrderByClause, error) {
	ret := &ast.OrderByClause{}
	for _, e := range exprs {
		expr, err := mysqlExpr(e)
		if err != nil {
			return nil, err
		}
		ret.Items = append(ret.Items, &ast.ByItem{Expr: expr})
	}
	return ret, nil
}

// mysqlSelect renders s ordered by orderBy, which may reference the
// sources of s. MySQL has no FULL JOIN, so a FullJoin is rendered as a
// derived table of the LEFT JOIN rows and the RIGHT JOIN rows that had no
// left match, exposing every column s references.
func mysqlSelect(s Select, orderBy []Expr) (*ast.SelectStmt, error) {
	ret := mysqlNewSelect(&ast.FieldList{}, nil)
	if fj, ok := s.From.(FullJoin); ok {
		exprs := []Expr{s.Where}
		for _, p := range s.Projections {
			exprs = append(exprs, p.Expr)
		}
		exprs = append(exprs, orderBy...)
		refs := sourceColumns(exprs...)
		derived, err := mysqlFullJoin(fj, refs)
		if err != nil {
			return nil, err
		}
		ret.From = mysqlFrom(&ast.TableSource{Source: derived, AsName: model.NewCIStr(joinedAlias)})
		rewrite := func(e Expr) Expr {
			return mapExpr(e, func(e Expr) Expr {
				if c, ok := e.(Column); ok && c.Source != "" {
					return Column{Source: joinedAlias, Name: joinedName(c)}
				}
				return e
			})
		}
		rewritten := Select{Where: rewrite(s.Where)}
		for _, p := range s.Projections {
			rewritten.Projections = append(rewritten.Projections, Projection{Expr: rewrite(p.Expr), As: p.As})
		}
		s = rewritten
		for i := range orderBy {
			orderBy[i] = rewrite(orderBy[i])
		}
	} else {
		from, err := mysqlSource(s.From)
		if err != nil {
			return nil, err
		}
		ret.From = from
	}

	for _, p := range s.Projections {
		if _, ok := p.Expr.(Star); ok {
			ret.Fields.Fields = append(ret.Fields.Fields, &ast.SelectField{WildCard: &ast.WildCardField{}})
			continue
		}
		expr, err := mysqlExpr(p.Expr)
		if err != nil {
			return nil, err
		}
		ret.Fields.Fields = append(ret.Fields.Fields, &ast.SelectField{Expr: expr, AsName: model.NewCIStr(p.As)})
	}
	if s.Where != nil {
		where, err := mysqlExpr(s.Where)
		if err != nil {
			return nil, err
		}
		ret.Where = where
	}
	if len(orderBy) > 0 {
		var err error
		if ret.OrderBy, err = mysqlOrderBy(orderBy); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func mysqlSource(from From) (*ast.TableRefsClause, error) {
	switch from := from.(type) {
	case TableRef:
		return mysqlFrom(mysqlTable(from.Name)), nil
	case Subquery:
		rs, err := mysqlParseSelect(from.Query)
		if err != nil {
			return nil, errors.Wrap(err, "error parsing query")
		}
		return mysqlFrom(&ast.TableSource{Source: rs, AsName: model.NewCIStr(from.Alias)}), nil
	}
	return nil, errors.AssertionFailedf("unknown from %T", from)
}

func joinedName(c Column) string {
	return c.Source + "_" + c.Name
}

func mysqlFullJoin(fj FullJoin, refs []Column) (*ast.SetOprStmt, error) {
	on, err := mysqlExpr(Eq{
		Left:  Column{Source: fj.Right, Name: fj.RightKey},
		Right: Column{Source: fj.Left, Name: fj.LeftKey},
	})
	if err != nil {
		return nil, err
	}
	leftMissing, err := mysqlExpr(IsNull{Expr: Column{Source: fj.Left, Name: fj.LeftKey}})
	if err != nil {
		return nil, err
	}
	part := func(tp ast.JoinType) (*ast.SelectStmt, error) {
		sel := mysqlNewSelect(&ast.FieldList{}, &ast.TableRefsClause{TableRefs: &ast.Join{
			Left:  mysqlTable(fj.Left),
			Right: mysqlTable(fj.Right),
			Tp:    tp,
			On:    &ast.OnCondition{Expr: on},
		}})
		for _, c := range refs {
			expr, err := mysqlExpr(c)
			if err != nil {
				return nil, err
			}
			sel.Fields.Fields = append(sel.Fields.Fields, &ast.SelectField{
				Expr:   expr,
				AsName: model.NewCIStr(joinedName(c)),
			})
		}
		if len(refs) == 0 {
			sel.Fields.Fields = append(sel.Fields.Fields, &ast.SelectField{Expr: ast.NewValueExpr(int64(1), "", "")})
		}
		return sel, nil
	}
	left, err := part(ast.LeftJoin)
	if err != nil {
		return nil, err
	}
	right, err := part(ast.RightJoin)
	if err != nil {
		return nil, err
	}
	right.Where = leftMissing
	unionAll := ast.UnionAll
	right.AfterSetOperator = &unionAll
	return &ast.SetOprStmt{SelectList: &ast.SetOprSelectList{Selects: []ast.Node{left, right}}}, nil
}

func mysqlExprs(exprs []Expr) ([]ast.ExprNode, error) {
	ret := make([]ast.ExprNode, len(exprs))
	for i, e := range exprs {
		var err error
		if ret[i], err = mysqlExpr(e); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func mysqlBinary(op opcode.Op, l, r ast.ExprNode) ast.ExprNode {
	return &ast.ParenthesesExpr{Expr: &ast.BinaryOperationExpr{Op: op, L: l, R: r}}
}

func mysqlExpr(e Expr) (ast.ExprNode, error) {
	switch e := e.(type) {
	case Raw:
		return mysqlParseExpr(e.SQL)
	case Column:
		name := &ast.ColumnName{Name: model.NewCIStr(e.Name)}
		if e.Source != "" {
			name.Table = model.NewCIStr(e.Source)
		}
		return &ast.ColumnNameExpr{Name: name}, nil
	case Bool:
		// MySQL booleans are integers.
		if e {
			return ast.NewValueExpr(int64(1), "", ""), nil
		}
		return ast.NewValueExpr(int64(0), "", ""), nil
	case Int:
		return ast.NewValueExpr(int64(e), "", ""), nil
	case Eq:
		l, err := mysqlExpr(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := mysqlExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return mysqlBinary(opcode.EQ, l, r), nil
	case IsNull:
		x, err := mysqlExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		return &ast.ParenthesesExpr{Expr: &ast.IsNullExpr{Expr: x, Not: e.Not}}, nil
	case And, Or:
		op, terms, empty := opcode.LogicAnd, []Expr(nil), int64(1)
		if or, ok := e.(Or); ok {
			op, terms, empty = opcode.LogicOr, or, 0
		} else {
			terms = e.(And)
		}
		exprs, err := mysqlExprs(terms)
		if err != nil {
			return nil, err
		}
		if len(exprs) == 0 {
			return ast.NewValueExpr(empty, "", ""), nil
		}
		ret := exprs[0]
		for _, next := range exprs[1:] {
			ret = mysqlBinary(op, ret, next)
		}
		return ret, nil
	case Case:
		exprs, err := mysqlExprs([]Expr{e.When, e.Then, e.Else})
		if err != nil {
			return nil, err
		}
		return &ast.CaseExpr{
			WhenClauses: []*ast.WhenClause{{Expr: exprs[0], Result: exprs[1]}},
			ElseClause:  exprs[2],
		}, nil
	case Coalesce:
		args, err := mysqlExprs(e)
		if err != nil {
			return nil, err
		}
		return &ast.FuncCallExpr{FnName: model.NewCIStr(ast.Coalesce), Args: args}, nil
	case Agg:
		var arg ast.ExprNode
		if _, ok := e.Arg.(Star); ok {
			arg = ast.NewValueExpr(int64(1), "", "")
		} else {
			var err error
			if arg, err = mysqlExpr(e.Arg); err != nil {
				return nil, err
			}
		}
		f := ast.AggFuncCount
		if e.Func == AggSum {
			f = ast.AggFuncSum
		}
		return &ast.AggregateFuncExpr{F: f, Args: []ast.ExprNode{arg}, Distinct: e.Distinct}, nil
	case Star:
		return nil, errors.AssertionFailedf("* is only valid as a projection")
	}
	return nil, errors.AssertionFailedf("unknown expression %T", e)
}
