package planner

import (
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
)

// compileReturn lowers a terminal RETURN clause into the final stage of
// the operator tree: aggregation (if any item aggregates), ORDER BY,
// projection, DISTINCT, SKIP and LIMIT, in that order.
func (p *planner) compileReturn(c parser.ReturnClause, root operator.Op) (operator.Op, []string, error) {
	if root == nil {
		root = &operator.SingleRow{Width: 0}
	}
	return p.compileProjection(c.Items, c.Distinct, nil, c.OrderBy, c.Skip, c.Limit, root)
}

// compileWith lowers a WITH clause the same way RETURN is lowered, except
// the clause doesn't end the query: afterward the planner's Scope is
// replaced so only WITH's own output columns remain visible to later
// clauses (WITH is Cypher's scope horizon).
func (p *planner) compileWith(c parser.WithClause, root operator.Op) (operator.Op, []string, error) {
	if root == nil {
		root = &operator.SingleRow{Width: 0}
	}
	items := c.Items
	root, columns, err := p.compileProjection(items, c.Distinct, c.Where, nil, nil, nil, root)
	if err != nil {
		return nil, nil, err
	}
	ns := operator.NewScope()
	for _, name := range columns {
		ns.Bind(name)
	}
	p.scope = ns
	return root, columns, nil
}

// compileProjection implements the RETURN/WITH projection pipeline shared
// by both clauses. where/orderBy are compiled against the scope active
// just before the final column projection (the pre-aggregate Scope, or a
// synthetic post-aggregate one), with any bare-variable reference to an
// item's own alias resolved to that item's expression first - this is how
// `WITH n.age AS age WHERE age > 10` and `RETURN count(*) AS c ORDER BY c`
// see their own aliases.
func (p *planner) compileProjection(items []parser.ReturnItem, distinct bool, where parser.Expr, orderBy []parser.OrderItem, skip, limit *int64, root operator.Op) (operator.Op, []string, error) {
	hasAgg := false
	for _, it := range items {
		if containsAggregate(it.Expr) {
			hasAgg = true
			break
		}
	}

	columns := make([]string, len(items))
	for i, it := range items {
		columns[i] = columnName(it)
	}

	aliases := map[string]parser.Expr{}
	preScope := p.scope

	if hasAgg {
		var groupExprs []operator.CompiledExpr
		var aggs []operator.AggSpec
		isAgg := make([]bool, len(items))
		slotOf := make([]int, len(items))

		for i, it := range items {
			if ac, ok := it.Expr.(parser.AggregateCall); ok {
				spec := operator.AggSpec{Func: ac.Func, Distinct: ac.Distinct, Star: ac.Star}
				if ac.Arg != nil {
					spec.Arg = operator.Compile(ac.Arg, preScope)
					spec.HasArg = true
				}
				isAgg[i] = true
				slotOf[i] = len(aggs)
				aggs = append(aggs, spec)
			} else {
				groupExprs = append(groupExprs, operator.Compile(it.Expr, preScope))
				slotOf[i] = len(groupExprs) - 1
			}
		}

		root = &operator.Aggregate{Input: root, GroupExprs: groupExprs, Aggs: aggs}

		aggScope := operator.NewScope()
		for i := 0; i < len(groupExprs); i++ {
			aggScope.Bind(syntheticName("g", i))
		}
		for i := 0; i < len(aggs); i++ {
			aggScope.Bind(syntheticName("a", i))
		}

		exprs := make([]parser.Expr, len(items))
		for i := range items {
			var name string
			if isAgg[i] {
				name = syntheticName("a", slotOf[i])
			} else {
				name = syntheticName("g", slotOf[i])
			}
			exprs[i] = parser.Variable{Name: name}
			aliases[columns[i]] = parser.Variable{Name: name}
		}

		root = p.applyHorizon(root, aggScope, where, orderBy, aliases, exprs, columns, distinct, skip, limit)
		return root, columns, nil
	}

	exprs := make([]parser.Expr, len(items))
	for i, it := range items {
		exprs[i] = it.Expr
		aliases[columns[i]] = it.Expr
	}
	root = p.applyHorizon(root, preScope, where, orderBy, aliases, exprs, columns, distinct, skip, limit)
	return root, columns, nil
}

// applyHorizon compiles where/orderBy against scope (resolving any
// reference to one of exprs' own aliases first), then wires
// Filter -> OrderBy -> Project -> Distinct -> Skip -> Limit.
func (p *planner) applyHorizon(root operator.Op, scope *operator.Scope, where parser.Expr, orderBy []parser.OrderItem, aliases map[string]parser.Expr, exprs []parser.Expr, columns []string, distinct bool, skip, limit *int64) operator.Op {
	if where != nil {
		resolved := resolveAliases(where, aliases)
		root = &operator.Filter{Input: root, Pred: operator.Compile(resolved, scope)}
	}
	if len(orderBy) > 0 {
		keys := make([]operator.OrderKey, len(orderBy))
		for i, o := range orderBy {
			resolved := resolveAliases(o.Expr, aliases)
			keys[i] = operator.OrderKey{Expr: operator.Compile(resolved, scope), Desc: o.Desc}
		}
		root = &operator.OrderBy{Input: root, Keys: keys}
	}

	compiled := make([]operator.CompiledExpr, len(exprs))
	for i, e := range exprs {
		compiled[i] = operator.Compile(e, scope)
	}
	root = &operator.Project{Input: root, Exprs: compiled, Columns: columns}

	if distinct {
		root = &operator.Distinct{Input: root}
	}
	if skip != nil {
		root = &operator.Skip{Input: root, N: *skip}
	}
	if limit != nil {
		root = &operator.Limit{Input: root, N: *limit}
	}
	return root
}

func syntheticName(prefix string, i int) string {
	return "$" + prefix + itoa(i)
}

// resolveAliases rewrites every bare variable reference naming one of this
// projection's own aliases, including one nested inside a unary or binary
// operator, into that alias's underlying expression.
func resolveAliases(e parser.Expr, aliases map[string]parser.Expr) parser.Expr {
	switch x := e.(type) {
	case parser.Variable:
		if sub, ok := aliases[x.Name]; ok {
			return sub
		}
	case parser.BinaryExpr:
		return parser.BinaryExpr{Op: x.Op, L: resolveAliases(x.L, aliases), R: resolveAliases(x.R, aliases)}
	case parser.UnaryExpr:
		return parser.UnaryExpr{Op: x.Op, X: resolveAliases(x.X, aliases)}
	}
	return e
}

func containsAggregate(e parser.Expr) bool {
	switch x := e.(type) {
	case parser.AggregateCall:
		return true
	case parser.BinaryExpr:
		return containsAggregate(x.L) || containsAggregate(x.R)
	case parser.UnaryExpr:
		return containsAggregate(x.X)
	case parser.FunctionCall:
		for _, a := range x.Args {
			if containsAggregate(a) {
				return true
			}
		}
	}
	return false
}

func columnName(item parser.ReturnItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	return renderExprName(item.Expr)
}

func renderExprName(e parser.Expr) string {
	switch x := e.(type) {
	case parser.Variable:
		return x.Name
	case parser.PropertyAccess:
		return x.Var + "." + x.Prop
	case parser.FunctionCall:
		return x.Name + "(...)"
	case parser.AggregateCall:
		arg := "*"
		if !x.Star && x.Arg != nil {
			arg = renderExprName(x.Arg)
		}
		return x.Func + "(" + arg + ")"
	case parser.Literal:
		return "literal"
	default:
		return "expr"
	}
}
