package operator

import (
	"bytes"

	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/parser"
	"github.com/nexusdb/nexus/pkg/types"
)

// CompiledExpr is a parser.Expr resolved against a fixed Scope, ready to
// evaluate against any Tuple built with that Scope. The planner compiles
// every Filter/Project/ORDER BY expression once at plan-compile time
// rather than re-resolving variable names on every row.
type CompiledExpr struct {
	expr  parser.Expr
	scope *Scope
}

func Compile(e parser.Expr, scope *Scope) CompiledExpr {
	return CompiledExpr{expr: e, scope: scope}
}

// Eval walks the expression tree against one Tuple. ctx.Store resolves
// property access for node/relationship bindings; ctx.Params resolves
// $name parameters.
func (c CompiledExpr) Eval(ctx *ExecContext, row Tuple) (types.Value, error) {
	return evalExpr(c.expr, c.scope, ctx, ctx.Store, row)
}

// EvalBinding evaluates the expression but, for a bare variable reference,
// returns the row's live Binding unchanged rather than flattening a bound
// node or relationship down to a scalar Value. RETURN/WITH project through
// this so a returned node or relationship keeps its identity (and stays
// usable by a later MATCH) instead of collapsing to null.
func (c CompiledExpr) EvalBinding(ctx *ExecContext, row Tuple) (Binding, error) {
	if v, ok := c.expr.(parser.Variable); ok {
		idx, ok := c.scope.Lookup(v.Name)
		if !ok {
			return Binding{}, nexuserr.PlanError("unbound variable " + v.Name)
		}
		return row[idx], nil
	}
	val, err := c.Eval(ctx, row)
	if err != nil {
		return Binding{}, err
	}
	return ValueBinding(val), nil
}

func evalExpr(e parser.Expr, scope *Scope, ctx *ExecContext, src Source, row Tuple) (types.Value, error) {
	switch n := e.(type) {
	case parser.Literal:
		return literalValue(n.Value), nil
	case parser.Param:
		v, ok := ctx.Params[n.Name]
		if !ok {
			return types.Null, nexuserr.SchemaError("unbound parameter $" + n.Name)
		}
		return v, nil
	case parser.Variable:
		idx, ok := scope.Lookup(n.Name)
		if !ok {
			return types.Null, nexuserr.PlanError("unbound variable " + n.Name)
		}
		return bindingToValue(row[idx], src)
	case parser.PropertyAccess:
		idx, ok := scope.Lookup(n.Var)
		if !ok {
			return types.Null, nexuserr.PlanError("unbound variable " + n.Var)
		}
		return propertyOf(row[idx], n.Prop, src, ctx)
	case parser.ListLiteral:
		items := make([]types.Value, len(n.Items))
		for i, it := range n.Items {
			v, err := evalExpr(it, scope, ctx, src, row)
			if err != nil {
				return types.Null, err
			}
			items[i] = v
		}
		return types.ListValue(items), nil
	case parser.MapLiteral:
		m := make(map[string]types.Value, len(n.Entries))
		for k, ve := range n.Entries {
			v, err := evalExpr(ve, scope, ctx, src, row)
			if err != nil {
				return types.Null, err
			}
			m[k] = v
		}
		return types.MapValue(m), nil
	case parser.UnaryExpr:
		return evalUnary(n, scope, ctx, src, row)
	case parser.BinaryExpr:
		return evalBinary(n, scope, ctx, src, row)
	case parser.FunctionCall:
		return evalFunctionCall(n, scope, ctx, src, row)
	case parser.AggregateCall:
		return types.Null, nexuserr.PlanError("aggregate call outside an Aggregate operator")
	default:
		return types.Null, nexuserr.PlanError("unsupported expression node")
	}
}

func literalValue(v interface{}) types.Value {
	switch x := v.(type) {
	case nil:
		return types.Null
	case bool:
		return types.BoolValue(x)
	case int64:
		return types.IntValue(x)
	case float64:
		return types.FloatValue(x)
	case string:
		return types.StringValue(x)
	default:
		return types.Null
	}
}

func bindingToValue(b Binding, src Source) (types.Value, error) {
	switch b.Kind {
	case BindNull:
		return types.Null, nil
	case BindValue:
		return b.Val, nil
	case BindNode, BindRel:
		// A bare node/relationship variable used as a value (e.g. passed to
		// collect()) carries no scalar representation; callers that need
		// properties use PropertyAccess instead.
		return types.Null, nil
	default:
		return types.Null, nil
	}
}

func propertyOf(b Binding, prop string, src Source, ctx *ExecContext) (types.Value, error) {
	keyID, ok := ctx.Catalog.LookupKeyID(prop)
	if !ok {
		return types.Null, nil
	}
	switch b.Kind {
	case BindNode:
		node, err := src.GetNode(b.Node)
		if err != nil {
			return types.Null, err
		}
		if v, ok := node.Properties[keyID]; ok {
			return v, nil
		}
		return types.Null, nil
	case BindRel:
		rel, err := src.GetRel(b.Rel)
		if err != nil {
			return types.Null, err
		}
		if v, ok := rel.Properties[keyID]; ok {
			return v, nil
		}
		return types.Null, nil
	case BindValue:
		if b.Val.Kind == types.KindMap {
			if v, ok := b.Val.Map[prop]; ok {
				return v, nil
			}
		}
		return types.Null, nil
	default:
		return types.Null, nil
	}
}

func evalUnary(n parser.UnaryExpr, scope *Scope, ctx *ExecContext, src Source, row Tuple) (types.Value, error) {
	x, err := evalExpr(n.X, scope, ctx, src, row)
	if err != nil {
		return types.Null, err
	}
	switch n.Op {
	case "not":
		if x.IsNull() {
			return types.Null, nil
		}
		return types.BoolValue(!x.Bool), nil
	case "neg":
		if x.IsNull() {
			return types.Null, nil
		}
		if x.Kind == types.KindFloat64 {
			return types.FloatValue(-x.Float64), nil
		}
		return types.IntValue(-x.Int64), nil
	default:
		return types.Null, nexuserr.PlanError("unknown unary operator " + n.Op)
	}
}

func evalBinary(n parser.BinaryExpr, scope *Scope, ctx *ExecContext, src Source, row Tuple) (types.Value, error) {
	l, err := evalExpr(n.L, scope, ctx, src, row)
	if err != nil {
		return types.Null, err
	}
	switch n.Op {
	case "and":
		if !l.IsNull() && !l.Bool {
			return types.BoolValue(false), nil
		}
		r, err := evalExpr(n.R, scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		if !r.IsNull() && !r.Bool {
			return types.BoolValue(false), nil
		}
		if l.IsNull() || r.IsNull() {
			return types.Null, nil
		}
		return types.BoolValue(true), nil
	case "or":
		if !l.IsNull() && l.Bool {
			return types.BoolValue(true), nil
		}
		r, err := evalExpr(n.R, scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		if !r.IsNull() && r.Bool {
			return types.BoolValue(true), nil
		}
		if l.IsNull() || r.IsNull() {
			return types.Null, nil
		}
		return types.BoolValue(false), nil
	case "xor":
		r, err := evalExpr(n.R, scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		if l.IsNull() || r.IsNull() {
			return types.Null, nil
		}
		return types.BoolValue(l.Bool != r.Bool), nil
	case "isnull":
		return types.BoolValue(l.IsNull()), nil
	case "in":
		r, err := evalExpr(n.R, scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		if r.Kind != types.KindList {
			return types.Null, nil
		}
		for _, item := range r.List {
			if CompareValues(l, item) == 0 {
				return types.BoolValue(true), nil
			}
		}
		return types.BoolValue(false), nil
	case "+", "-", "*", "/":
		r, err := evalExpr(n.R, scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		return evalArith(n.Op, l, r)
	case "=", "<>", "<", "<=", ">", ">=":
		r, err := evalExpr(n.R, scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		if l.IsNull() || r.IsNull() {
			return types.Null, nil
		}
		c := CompareValues(l, r)
		switch n.Op {
		case "=":
			return types.BoolValue(c == 0), nil
		case "<>":
			return types.BoolValue(c != 0), nil
		case "<":
			return types.BoolValue(c < 0), nil
		case "<=":
			return types.BoolValue(c <= 0), nil
		case ">":
			return types.BoolValue(c > 0), nil
		case ">=":
			return types.BoolValue(c >= 0), nil
		}
	}
	return types.Null, nexuserr.PlanError("unknown binary operator " + n.Op)
}

func evalArith(op string, l, r types.Value) (types.Value, error) {
	if l.IsNull() || r.IsNull() {
		return types.Null, nil
	}
	if l.Kind == types.KindFloat64 || r.Kind == types.KindFloat64 {
		lf, rf := asFloat(l), asFloat(r)
		switch op {
		case "+":
			return types.FloatValue(lf + rf), nil
		case "-":
			return types.FloatValue(lf - rf), nil
		case "*":
			return types.FloatValue(lf * rf), nil
		case "/":
			return types.FloatValue(lf / rf), nil
		}
	}
	li, ri := l.Int64, r.Int64
	switch op {
	case "+":
		return types.IntValue(li + ri), nil
	case "-":
		return types.IntValue(li - ri), nil
	case "*":
		return types.IntValue(li * ri), nil
	case "/":
		if ri == 0 {
			return types.Null, nexuserr.SchemaError("division by zero")
		}
		return types.IntValue(li / ri), nil
	}
	return types.Null, nexuserr.PlanError("unknown arithmetic operator " + op)
}

func asFloat(v types.Value) float64 {
	if v.Kind == types.KindFloat64 {
		return v.Float64
	}
	return float64(v.Int64)
}

func evalFunctionCall(n parser.FunctionCall, scope *Scope, ctx *ExecContext, src Source, row Tuple) (types.Value, error) {
	switch n.Name {
	case "size":
		if len(n.Args) != 1 {
			return types.Null, nexuserr.PlanError("size() takes exactly one argument")
		}
		v, err := evalExpr(n.Args[0], scope, ctx, src, row)
		if err != nil {
			return types.Null, err
		}
		return sizeOf(v), nil
	default:
		return types.Null, nexuserr.PlanError("unknown function " + n.Name)
	}
}

// sizeOf implements size(): null on null, length for lists and strings,
// 0 on an empty list, per the builtin's observable scenario behavior.
func sizeOf(v types.Value) types.Value {
	switch v.Kind {
	case types.KindNull:
		return types.Null
	case types.KindList:
		return types.IntValue(int64(len(v.List)))
	case types.KindString:
		return types.IntValue(int64(len([]rune(v.Str))))
	default:
		return types.Null
	}
}

// kindRank orders Value kinds for cross-kind comparisons that ORDER BY must
// still total-order: null sorts separately (handled by callers), and among
// non-null kinds this rank breaks ties when two Values don't share a kind.
func kindRank(k types.ValueKind) int {
	switch k {
	case types.KindBool:
		return 0
	case types.KindInt64, types.KindFloat64:
		return 1
	case types.KindString:
		return 2
	case types.KindList:
		return 3
	case types.KindMap:
		return 4
	case types.KindPoint:
		return 5
	case types.KindTemporal:
		return 6
	case types.KindBytes:
		return 7
	default:
		return 8
	}
}

// CompareValues defines the total order ORDER BY and equality rely on:
// numeric kinds are promoted and compared as float64, strings and bytes are
// byte-compared, lists compare lexicographically, and otherwise-mismatched
// kinds fall back to kindRank so every pair of Values is still ordered.
func CompareValues(a, b types.Value) int {
	if a.Kind == types.KindNull && b.Kind == types.KindNull {
		return 0
	}
	if a.Kind == types.KindNull {
		return -1
	}
	if b.Kind == types.KindNull {
		return 1
	}
	numA := a.Kind == types.KindInt64 || a.Kind == types.KindFloat64
	numB := b.Kind == types.KindInt64 || b.Kind == types.KindFloat64
	if numA && numB {
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.Kind == types.KindString && b.Kind == types.KindString {
		return bytes.Compare([]byte(a.Str), []byte(b.Str))
	}
	if a.Kind == types.KindBytes && b.Kind == types.KindBytes {
		return bytes.Compare(a.Bytes, b.Bytes)
	}
	if a.Kind == types.KindBool && b.Kind == types.KindBool {
		switch {
		case a.Bool == b.Bool:
			return 0
		case !a.Bool:
			return -1
		default:
			return 1
		}
	}
	if a.Kind == types.KindList && b.Kind == types.KindList {
		for i := 0; i < len(a.List) && i < len(b.List); i++ {
			if c := CompareValues(a.List[i], b.List[i]); c != 0 {
				return c
			}
		}
		return len(a.List) - len(b.List)
	}
	if ra, rb := kindRank(a.Kind), kindRank(b.Kind); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	return 0
}
