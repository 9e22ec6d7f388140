package operator

import (
	"testing"

	"github.com/nexusdb/nexus/pkg/parser"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExpr(t *testing.T, src string) parser.Expr {
	t.Helper()
	q, err := parser.Parse("RETURN " + src)
	require.NoError(t, err)
	ret, ok := q.Clauses[len(q.Clauses)-1].(parser.ReturnClause)
	require.True(t, ok)
	return ret.Items[0].Expr
}

func TestEvalBindingKeepsVariableReferenceAsLiveBinding(t *testing.T) {
	scope := NewScope()
	slot := scope.Bind("n")
	row := make(Tuple, scope.Width())
	row[slot] = NodeBinding(types.NodeID(7))

	compiled := Compile(mustExpr(t, "n"), scope)
	b, err := compiled.EvalBinding(&ExecContext{}, row)
	require.NoError(t, err)
	assert.Equal(t, BindNode, b.Kind)
	assert.Equal(t, types.NodeID(7), b.Node)
}

func TestEvalBindingFlattensNonVariableExpressionToValue(t *testing.T) {
	scope := NewScope()
	row := make(Tuple, scope.Width())

	compiled := Compile(mustExpr(t, "1 + 2"), scope)
	b, err := compiled.EvalBinding(&ExecContext{}, row)
	require.NoError(t, err)
	assert.Equal(t, BindValue, b.Kind)
	assert.Equal(t, types.IntValue(3), b.Val)
}

func TestEvalArithmeticPromotesToFloatWhenEitherOperandIsFloat(t *testing.T) {
	scope := NewScope()
	row := make(Tuple, scope.Width())

	compiled := Compile(mustExpr(t, "1 + 2.5"), scope)
	v, err := compiled.Eval(&ExecContext{}, row)
	require.NoError(t, err)
	assert.Equal(t, types.FloatValue(3.5), v)
}

func TestEvalInChecksListMembership(t *testing.T) {
	scope := NewScope()
	row := make(Tuple, scope.Width())

	compiled := Compile(mustExpr(t, "'b' IN ['a', 'b', 'c']"), scope)
	v, err := compiled.Eval(&ExecContext{}, row)
	require.NoError(t, err)
	assert.Equal(t, types.BoolValue(true), v)
}

func TestEvalComparisonIsNullOnEitherOperandNull(t *testing.T) {
	scope := NewScope()
	slot := scope.Bind("n")
	row := make(Tuple, scope.Width())
	row[slot] = ValueBinding(types.Null)

	compiled := Compile(mustExpr(t, "n = 1"), scope)
	v, err := compiled.Eval(&ExecContext{}, row)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestCompareValuesOrdersNullFirst(t *testing.T) {
	assert.Equal(t, -1, CompareValues(types.Null, types.IntValue(1)))
	assert.Equal(t, 1, CompareValues(types.IntValue(1), types.Null))
	assert.Equal(t, 0, CompareValues(types.Null, types.Null))
}

func TestCompareValuesComparesMixedIntAndFloatNumerically(t *testing.T) {
	assert.Equal(t, 0, CompareValues(types.IntValue(2), types.FloatValue(2.0)))
	assert.Equal(t, -1, CompareValues(types.IntValue(1), types.FloatValue(1.5)))
}

func TestSizeOfBuiltin(t *testing.T) {
	assert.Equal(t, types.IntValue(3), sizeOf(types.ListValue([]types.Value{types.IntValue(1), types.IntValue(2), types.IntValue(3)})))
	assert.Equal(t, types.IntValue(0), sizeOf(types.ListValue(nil)))
	assert.True(t, sizeOf(types.Null).IsNull())
}
