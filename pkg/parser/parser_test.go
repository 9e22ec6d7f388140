package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (n:Node)-[:CONNECTS]->() RETURN n.id ORDER BY n.id`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 2)

	m, ok := q.Clauses[0].(MatchClause)
	require.True(t, ok)
	assert.False(t, m.Optional)
	require.Len(t, m.Pattern, 3)
	assert.Equal(t, "n", m.Pattern[0].Node.Var)
	assert.Equal(t, []string{"Node"}, m.Pattern[0].Node.Labels)
	assert.Equal(t, []string{"CONNECTS"}, m.Pattern[1].Rel.Types)
	assert.Equal(t, DirRight, m.Pattern[1].Rel.Dir)

	ret, ok := q.Clauses[1].(ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.OrderBy, 1)
}

func TestParseOptionalMatchWithCountStar(t *testing.T) {
	q, err := Parse(`MATCH (n:Node) OPTIONAL MATCH (n)-[:CONNECTS]->() RETURN n.id, count(*) ORDER BY n.id`)
	require.NoError(t, err)
	require.Len(t, q.Clauses, 3)
	opt, ok := q.Clauses[1].(MatchClause)
	require.True(t, ok)
	assert.True(t, opt.Optional)

	ret := q.Clauses[2].(ReturnClause)
	require.Len(t, ret.Items, 2)
	agg, ok := ret.Items[1].Expr.(AggregateCall)
	require.True(t, ok)
	assert.True(t, agg.Star)
	assert.Equal(t, "count", agg.Func)
}

func TestParseWhereIn(t *testing.T) {
	q, err := Parse(`MATCH (n:Person) WHERE n.name IN ['Alice','Bob'] RETURN count(n)`)
	require.NoError(t, err)
	m := q.Clauses[0].(MatchClause)
	in, ok := m.Where.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "in", in.Op)
	list, ok := in.R.(ListLiteral)
	require.True(t, ok)
	assert.Len(t, list.Items, 2)
}

func TestParseSizeFunctionCall(t *testing.T) {
	q, err := Parse(`RETURN size(['a','b','c'])`)
	require.NoError(t, err)
	ret := q.Clauses[0].(ReturnClause)
	fn, ok := ret.Items[0].Expr.(FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "size", fn.Name)
}

func TestParseCreateAndSetAndDelete(t *testing.T) {
	q, err := Parse(`CREATE (n:Node {value: 1})`)
	require.NoError(t, err)
	cc := q.Clauses[0].(CreateClause)
	assert.Equal(t, int64(1), cc.Pattern[0].Node.Props["value"].(Literal).Value)

	q2, err := Parse(`MATCH (n:Node) SET n.value = 999`)
	require.NoError(t, err)
	sc := q2.Clauses[1].(SetClause)
	assert.Equal(t, "value", sc.Items[0].Prop)

	q3, err := Parse(`MATCH (n:Node) DETACH DELETE n`)
	require.NoError(t, err)
	dc := q3.Clauses[1].(DeleteClause)
	assert.True(t, dc.Detach)
	assert.Equal(t, []string{"n"}, dc.Vars)
}

func TestParseReportsPositionOnSyntaxError(t *testing.T) {
	_, err := Parse(`MATCH (n:Node RETURN n`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at position 14")
}

func TestParseLimitAndSkip(t *testing.T) {
	q, err := Parse(`MATCH (n) RETURN n.id SKIP 5 LIMIT 10`)
	require.NoError(t, err)
	ret := q.Clauses[1].(ReturnClause)
	require.NotNil(t, ret.Skip)
	require.NotNil(t, ret.Limit)
	assert.Equal(t, int64(5), *ret.Skip)
	assert.Equal(t, int64(10), *ret.Limit)
}
