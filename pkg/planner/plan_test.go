package planner

import (
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/catalog"
	"github.com/nexusdb/nexus/pkg/index"
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
	"github.com/nexusdb/nexus/pkg/store"
	"github.com/nexusdb/nexus/pkg/txn"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWAL/fakeBroadcaster mirror pkg/txn's test doubles: Compile's plans
// run real writes through a real txn.Manager, but that manager only needs
// something that assigns LSNs and records entries, not a real WAL file.
type fakeWAL struct{ lsn uint64 }

func (f *fakeWAL) NextLSN() uint64             { f.lsn++; return f.lsn }
func (f *fakeWAL) Append(types.WALEntry) error { return nil }

type fakeBroadcaster struct{}

func (fakeBroadcaster) Broadcast([]types.WALEntry) {}

type fixture struct {
	cat *catalog.Catalog
	idx *index.Manager
	st  *store.Store
	tx  *txn.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "nexus.db"), store.Options{InitialNodeCap: 16, InitialRelCap: 16})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := index.NewManager()

	var journaled []types.CatalogAdd
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.dat"), func(add types.CatalogAdd) error {
		journaled = append(journaled, add)
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	tx := txn.NewManager(st, idx, &fakeWAL{}, fakeBroadcaster{})
	return &fixture{cat: cat, idx: idx, st: st, tx: tx}
}

// run compiles and executes query end to end, returning the rendered rows
// as plain Bindings (no entity hydration, matching what operator.Op
// itself produces before pkg/engine resolves ids against the store).
func (f *fixture) run(t *testing.T, query string) ([]string, []operator.Tuple) {
	t.Helper()
	q, err := parser.Parse(query)
	require.NoError(t, err)

	plan, err := Compile(q, f.cat, f.idx)
	require.NoError(t, err)

	ctx := &operator.ExecContext{Store: f.st, Index: f.idx, Catalog: f.cat, TxnMgr: f.tx}
	require.NoError(t, plan.Root.Open(ctx))
	defer plan.Root.Close()

	var rows []operator.Tuple
	for {
		row, err := plan.Root.Next()
		require.NoError(t, err)
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	return plan.Columns, rows
}

func TestCreateThenMatchReturnsCreatedNode(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (n:Person {name: 'Ada', age: 36})`)

	cols, rows := f.run(t, `MATCH (n:Person) RETURN n.name, n.age`)
	require.Equal(t, []string{"n.name", "n.age"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, types.StringValue("Ada"), rows[0][0].Val)
	assert.Equal(t, types.IntValue(36), rows[0][1].Val)
}

func TestMatchOnMissingLabelReturnsNoRows(t *testing.T) {
	f := newFixture(t)
	_, rows := f.run(t, `MATCH (n:Ghost) RETURN n`)
	assert.Empty(t, rows)
}

func TestMergeMatchesExistingNodeInsteadOfCreatingDuplicate(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (n:Person {name: 'Grace'})`)
	_, _ = f.run(t, `MERGE (n:Person {name: 'Grace'})`)

	_, rows := f.run(t, `MATCH (n:Person) RETURN n.name`)
	require.Len(t, rows, 1, "MERGE must not create a second node when a match already exists")
}

func TestMergeCreatesWhenNoMatchExists(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `MERGE (n:Person {name: 'Alan'})`)

	_, rows := f.run(t, `MATCH (n:Person) RETURN n.name`)
	require.Len(t, rows, 1)
	assert.Equal(t, types.StringValue("Alan"), rows[0][0].Val)
}

func TestSetPropertyMutatesMatchedNode(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (n:Person {name: 'Ada', age: 30})`)
	_, _ = f.run(t, `MATCH (n:Person) SET n.age = 31`)

	_, rows := f.run(t, `MATCH (n:Person) RETURN n.age`)
	require.Len(t, rows, 1)
	assert.Equal(t, types.IntValue(31), rows[0][0].Val)
}

func TestDetachDeleteRemovesNodeAndItsRelationships(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (a:Person {name: 'A'})`)
	_, _ = f.run(t, `CREATE (b:Person {name: 'B'})`)
	_, _ = f.run(t, `MATCH (a:Person {name: 'A'}), (b:Person {name: 'B'}) CREATE (a)-[:KNOWS]->(b)`)

	_, _ = f.run(t, `MATCH (a:Person {name: 'A'}) DETACH DELETE a`)

	_, rows := f.run(t, `MATCH (n:Person) RETURN n.name`)
	require.Len(t, rows, 1)
	assert.Equal(t, types.StringValue("B"), rows[0][0].Val)
}

func TestCountAggregatesOverMatchedRows(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (n:Person {name: 'Ada'})`)
	_, _ = f.run(t, `CREATE (n:Person {name: 'Grace'})`)

	_, rows := f.run(t, `MATCH (n:Person) RETURN count(n)`)
	require.Len(t, rows, 1)
	assert.Equal(t, types.IntValue(2), rows[0][0].Val)
}

func TestWhereInFiltersRows(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (n:Person {name: 'Ada'})`)
	_, _ = f.run(t, `CREATE (n:Person {name: 'Grace'})`)
	_, _ = f.run(t, `CREATE (n:Person {name: 'Alan'})`)

	_, rows := f.run(t, `MATCH (n:Person) WHERE n.name IN ['Ada', 'Grace'] RETURN n.name`)
	assert.Len(t, rows, 2)
}

func TestBareReturnWithNoPrecedingMatchYieldsOneRow(t *testing.T) {
	f := newFixture(t)
	cols, rows := f.run(t, `RETURN 1 + 2 AS sum`)
	require.Equal(t, []string{"sum"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, types.IntValue(3), rows[0][0].Val)
}

func TestOrderByLimitOnReturn(t *testing.T) {
	f := newFixture(t)

	_, _ = f.run(t, `CREATE (n:Person {name: 'Carl', age: 50})`)
	_, _ = f.run(t, `CREATE (n:Person {name: 'Ada', age: 36})`)
	_, _ = f.run(t, `CREATE (n:Person {name: 'Bea', age: 40})`)

	_, rows := f.run(t, `MATCH (n:Person) RETURN n.name ORDER BY n.age LIMIT 2`)
	require.Len(t, rows, 2)
	assert.Equal(t, types.StringValue("Ada"), rows[0][0].Val)
	assert.Equal(t, types.StringValue("Bea"), rows[1][0].Val)
}
