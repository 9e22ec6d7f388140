package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/config"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	e, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestExecuteCypherCreateAndMatchRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ExecuteCypher(`CREATE (n:Person {name: 'Ada'})`, nil)
	require.NoError(t, err)

	rs, err := e.ExecuteCypher(`MATCH (n:Person) RETURN n.name`, nil)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, types.StringValue("Ada"), rs.Rows[0][0].Val)
}

func TestExecuteCypherReturnsLiveNodeBinding(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ExecuteCypher(`CREATE (n:Person {name: 'Grace'})`, nil)
	require.NoError(t, err)

	rs, err := e.ExecuteCypher(`MATCH (n:Person) RETURN n`, nil)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)

	cell := rs.Rows[0][0]
	require.NotNil(t, cell.Node, "RETURN n must keep the live entity, not flatten it to a value")
	assert.Contains(t, cell.Node.Labels, e.mustLabelID(t, "Person"))
}

func (e *Engine) mustLabelID(t *testing.T, name string) types.LabelID {
	t.Helper()
	id, ok := e.catalog.LookupLabelID(name)
	require.True(t, ok, "label %q must already be interned", name)
	return id
}

func TestExecuteCypherReusesCachedPlanAcrossCalls(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ExecuteCypher(`CREATE (n:Person {name: 'Ada'})`, nil)
	require.NoError(t, err)

	const query = `MATCH (n:Person) RETURN n.name`
	_, err = e.ExecuteCypher(query, nil)
	require.NoError(t, err)
	cp, ok := e.planCache.Get(cacheKey(query))
	require.True(t, ok)
	firstPlan := cp.plan

	_, err = e.ExecuteCypher(query, nil)
	require.NoError(t, err)
	cp, ok = e.planCache.Get(cacheKey(query))
	require.True(t, ok)
	assert.Same(t, firstPlan, cp.plan, "an unchanged catalog must serve the cached plan")
}

func TestExecuteCypherRecompilesAfterCatalogChanges(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ExecuteCypher(`CREATE (n:Person {name: 'Ada'})`, nil)
	require.NoError(t, err)

	const query = `MATCH (n:Person) RETURN n.name`
	_, err = e.ExecuteCypher(query, nil)
	require.NoError(t, err)
	cp, _ := e.planCache.Get(cacheKey(query))
	firstVersion := cp.catalogVer

	_, err = e.ExecuteCypher(`CREATE (m:Company {name: 'Acme'})`, nil)
	require.NoError(t, err)

	_, err = e.ExecuteCypher(query, nil)
	require.NoError(t, err)
	cp, _ = e.planCache.Get(cacheKey(query))
	assert.NotEqual(t, firstVersion, cp.catalogVer, "interning a new label must bump the catalog version the cache keys on")
}

func TestRecentQueriesIsBoundedAndRecordsErrors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.ExecuteCypher(`RETURN 1 +`, nil)
	assert.Error(t, err)

	recent := e.RecentQueries()
	require.Len(t, recent, 1)
	assert.Error(t, recent[0].Err)

	for i := 0; i < recentQueryCapacity+10; i++ {
		e.ExecuteCypher(`RETURN 1`, nil)
	}
	recent = e.RecentQueries()
	assert.Len(t, recent, recentQueryCapacity)
}

func TestHealthReportsHealthyStandaloneEngine(t *testing.T) {
	e := newTestEngine(t)
	report := e.Health(context.Background())
	assert.True(t, report.Healthy)
	require.Len(t, report.Checks, 1, "a standalone engine only runs the store-corruption check")
}
