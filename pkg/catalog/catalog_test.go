package catalog

import (
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T, journal JournalFunc) *Catalog {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "catalog.dat"), journal)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestInternLabelIsIdempotent(t *testing.T) {
	c := openTestCatalog(t, nil)

	id1, err := c.InternLabel("Person")
	require.NoError(t, err)
	assert.Equal(t, types.LabelID(1), id1)

	id2, err := c.InternLabel("Person")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := c.InternLabel("Company")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestInternNamespacesAreDisjoint(t *testing.T) {
	c := openTestCatalog(t, nil)

	labelID, err := c.InternLabel("Person")
	require.NoError(t, err)
	typeID, err := c.InternType("Person")
	require.NoError(t, err)
	keyID, err := c.InternKey("Person")
	require.NoError(t, err)

	assert.Equal(t, types.LabelID(1), labelID)
	assert.Equal(t, types.TypeID(1), typeID)
	assert.Equal(t, types.KeyID(1), keyID)

	name, ok := c.LabelName(types.LabelID(1))
	assert.True(t, ok)
	assert.Equal(t, "Person", name)
}

func TestInternJournalsBeforeReturning(t *testing.T) {
	var journaled []types.CatalogAdd
	c := openTestCatalog(t, func(add types.CatalogAdd) error {
		journaled = append(journaled, add)
		return nil
	})

	id, err := c.InternKey("name")
	require.NoError(t, err)
	require.Len(t, journaled, 1)
	assert.Equal(t, types.NamespaceKey, journaled[0].Namespace)
	assert.Equal(t, "name", journaled[0].Name)
	assert.Equal(t, uint32(id), journaled[0].ID)

	// Re-interning the same name must not journal again.
	_, err = c.InternKey("name")
	require.NoError(t, err)
	assert.Len(t, journaled, 1)
}

func TestLoadRestoresMappingAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.dat")

	c1, err := Open(path, nil)
	require.NoError(t, err)
	id, err := c1.InternLabel("Person")
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := Open(path, nil)
	require.NoError(t, err)
	defer c2.Close()

	gotID, ok := c2.LookupLabelID("Person")
	require.True(t, ok)
	assert.Equal(t, id, gotID)

	// Interning a new label after reopen must not reuse an existing id.
	nextID, err := c2.InternLabel("Company")
	require.NoError(t, err)
	assert.NotEqual(t, id, nextID)
}

func TestSnapshotIsAPointInTimeCopy(t *testing.T) {
	c := openTestCatalog(t, nil)

	_, err := c.InternLabel("Person")
	require.NoError(t, err)

	v := c.Snapshot()
	assert.Equal(t, uint64(1), v.Version)

	_, err = c.InternLabel("Company")
	require.NoError(t, err)

	// The earlier snapshot must not observe the later interning.
	assert.Len(t, v.LabelNames, 1)

	v2 := c.Snapshot()
	assert.Equal(t, uint64(2), v2.Version)
}

func TestApplyWALIsIdempotent(t *testing.T) {
	c := openTestCatalog(t, nil)

	add := types.CatalogAdd{Namespace: types.NamespaceType, Name: "KNOWS", ID: 1}
	require.NoError(t, c.ApplyWAL(add))
	require.NoError(t, c.ApplyWAL(add))

	id, ok := c.LookupTypeID("KNOWS")
	require.True(t, ok)
	assert.Equal(t, types.TypeID(1), id)

	// A subsequent local intern of an unrelated name must not collide with
	// the replayed id.
	next, err := c.InternType("LIKES")
	require.NoError(t, err)
	assert.Equal(t, types.TypeID(2), next)
}
