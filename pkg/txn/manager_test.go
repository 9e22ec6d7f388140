package txn

import (
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/index"
	"github.com/nexusdb/nexus/pkg/store"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWAL stands in for pkg/wal.Log: it assigns LSNs and records appended
// entries, optionally failing the next Append to exercise the read-only
// promotion path.
type fakeWAL struct {
	lsn      uint64
	entries  []types.WALEntry
	failNext bool
}

func (f *fakeWAL) NextLSN() uint64 {
	f.lsn++
	return f.lsn
}

func (f *fakeWAL) Append(entry types.WALEntry) error {
	if f.failNext {
		f.failNext = false
		return assert.AnError
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeBroadcaster struct {
	batches [][]types.WALEntry
}

func (f *fakeBroadcaster) Broadcast(entries []types.WALEntry) {
	f.batches = append(f.batches, entries)
}

func newTestManager(t *testing.T) (*Manager, *fakeWAL, *fakeBroadcaster) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "nexus.db"), store.Options{InitialNodeCap: 16, InitialRelCap: 16})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := index.NewManager()
	w := &fakeWAL{}
	bc := &fakeBroadcaster{}
	return NewManager(st, idx, w, bc), w, bc
}

func TestCommitAssignsIDsAndPersistsToStore(t *testing.T) {
	m, w, bc := newTestManager(t)

	tx := m.Begin()
	staged := m.StageCreateNode(tx, []types.LabelID{1}, map[types.KeyID]types.Value{1: types.IntValue(10)})

	lsn, err := m.Commit(tx)
	require.NoError(t, err)
	assert.Equal(t, types.TxCommitted, tx.Status)
	assert.NotEqual(t, types.NodeID(0), staged.ID)
	assert.Equal(t, uint64(1), lsn)
	assert.Len(t, w.entries, 1)
	assert.Len(t, bc.batches, 1)

	node, err := m.store.GetNode(staged.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{1}, node.Labels)
}

func TestCommitCreatesRelationshipBetweenCommittedNodes(t *testing.T) {
	m, _, _ := newTestManager(t)

	tx := m.Begin()
	a := m.StageCreateNode(tx, []types.LabelID{1}, nil)
	b := m.StageCreateNode(tx, []types.LabelID{1}, nil)
	_, err := m.Commit(tx)
	require.NoError(t, err)

	tx2 := m.Begin()
	rel := m.StageCreateRel(tx2, 1, a.ID, b.ID, map[types.KeyID]types.Value{1: types.StringValue("knows")})
	_, err = m.Commit(tx2)
	require.NoError(t, err)

	got, err := m.store.GetRel(rel.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.Source)
	assert.Equal(t, b.ID, got.Target)
}

func TestCommitRejectsRelationshipToDeadEndpoint(t *testing.T) {
	m, _, _ := newTestManager(t)

	tx := m.Begin()
	a := m.StageCreateNode(tx, []types.LabelID{1}, nil)
	_, err := m.Commit(tx)
	require.NoError(t, err)

	tx2 := m.Begin()
	m.StageCreateRel(tx2, 1, a.ID, types.NodeID(9999), nil)
	_, err = m.Commit(tx2)
	assert.Error(t, err)
}

func TestWalAppendFailurePromotesManagerToReadOnly(t *testing.T) {
	m, w, _ := newTestManager(t)
	w.failNext = true

	tx := m.Begin()
	m.StageCreateNode(tx, []types.LabelID{1}, nil)
	_, err := m.Commit(tx)
	assert.Error(t, err)
	assert.True(t, m.ReadOnly())

	tx2 := m.Begin()
	m.StageCreateNode(tx2, []types.LabelID{1}, nil)
	_, err = m.Commit(tx2)
	assert.Error(t, err, "no further commits are accepted once read-only")
}

func TestAbortDiscardsStagedWrites(t *testing.T) {
	m, w, _ := newTestManager(t)

	tx := m.Begin()
	m.StageCreateNode(tx, []types.LabelID{1}, nil)
	m.Abort(tx)

	assert.Equal(t, types.TxAborted, tx.Status)
	assert.Empty(t, w.entries)
}

func TestUniqueConstraintViolationAbortsBeforeWalAppend(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "nexus.db"), store.Options{InitialNodeCap: 16, InitialRelCap: 16})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx := index.NewManager()
	idx.CreateUniqueConstraint(1, 1)
	w := &fakeWAL{}
	bc := &fakeBroadcaster{}
	m := NewManager(st, idx, w, bc)

	tx := m.Begin()
	m.StageCreateNode(tx, []types.LabelID{1}, map[types.KeyID]types.Value{1: types.StringValue("dup")})
	_, err = m.Commit(tx)
	require.NoError(t, err)

	tx2 := m.Begin()
	m.StageCreateNode(tx2, []types.LabelID{1}, map[types.KeyID]types.Value{1: types.StringValue("dup")})
	_, err = m.Commit(tx2)
	assert.Error(t, err)
	assert.Empty(t, w.entries[1:], "the conflicting commit must never reach the wal")
}
