package txn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nexusdb/nexus/pkg/index"
	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/store"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/nexusdb/nexus/pkg/wal"
	"github.com/rs/zerolog"
)

// WALAppender is the slice of pkg/wal.Log that txn depends on: assigning
// LSNs and durably appending commit records. Kept as an interface so tests
// can substitute a fake log; txn imports pkg/wal only for EncodeCommit.
type WALAppender interface {
	NextLSN() uint64
	Append(entry types.WALEntry) error
}

// Broadcaster hands a just-committed WAL range to the replication
// streamers. Broadcast must not block the commit path (spec 4.4 step 5:
// "non-blocking queue").
type Broadcaster interface {
	Broadcast(entries []types.WALEntry)
}

// Manager is the Transaction Manager: stages writes per transaction and
// serializes commits through a single-writer section.
type Manager struct {
	commitMu sync.Mutex

	store       *store.Store
	index       *index.Manager
	wal         WALAppender
	broadcaster Broadcaster

	nextTxID uint64
	readOnly atomic.Bool

	logger zerolog.Logger
}

// NewManager wires a Transaction Manager against its three dependencies.
func NewManager(st *store.Store, idx *index.Manager, wal WALAppender, broadcaster Broadcaster) *Manager {
	return &Manager{
		store:       st,
		index:       idx,
		wal:         wal,
		broadcaster: broadcaster,
		logger:      log.WithComponent("txn"),
	}
}

// Begin opens a new transaction with a snapshot LSN equal to the store's
// last-applied LSN at the moment of the call.
func (m *Manager) Begin() *types.Transaction {
	id := types.TxID(atomic.AddUint64(&m.nextTxID, 1))
	return &types.Transaction{
		ID:          id,
		Status:      types.TxActive,
		BeginLSN:    m.store.LastAppliedLSN(),
		StagedNodes: make(map[types.NodeID]*types.StagedNode),
		StagedRels:  make(map[types.RelID]*types.StagedRel),
	}
}

// StageCreateNode stages a new node; its id is assigned at commit.
func (m *Manager) StageCreateNode(tx *types.Transaction, labels []types.LabelID, props map[types.KeyID]types.Value) *types.StagedNode {
	n := &types.StagedNode{Labels: labels, Properties: props}
	tx.NewNodes = append(tx.NewNodes, n)
	return n
}

// StageUpdateNode stages a property/label replacement for a live node.
func (m *Manager) StageUpdateNode(tx *types.Transaction, id types.NodeID, labels []types.LabelID, props map[types.KeyID]types.Value) {
	tx.StagedNodes[id] = &types.StagedNode{ID: id, Labels: labels, Properties: props}
}

// StageDeleteNode stages a node deletion.
func (m *Manager) StageDeleteNode(tx *types.Transaction, id types.NodeID) {
	tx.StagedNodes[id] = &types.StagedNode{ID: id, Deleted: true}
}

// StageCreateRel stages a new relationship between two nodes visible to
// tx (either committed before BeginLSN or created earlier in tx).
func (m *Manager) StageCreateRel(tx *types.Transaction, typ types.TypeID, src, dst types.NodeID, props map[types.KeyID]types.Value) *types.StagedRel {
	r := &types.StagedRel{Type: typ, Source: src, Target: dst, Properties: props}
	tx.NewRels = append(tx.NewRels, r)
	return r
}

// StageUpdateRel stages a property replacement for a live relationship.
func (m *Manager) StageUpdateRel(tx *types.Transaction, id types.RelID, props map[types.KeyID]types.Value) {
	tx.StagedRels[id] = &types.StagedRel{ID: id, Properties: props}
}

// StageDeleteRel stages a relationship deletion.
func (m *Manager) StageDeleteRel(tx *types.Transaction, id types.RelID) {
	tx.StagedRels[id] = &types.StagedRel{ID: id, Deleted: true}
}

// Abort discards tx's staged writes. Nothing was ever applied, so there is
// nothing to undo.
func (m *Manager) Abort(tx *types.Transaction) {
	tx.Status = types.TxAborted
	m.logger.Debug().Uint64("tx_id", uint64(tx.ID)).Msg("transaction aborted")
}

func (m *Manager) validate(tx *types.Transaction) error {
	for _, n := range tx.NewNodes {
		if err := m.index.ValidateNode(n); err != nil {
			return err
		}
	}
	for _, n := range tx.StagedNodes {
		if err := m.index.ValidateNode(n); err != nil {
			return err
		}
	}
	return nil
}

// Commit runs the spec 4.4 commit sequence: validate, assign LSN, append
// + fsync the WAL, apply to store and index, broadcast to replicas, return
// the LSN. Returns WalWriteFailed and promotes the manager to read-only if
// the WAL append fails; the process must not accept further writes once
// that happens, per spec 7's WalWriteFailed propagation policy.
func (m *Manager) Commit(tx *types.Transaction) (uint64, error) {
	if m.readOnly.Load() {
		return 0, nexuserr.IoError("store is read-only after a prior WAL write failure", nil)
	}

	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	if err := m.validate(tx); err != nil {
		m.Abort(tx)
		return 0, err
	}

	lsn := m.wal.NextLSN()
	entry := types.WALEntry{LSN: lsn, Op: types.OpCommit, Payload: wal.EncodeCommit(tx)}

	if err := m.wal.Append(entry); err != nil {
		m.readOnly.Store(true)
		m.Abort(tx)
		m.logger.Error().Err(err).Uint64("lsn", lsn).Msg("wal append failed, entering read-only mode")
		return 0, nexuserr.WalWriteFailed(err)
	}

	if err := m.apply(tx, lsn); err != nil {
		// The WAL record is already durable and the store may now lag it,
		// so this manager accepts no further writes. Engine.Open does not
		// replay WAL entries into the store.
		m.readOnly.Store(true)
		return 0, nexuserr.StoreCorrupt("commit apply failed after durable wal append", err)
	}

	m.broadcaster.Broadcast([]types.WALEntry{entry})

	tx.Status = types.TxCommitted
	m.logger.Debug().Uint64("tx_id", uint64(tx.ID)).Uint64("lsn", lsn).Msg("transaction committed")
	return lsn, nil
}

// apply performs commit step 4: Record Store then Index Manager, in that
// order, for every staged node and relationship op.
func (m *Manager) apply(tx *types.Transaction, lsn uint64) error {
	for _, n := range tx.NewNodes {
		id, err := m.store.ApplyNode(n, lsn)
		if err != nil {
			return fmt.Errorf("apply new node: %w", err)
		}
		n.ID = id
		node, err := m.store.GetNode(id)
		if err != nil {
			return err
		}
		m.index.ApplyNode(node)
	}
	for _, n := range tx.StagedNodes {
		var old *types.Node
		if !n.Deleted {
			old, _ = m.store.GetNode(n.ID)
		}
		if old != nil {
			m.index.RemoveNode(old)
		}
		if _, err := m.store.ApplyNode(n, lsn); err != nil {
			return fmt.Errorf("apply staged node: %w", err)
		}
		if !n.Deleted {
			node, err := m.store.GetNode(n.ID)
			if err != nil {
				return err
			}
			m.index.ApplyNode(node)
		}
	}
	for _, r := range tx.NewRels {
		id, err := m.store.ApplyRel(r, lsn)
		if err != nil {
			return fmt.Errorf("apply new relationship: %w", err)
		}
		r.ID = id
		rel, err := m.store.GetRel(id)
		if err != nil {
			return err
		}
		m.index.ApplyRel(rel)
	}
	for _, r := range tx.StagedRels {
		if r.Deleted {
			rel, err := m.store.GetRel(r.ID)
			if err == nil {
				m.index.RemoveRel(rel)
			}
		}
		if _, err := m.store.ApplyRel(r, lsn); err != nil {
			return fmt.Errorf("apply staged relationship: %w", err)
		}
	}
	return nil
}

// ReadOnly reports whether a prior WAL write failure has halted writes.
func (m *Manager) ReadOnly() bool { return m.readOnly.Load() }
