// Package engine is the top-level facade wiring the Catalog, Record Store,
// Index Manager, Transaction Manager and WAL into one running database
// process, grounded on the teacher's top-level Manager wiring struct
// (pkg/manager.go): one constructor that opens every on-disk component in
// order and hands the result to callers as a single handle.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nexusdb/nexus/pkg/catalog"
	"github.com/nexusdb/nexus/pkg/config"
	"github.com/nexusdb/nexus/pkg/index"
	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/store"
	"github.com/nexusdb/nexus/pkg/txn"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/nexusdb/nexus/pkg/wal"
	"github.com/rs/zerolog"
)

// Engine owns every durable component of one Nexus database directory and
// is the only entry point cmd/nexus or a test needs.
type Engine struct {
	cfg *config.Config

	store   *store.Store
	index   *index.Manager
	catalog *catalog.Catalog
	walLog  *wal.Log
	txnMgr  *txn.Manager

	master  *wal.Master
	replica *wal.Replica

	planCache *lru.Cache[string, *cachedPlan]

	recentMu sync.Mutex
	recent   []QueryRecord

	instanceID string
	logger     zerolog.Logger
}

// Open starts a database process rooted at cfg.DataDir: acquires the
// directory lock (via the WAL's flock), opens/creates store.dat and
// catalog.dat, rebuilds the in-memory Index Manager from the Store, and —
// per cfg.Replication.Role — starts a replication master or replica. Open
// applies no WAL entries to the store or catalog: wal.Open reads the
// segments back only to restore the LSN counter and the replication ring
// buffer.
func Open(cfg *config.Config) (*Engine, error) {
	log.Init(log.Config{Level: cfg.Logging.Level, JSONOutput: cfg.Logging.JSON})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nexuserr.IoError("creating data directory", err)
	}

	walLog, err := wal.Open(wal.Options{Dir: filepath.Join(cfg.DataDir, "wal")})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "store.dat"), store.Options{})
	if err != nil {
		walLog.Close()
		return nil, err
	}

	idx := index.NewManager()

	e := &Engine{cfg: cfg, store: st, index: idx, walLog: walLog, instanceID: uuid.NewString(), logger: log.WithComponent("engine")}

	cat, err := catalog.Open(filepath.Join(cfg.DataDir, "catalog.dat"), e.journalCatalogAdd)
	if err != nil {
		st.Close()
		walLog.Close()
		return nil, err
	}
	e.catalog = cat

	e.txnMgr = txn.NewManager(st, idx, walLog, walLog)

	rebuildIndex(st, idx)

	cacheSize := cfg.PlanCache.MaxEntries
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *cachedPlan](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create plan cache: %w", err)
	}
	e.planCache = cache

	if err := e.startReplication(); err != nil {
		return nil, err
	}

	e.logger.Info().Str("data_dir", cfg.DataDir).Str("role", string(cfg.Replication.Role)).Msg("engine started")
	return e, nil
}

// journalCatalogAdd is the Catalog's JournalFunc: it durably appends an
// OpCatalogAdd WAL entry before Catalog hands out the new id, so recovery
// can never see a used id without the entry that minted it.
func (e *Engine) journalCatalogAdd(add types.CatalogAdd) error {
	lsn := e.walLog.NextLSN()
	entry := types.WALEntry{LSN: lsn, Op: types.OpCatalogAdd, Payload: wal.EncodeCatalogAdd(add)}
	return e.walLog.Append(entry)
}

// rebuildIndex replays every live node and its outgoing relationships from
// the Store into a fresh Index Manager. The Index Manager has no on-disk
// form of its own (see DESIGN.md): it is always derived state, rebuilt
// here at startup and again after RestoreSnapshot.
func rebuildIndex(st *store.Store, idx *index.Manager) {
	for _, id := range st.AllNodeIDs() {
		node, err := st.GetNode(id)
		if err != nil {
			continue
		}
		idx.ApplyNode(node)
		st.WalkChain(id, types.DirOutgoing, func(relID types.RelID) bool {
			rel, err := st.GetRel(relID)
			if err == nil {
				idx.ApplyRel(rel)
			}
			return true
		})
	}
}

func (e *Engine) startReplication() error {
	switch e.cfg.Replication.Role {
	case wal.RoleMaster:
		m := wal.NewMaster(e.walLog, e.cfg.Replication.Mode)
		m.SetSnapshotSource(e)
		addr := fmt.Sprintf(":%d", e.cfg.Replication.Port)
		if err := m.ListenAndServe(addr); err != nil {
			return err
		}
		e.master = m
	case wal.RoleReplica:
		r := wal.NewReplica(e.instanceID, e.cfg.Replication.MasterAddr, e.walLog.LastLSN(), e)
		go r.Run()
		e.replica = r
	}
	return nil
}

// Close stops replication and closes every durable component.
func (e *Engine) Close() error {
	if e.master != nil {
		e.master.Stop()
	}
	if e.replica != nil {
		e.replica.Stop()
	}
	if err := e.catalog.Close(); err != nil {
		return err
	}
	if err := e.store.Close(); err != nil {
		return err
	}
	return e.walLog.Close()
}

// Stats reports the live database size and the WAL's last LSN, for
// introspection.
type Stats struct {
	NodeCount uint64
	RelCount  uint64
	LastLSN   uint64
}

func (e *Engine) Stats() Stats {
	nodes, rels := e.store.Stats()
	return Stats{NodeCount: nodes, RelCount: rels, LastLSN: e.walLog.LastLSN()}
}

// SnapshotCatalog implements wal.SnapshotSource.
func (e *Engine) SnapshotCatalog() ([]byte, error) { return e.catalog.SnapshotBytes() }

// SnapshotStore implements wal.SnapshotSource.
func (e *Engine) SnapshotStore() ([]byte, error) { return e.store.Snapshot() }

// SnapshotIndex implements wal.SnapshotSource. The Index Manager is always
// derived from the Store (see rebuildIndex), so there is nothing to
// snapshot independently; RestoreSnapshot rebuilds it after restoring the
// store component.
func (e *Engine) SnapshotIndex() ([]byte, error) { return nil, nil }

// ApplyWALEntry implements wal.ApplySink: a replica hands every streamed
// entry here in LSN order.
func (e *Engine) ApplyWALEntry(entry types.WALEntry) error {
	switch entry.Op {
	case types.OpCatalogAdd:
		add, err := wal.DecodeCatalogAdd(entry.Payload)
		if err != nil {
			return err
		}
		return e.catalog.ApplyWAL(add)
	case types.OpCommit:
		rec, err := wal.DecodeCommit(entry.Payload)
		if err != nil {
			return err
		}
		return e.replayCommit(rec, entry.LSN)
	default:
		return fmt.Errorf("engine: unexpected replicated op %d", entry.Op)
	}
}

func (e *Engine) replayCommit(rec *wal.CommitRecord, lsn uint64) error {
	for i := range rec.NewNodes {
		if _, err := e.store.ApplyNode(&rec.NewNodes[i], lsn); err != nil {
			return err
		}
	}
	for i := range rec.StagedNodes {
		if _, err := e.store.ApplyNode(&rec.StagedNodes[i], lsn); err != nil {
			return err
		}
	}
	for i := range rec.NewRels {
		if _, err := e.store.ApplyRel(&rec.NewRels[i], lsn); err != nil {
			return err
		}
	}
	for i := range rec.StagedRels {
		if _, err := e.store.ApplyRel(&rec.StagedRels[i], lsn); err != nil {
			return err
		}
	}
	rebuildIndex(e.store, e.index)
	return e.store.Flush(lsn)
}

// RestoreSnapshot implements wal.ApplySink: a replica applies this once,
// on first connect to a master, before streaming resumes.
func (e *Engine) RestoreSnapshot(snap wal.Snapshot) error {
	for _, c := range snap.Components {
		switch c.Tag {
		case wal.ComponentStore:
			if err := os.WriteFile(filepath.Join(e.cfg.DataDir, "store.dat"), c.Data, 0o600); err != nil {
				return nexuserr.IoError("restoring store snapshot", err)
			}
		case wal.ComponentCatalog:
			if err := os.WriteFile(filepath.Join(e.cfg.DataDir, "catalog.dat"), c.Data, 0o600); err != nil {
				return nexuserr.IoError("restoring catalog snapshot", err)
			}
		}
	}
	// Reopen the store/catalog files just written, then rebuild the index
	// from the freshly restored store.
	if err := e.store.Close(); err != nil {
		return err
	}
	st, err := store.Open(filepath.Join(e.cfg.DataDir, "store.dat"), store.Options{})
	if err != nil {
		return err
	}
	e.store = st
	if err := e.catalog.Close(); err != nil {
		return err
	}
	cat, err := catalog.Open(filepath.Join(e.cfg.DataDir, "catalog.dat"), e.journalCatalogAdd)
	if err != nil {
		return err
	}
	e.catalog = cat
	e.index = index.NewManager()
	rebuildIndex(e.store, e.index)
	e.txnMgr = txn.NewManager(e.store, e.index, e.walLog, e.walLog)
	return nil
}

// queryTimeout returns the configured per-query execution budget.
func (e *Engine) queryTimeout() time.Duration {
	if e.cfg.Query.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(e.cfg.Query.TimeoutMs) * time.Millisecond
}
