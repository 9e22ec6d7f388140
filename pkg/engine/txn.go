package engine

import "github.com/nexusdb/nexus/pkg/types"

// BeginTransaction opens a new Transaction Manager transaction. It does
// not by itself make ExecuteCypher's writes participate in it: every
// write operator (CreateNode, SetProperty, ...) begins, stages and
// commits its own transaction synchronously inside its own Open call, so
// a single ExecuteCypher call with multiple write clauses commits each
// clause separately rather than atomically as one unit (see DESIGN.md).
// BeginTransaction exists for callers that stage store-level writes
// directly through the Transaction Manager rather than through Cypher.
func (e *Engine) BeginTransaction() *types.Transaction {
	return e.txnMgr.Begin()
}

// CommitTransaction durably applies tx's staged writes and returns the LSN
// it committed at.
func (e *Engine) CommitTransaction(tx *types.Transaction) (uint64, error) {
	return e.txnMgr.Commit(tx)
}

// AbortTransaction discards tx's staged writes.
func (e *Engine) AbortTransaction(tx *types.Transaction) {
	e.txnMgr.Abort(tx)
}

// ReadOnly reports whether a prior WAL write failure has put the Engine
// into read-only mode.
func (e *Engine) ReadOnly() bool {
	return e.txnMgr.ReadOnly()
}
