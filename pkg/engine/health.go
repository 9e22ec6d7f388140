package engine

import (
	"context"
	"fmt"

	"github.com/nexusdb/nexus/pkg/health"
	"github.com/nexusdb/nexus/pkg/wal"
)

// HealthReport is the outcome of running every applicable health.Checker
// against this Engine's current state.
type HealthReport struct {
	Healthy bool
	Checks  []health.Result
}

// Health runs a store-corruption check unconditionally, plus a
// replication-lag check per connected replica when this Engine is a
// master. A standalone or replica-role Engine only runs the store check.
func (e *Engine) Health(ctx context.Context) HealthReport {
	var results []health.Result

	storeCheck := health.NewStoreCorruptChecker(e.probeStore)
	results = append(results, storeCheck.Check(ctx))

	if e.master != nil {
		for _, h := range e.master.Replicas() {
			h := h
			lagCheck := health.NewReplicationLagChecker(e.walLog.LastLSN, func() wal.ReplicaHandle { return h })
			results = append(results, lagCheck.Check(ctx))
		}
	}

	report := HealthReport{Healthy: true, Checks: results}
	for _, r := range results {
		if !r.Healthy {
			report.Healthy = false
		}
	}
	return report
}

// probeStore is the cheap consistency check StoreCorruptChecker runs: the
// store must not have tripped into read-only mode after a WAL write
// failure (txn.Manager.Commit's documented failure path).
func (e *Engine) probeStore() error {
	if e.txnMgr.ReadOnly() {
		return fmt.Errorf("store is read-only after a prior WAL write failure")
	}
	return nil
}
