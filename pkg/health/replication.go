package health

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusdb/nexus/pkg/wal"
)

// ReplicationLagChecker reports unhealthy once a replica's acknowledged
// LSN falls more than wal.LagWarningThreshold behind the master.
type ReplicationLagChecker struct {
	MasterLSN func() uint64
	Handle    func() wal.ReplicaHandle
}

func NewReplicationLagChecker(masterLSN func() uint64, handle func() wal.ReplicaHandle) *ReplicationLagChecker {
	return &ReplicationLagChecker{MasterLSN: masterLSN, Handle: handle}
}

func (c *ReplicationLagChecker) Check(ctx context.Context) Result {
	start := time.Now()
	h := c.Handle()
	lag := h.Lag(c.MasterLSN())
	healthy := lag <= wal.LagWarningThreshold
	msg := fmt.Sprintf("replica %s lag=%d", h.ID, lag)
	if !healthy {
		msg = fmt.Sprintf("replica %s lag=%d exceeds warning threshold %d", h.ID, lag, wal.LagWarningThreshold)
	}
	return Result{Healthy: healthy, Message: msg, CheckedAt: start, Duration: time.Since(start)}
}

func (c *ReplicationLagChecker) Type() CheckType { return CheckTypeReplicationLag }

// HeartbeatChecker reports unhealthy once a replica stream has missed
// wal.MissedHeartbeatsThreshold consecutive heartbeats.
type HeartbeatChecker struct {
	LastHeartbeat func() time.Time
	Interval      time.Duration
}

func NewHeartbeatChecker(lastHeartbeat func() time.Time) *HeartbeatChecker {
	return &HeartbeatChecker{LastHeartbeat: lastHeartbeat, Interval: wal.DefaultHeartbeatInterval}
}

func (c *HeartbeatChecker) Check(ctx context.Context) Result {
	start := time.Now()
	since := time.Since(c.LastHeartbeat())
	missed := time.Duration(wal.MissedHeartbeatsThreshold) * c.Interval
	healthy := since <= missed
	msg := fmt.Sprintf("last heartbeat %s ago", since.Round(time.Millisecond))
	if !healthy {
		msg = fmt.Sprintf("no heartbeat for %s, exceeds %d missed intervals", since.Round(time.Millisecond), wal.MissedHeartbeatsThreshold)
	}
	return Result{Healthy: healthy, Message: msg, CheckedAt: start, Duration: time.Since(start)}
}

func (c *HeartbeatChecker) Type() CheckType { return CheckTypeHeartbeat }
