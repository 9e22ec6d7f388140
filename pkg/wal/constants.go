package wal

import "time"

// Protocol and replication defaults, named directly after spec 4.5/6.
const (
	DefaultReplicationPort    = 15475
	DefaultHeartbeatInterval  = 5000 * time.Millisecond
	MissedHeartbeatsThreshold = 3
	LagWarningThreshold       = 10_000
	MaxReplicationLogSize     = 1_000_000
	MaxReconnectBackoff       = 30 * time.Second

	defaultMaxSegmentBytes = 64 << 20 // 64MiB per wal.log.NNNNNN segment
)

// Mode is the configured commit-acknowledgement mode. The master records it
// on each ReplicaHandle; in both modes a commit returns once the local WAL
// append is durable, without waiting for any replica ack.
type Mode string

const (
	ModeAsync Mode = "async"
	ModeSync  Mode = "sync"
)

// Role is a node's position in the replication topology.
type Role string

const (
	RoleStandalone Role = "standalone"
	RoleMaster     Role = "master"
	RoleReplica    Role = "replica"
)
