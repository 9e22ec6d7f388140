package wal

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/rs/zerolog"
)

// ApplySink is what a replica hands incoming WAL entries and snapshot
// components to, so pkg/wal never needs to import pkg/txn or pkg/store
// directly.
type ApplySink interface {
	ApplyWALEntry(entry types.WALEntry) error
	RestoreSnapshot(snap Snapshot) error
}

// Replica connects to a master, applies its streamed WAL batches, and
// reconnects with backoff on disconnect. It tracks missed heartbeats to
// detect a hung-but-open connection.
type Replica struct {
	ReplicaID  string
	masterAddr string
	sink       ApplySink
	lastLSN    atomic.Uint64

	pendingSnapshot *Snapshot

	stopCh chan struct{}
	logger zerolog.Logger
}

// NewReplica prepares a replica streamer. lastLSN is the last LSN this
// replica has durably applied, read from its own WAL on startup.
func NewReplica(replicaID, masterAddr string, lastLSN uint64, sink ApplySink) *Replica {
	r := &Replica{ReplicaID: replicaID, masterAddr: masterAddr, sink: sink, stopCh: make(chan struct{}), logger: log.WithComponent("wal.replica")}
	r.lastLSN.Store(lastLSN)
	return r
}

// Run connects and streams until Stop is called, reconnecting with
// exponential backoff bounded at MaxReconnectBackoff on any disconnect.
func (r *Replica) Run() {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever until Stop
	bo.MaxInterval = MaxReconnectBackoff

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		if err := r.connectAndStream(); err != nil {
			wait := bo.NextBackOff()
			r.logger.Warn().Err(err).Dur("retry_in", wait).Msg("replica disconnected from master")
			select {
			case <-time.After(wait):
			case <-r.stopCh:
				return
			}
			continue
		}
		bo.Reset()
	}
}

// Stop halts the reconnect loop.
func (r *Replica) Stop() {
	close(r.stopCh)
}

func (r *Replica) connectAndStream() error {
	conn, err := net.DialTimeout("tcp", r.masterAddr, 10*time.Second)
	if err != nil {
		return nexuserr.ReplicationError("dialing master", err)
	}
	defer conn.Close()

	hello := HelloPayload{ReplicaID: r.ReplicaID, LastLSN: r.lastLSN.Load()}
	if _, err := conn.Write(encodeMessage(Message{Type: MsgHello, Payload: encodeHello(hello)})); err != nil {
		return nexuserr.ReplicationError("sending hello", err)
	}

	missed := 0
	deadline := time.NewTicker(DefaultHeartbeatInterval)
	defer deadline.Stop()

	buf := make([]byte, 0, 1<<20)
	tmp := make([]byte, 64*1024)
	msgCh := make(chan Message, 64)
	errCh := make(chan error, 1)

	go func() {
		for {
			n, err := conn.Read(tmp)
			if err != nil {
				errCh <- err
				return
			}
			buf = append(buf, tmp[:n]...)
			for {
				msg, consumed, err := decodeMessage(buf)
				if err != nil {
					errCh <- err
					return
				}
				if consumed == 0 {
					break
				}
				buf = buf[consumed:]
				msgCh <- msg
			}
		}
	}()

	for {
		select {
		case <-r.stopCh:
			return nil
		case err := <-errCh:
			return nexuserr.ReplicationError("reading from master", err)
		case <-deadline.C:
			missed++
			if missed >= MissedHeartbeatsThreshold {
				return nexuserr.ReplicationError("missed heartbeats from master", nil)
			}
		case msg := <-msgCh:
			missed = 0
			if err := r.handle(msg, conn); err != nil {
				return err
			}
		}
	}
}

func (r *Replica) handle(msg Message, conn net.Conn) error {
	switch msg.Type {
	case MsgHeartbeat:
		return nil
	case MsgWalBatch:
		entries, err := decodeWalBatch(msg.Payload)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := r.sink.ApplyWALEntry(e); err != nil {
				return err
			}
			r.lastLSN.Store(e.LSN)
		}
		_, err = conn.Write(encodeMessage(Message{Type: MsgAck, LSN: r.lastLSN.Load()}))
		return err
	case MsgFullSyncBegin:
		r.pendingSnapshot = &Snapshot{LSN: msg.LSN}
		return nil
	case MsgFullSyncChunk:
		comp, err := decodeComponent(msg.Payload)
		if err != nil {
			return err
		}
		if r.pendingSnapshot != nil {
			r.pendingSnapshot.Components = append(r.pendingSnapshot.Components, comp)
		}
		return nil
	case MsgFullSyncEnd:
		if r.pendingSnapshot == nil {
			return nexuserr.ReplicationError("full sync end with no begin", nil)
		}
		if err := r.sink.RestoreSnapshot(*r.pendingSnapshot); err != nil {
			return err
		}
		r.lastLSN.Store(r.pendingSnapshot.LSN)
		r.pendingSnapshot = nil
		return nil
	default:
		return nil
	}
}

// LastLSN returns the last LSN this replica has applied.
func (r *Replica) LastLSN() uint64 {
	return r.lastLSN.Load()
}
