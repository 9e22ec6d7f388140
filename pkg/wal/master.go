package wal

import (
	"net"
	"sync"
	"time"

	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/rs/zerolog"
)

// ReplicaHandle is a master's view of one connected replica stream: the
// last LSN it acknowledged and how far behind it is.
type ReplicaHandle struct {
	ID         string
	Addr       string
	AckedLSN   uint64
	Mode       Mode
	connectedAt time.Time
}

// Lag reports master_lsn - AckedLSN, the replication lag used against
// LagWarningThreshold.
func (r *ReplicaHandle) Lag(masterLSN uint64) uint64 {
	if masterLSN <= r.AckedLSN {
		return 0
	}
	return masterLSN - r.AckedLSN
}

// Master streams committed WAL entries to connected replicas over TCP,
// tracks per-replica lag, and sends periodic heartbeats. It is not a
// consensus protocol: a replica that never acks just falls further
// behind, visible via Lag and the health package's checks.
type Master struct {
	mu       sync.RWMutex
	log      *Log
	mode     Mode
	src      SnapshotSource
	replicas map[string]*ReplicaHandle

	listener net.Listener
	stopCh   chan struct{}
	logger   zerolog.Logger
}

// NewMaster wraps log for streaming to replicas in the given ack mode.
func NewMaster(l *Log, mode Mode) *Master {
	return &Master{
		log:      l,
		mode:     mode,
		replicas: make(map[string]*ReplicaHandle),
		stopCh:   make(chan struct{}),
		logger:   log.WithComponent("wal.master"),
	}
}

// ListenAndServe accepts replica connections on addr until Stop is called.
func (m *Master) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nexuserr.ReplicationError("listening for replicas", err)
	}
	m.listener = ln
	go m.acceptLoop()
	return nil
}

// SetSnapshotSource attaches the live catalog/store/index so full syncs can
// pull a real point-in-time copy rather than an LSN-only stub.
func (m *Master) SetSnapshotSource(src SnapshotSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = src
}

// Stop closes the listener and disconnects every replica.
func (m *Master) Stop() {
	close(m.stopCh)
	if m.listener != nil {
		m.listener.Close()
	}
}

func (m *Master) acceptLoop() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			select {
			case <-m.stopCh:
				return
			default:
				m.logger.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		go m.serveReplica(conn)
	}
}

func (m *Master) serveReplica(conn net.Conn) {
	defer conn.Close()

	hello, err := readHello(conn)
	if err != nil {
		m.logger.Warn().Err(err).Msg("replica handshake failed")
		return
	}

	handle := &ReplicaHandle{ID: hello.ReplicaID, Addr: conn.RemoteAddr().String(), AckedLSN: hello.LastLSN, Mode: m.mode, connectedAt: time.Now()}
	m.mu.Lock()
	m.replicas[handle.ID] = handle
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.replicas, handle.ID)
		m.mu.Unlock()
	}()

	replicaLogger := log.WithReplicaAddr(handle.Addr)
	replicaLogger.Info().Str("replica_id", handle.ID).Uint64("last_lsn", hello.LastLSN).Msg("replica connected")

	backlog, ok := m.log.Since(hello.LastLSN)
	if !ok {
		if err := m.fullSync(conn, handle); err != nil {
			replicaLogger.Warn().Err(err).Msg("full sync failed")
			return
		}
	} else if len(backlog) > 0 {
		if err := writeMessage(conn, Message{Type: MsgWalBatch, Payload: encodeWalBatch(backlog)}); err != nil {
			return
		}
	}

	sub, unsubscribe := m.log.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(DefaultHeartbeatInterval)
	defer ticker.Stop()

	ackCh := make(chan uint64, 16)
	go m.readAcks(conn, ackCh)

	var pending []types.WALEntry
	flush := time.NewTicker(10 * time.Millisecond)
	defer flush.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case entry, open := <-sub:
			if !open {
				return
			}
			pending = append(pending, entry)
		case <-flush.C:
			if len(pending) == 0 {
				continue
			}
			if err := writeMessage(conn, Message{Type: MsgWalBatch, Payload: encodeWalBatch(pending)}); err != nil {
				replicaLogger.Warn().Err(err).Msg("streaming write failed")
				return
			}
			pending = nil
		case <-ticker.C:
			if err := writeMessage(conn, Message{Type: MsgHeartbeat}); err != nil {
				return
			}
			lag := handle.Lag(m.log.LastLSN())
			if lag > LagWarningThreshold {
				replicaLogger.Warn().Uint64("lag", lag).Msg("replica falling behind")
			}
		case lsn := <-ackCh:
			m.mu.Lock()
			handle.AckedLSN = lsn
			m.mu.Unlock()
		}
	}
}

func (m *Master) fullSync(conn net.Conn, handle *ReplicaHandle) error {
	m.mu.RLock()
	src := m.src
	m.mu.RUnlock()

	var snap Snapshot
	var err error
	if src != nil {
		snap, err = BuildSnapshot(m.log.LastLSN(), src)
	} else {
		snap, err = takeSnapshot(m.log)
	}
	if err != nil {
		return err
	}
	if err := writeMessage(conn, Message{Type: MsgFullSyncBegin, LSN: snap.LSN}); err != nil {
		return err
	}
	for _, comp := range snap.Components {
		if err := writeMessage(conn, Message{Type: MsgFullSyncChunk, Payload: encodeComponent(comp)}); err != nil {
			return err
		}
	}
	return writeMessage(conn, Message{Type: MsgFullSyncEnd, LSN: snap.LSN})
}

func (m *Master) readAcks(conn net.Conn, out chan<- uint64) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		if err != nil {
			return
		}
		buf = append(buf, tmp[:n]...)
		for {
			msg, consumed, err := decodeMessage(buf)
			if err != nil || consumed == 0 {
				break
			}
			buf = buf[consumed:]
			if msg.Type == MsgAck {
				out <- msg.LSN
			}
		}
	}
}

// Replicas returns a snapshot of every currently connected replica handle.
func (m *Master) Replicas() []ReplicaHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ReplicaHandle, 0, len(m.replicas))
	for _, h := range m.replicas {
		out = append(out, *h)
	}
	return out
}

func writeMessage(conn net.Conn, m Message) error {
	_, err := conn.Write(encodeMessage(m))
	return err
}

func readHello(conn net.Conn) (HelloPayload, error) {
	buf := make([]byte, 0, 256)
	tmp := make([]byte, 256)
	for {
		n, err := conn.Read(tmp)
		if err != nil {
			return HelloPayload{}, err
		}
		buf = append(buf, tmp[:n]...)
		msg, consumed, err := decodeMessage(buf)
		if err != nil {
			return HelloPayload{}, err
		}
		if consumed == 0 {
			continue
		}
		return decodeHello(msg.Payload)
	}
}
