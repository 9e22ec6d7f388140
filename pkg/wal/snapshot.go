package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/nexusdb/nexus/pkg/nexuserr"
)

// ComponentTag identifies one section of a snapshot. A full sync sends the
// snapshot LSN in MsgFullSyncBegin, then each component as its own
// MsgFullSyncChunk encoded as (tag, length, data, crc32); there is no
// header listing the component count or lengths.
type ComponentTag uint8

const (
	ComponentCatalog ComponentTag = iota + 1
	ComponentStore
	ComponentIndex
)

// Component is one named byte blob inside a Snapshot.
type Component struct {
	Tag  ComponentTag
	Data []byte
}

// Snapshot bootstraps a new or far-behind replica: a point-in-time copy of
// every durable component. Each component is checksummed on its own when
// encoded; the snapshot as a whole has no CRC.
type Snapshot struct {
	LSN        uint64
	Components []Component
}

// SnapshotSource lets takeSnapshot pull a consistent point-in-time byte
// copy of each durable component without pkg/wal importing pkg/store,
// pkg/catalog or pkg/index directly (those packages never need to know
// about replication).
type SnapshotSource interface {
	SnapshotCatalog() ([]byte, error)
	SnapshotStore() ([]byte, error)
	SnapshotIndex() ([]byte, error)
}

// takeSnapshot returns a Snapshot holding only the log's current LSN;
// Components is empty. BuildSnapshot is the variant that reads the
// components from a SnapshotSource.
func takeSnapshot(l *Log) (Snapshot, error) {
	return Snapshot{LSN: l.LastLSN()}, nil
}

// BuildSnapshot assembles a full Snapshot from a live engine's components,
// for use by the replication master when streaming a full sync.
func BuildSnapshot(lsn uint64, src SnapshotSource) (Snapshot, error) {
	cat, err := src.SnapshotCatalog()
	if err != nil {
		return Snapshot{}, nexuserr.IoError("snapshotting catalog", err)
	}
	store, err := src.SnapshotStore()
	if err != nil {
		return Snapshot{}, nexuserr.IoError("snapshotting store", err)
	}
	idx, err := src.SnapshotIndex()
	if err != nil {
		return Snapshot{}, nexuserr.IoError("snapshotting index", err)
	}
	return Snapshot{
		LSN: lsn,
		Components: []Component{
			{Tag: ComponentCatalog, Data: cat},
			{Tag: ComponentStore, Data: store},
			{Tag: ComponentIndex, Data: idx},
		},
	}, nil
}

func encodeComponent(c Component) []byte {
	buf := make([]byte, 1+4+len(c.Data)+4)
	buf[0] = byte(c.Tag)
	binary.LittleEndian.PutUint32(buf[1:], uint32(len(c.Data)))
	copy(buf[5:], c.Data)
	crc := crc32.ChecksumIEEE(buf[:5+len(c.Data)])
	binary.LittleEndian.PutUint32(buf[5+len(c.Data):], crc)
	return buf
}

func decodeComponent(buf []byte) (Component, error) {
	if len(buf) < 5 {
		return Component{}, fmt.Errorf("wal: truncated snapshot component")
	}
	tag := ComponentTag(buf[0])
	length := binary.LittleEndian.Uint32(buf[1:])
	if uint32(len(buf)) < 5+length+4 {
		return Component{}, fmt.Errorf("wal: truncated snapshot component body")
	}
	data := append([]byte{}, buf[5:5+length]...)
	wantCRC := binary.LittleEndian.Uint32(buf[5+length:])
	gotCRC := crc32.ChecksumIEEE(buf[:5+length])
	if gotCRC != wantCRC {
		return Component{}, fmt.Errorf("wal: snapshot component crc mismatch")
	}
	return Component{Tag: tag, Data: data}, nil
}
