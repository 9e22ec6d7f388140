package wal

import (
	"encoding/binary"
	"fmt"

	"github.com/nexusdb/nexus/pkg/types"
)

// MsgType tags every message on the replication wire. Messages use the WAL
// frame header layout, [magic:2][entry_type:1][lsn:8][length:4][payload],
// but unlike WAL frames they carry no trailing crc32, so a corrupted
// message is not detected by the framing. The lsn field is repurposed as a generic sequence
// field for message types that have no natural LSN (Heartbeat, Hello).
type MsgType uint8

const (
	MsgHello MsgType = iota + 1
	MsgResume
	MsgFullSyncBegin
	MsgFullSyncChunk
	MsgFullSyncEnd
	MsgWalBatch
	MsgAck
	MsgHeartbeat
	MsgPromote
)

// Message is one frame exchanged between master and replica.
type Message struct {
	Type    MsgType
	LSN     uint64
	Payload []byte
}

func encodeMessage(m Message) []byte {
	buf := make([]byte, 2+1+8+4+len(m.Payload))
	binary.LittleEndian.PutUint16(buf[0:], frameMagic)
	buf[2] = byte(m.Type)
	binary.LittleEndian.PutUint64(buf[3:], m.LSN)
	binary.LittleEndian.PutUint32(buf[11:], uint32(len(m.Payload)))
	copy(buf[15:], m.Payload)
	return buf
}

func decodeMessage(buf []byte) (m Message, consumed int, err error) {
	if len(buf) < 15 {
		return Message{}, 0, nil
	}
	if binary.LittleEndian.Uint16(buf[0:]) != frameMagic {
		return Message{}, 0, fmt.Errorf("wal: bad message magic")
	}
	length := binary.LittleEndian.Uint32(buf[11:])
	total := 15 + int(length)
	if len(buf) < total {
		return Message{}, 0, nil
	}
	payload := append([]byte{}, buf[15:total]...)
	return Message{Type: MsgType(buf[2]), LSN: binary.LittleEndian.Uint64(buf[3:]), Payload: payload}, total, nil
}

// HelloPayload is sent by a connecting replica to identify itself and the
// last LSN it has durably applied.
type HelloPayload struct {
	ReplicaID string
	LastLSN   uint64
}

func encodeHello(h HelloPayload) []byte {
	idBytes := []byte(h.ReplicaID)
	buf := make([]byte, 4+len(idBytes)+8)
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(idBytes)))
	copy(buf[4:], idBytes)
	binary.LittleEndian.PutUint64(buf[4+len(idBytes):], h.LastLSN)
	return buf
}

func decodeHello(buf []byte) (HelloPayload, error) {
	if len(buf) < 4 {
		return HelloPayload{}, fmt.Errorf("wal: truncated hello")
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n+8 {
		return HelloPayload{}, fmt.Errorf("wal: truncated hello body")
	}
	id := string(buf[:n])
	lastLSN := binary.LittleEndian.Uint64(buf[n:])
	return HelloPayload{ReplicaID: id, LastLSN: lastLSN}, nil
}

// encodeWalBatch packs multiple WAL entries into one MsgWalBatch payload.
func encodeWalBatch(entries []types.WALEntry) []byte {
	buf := appendUint32(nil, uint32(len(entries)))
	for _, e := range entries {
		frame := encodeFrame(e)
		buf = appendUint32(buf, uint32(len(frame)))
		buf = append(buf, frame...)
	}
	return buf
}

func decodeWalBatch(buf []byte) ([]types.WALEntry, error) {
	n, buf, err := readUint32(buf)
	if err != nil {
		return nil, err
	}
	out := make([]types.WALEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		flen, rest, err := readUint32(buf)
		if err != nil {
			return nil, err
		}
		if uint32(len(rest)) < flen {
			return nil, fmt.Errorf("wal: truncated batch frame")
		}
		entry, consumed, err := decodeFrame(rest[:flen])
		if err != nil {
			return nil, err
		}
		if consumed == 0 {
			return nil, fmt.Errorf("wal: incomplete batch frame")
		}
		out = append(out, entry)
		buf = rest[flen:]
	}
	return out, nil
}

// AckPayload describes a replica's acknowledgement of durable application
// through LSN. It is not encoded on the wire: the replica sends MsgAck with
// the acknowledged LSN in the frame's lsn field and an empty payload, and
// the master computes replication lag from that field.
type AckPayload struct {
	LSN uint64
}
