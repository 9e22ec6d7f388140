package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/nexusdb/nexus/pkg/types"
)

// frameMagic opens every on-disk and wire frame: [magic:2][entry_type:1]
// [lsn:8][length:4][payload:length][crc32:4], authoritative per spec 6.
const frameMagic = 0x4E58 // "NX"

const frameHeaderSize = 2 + 1 + 8 + 4 // magic, entry_type, lsn, length
const frameTrailerSize = 4            // crc32

// ErrWalUnreadable is returned for a frame whose entry_type this build
// doesn't recognize, per spec 6: "Unknown entry types after an upgrade
// cause WalUnreadable."
var ErrWalUnreadable = fmt.Errorf("wal: unreadable entry type")

// encodeFrame renders entry as the on-disk/wire byte frame. The CRC covers
// entry_type..payload, not the leading magic.
func encodeFrame(entry types.WALEntry) []byte {
	buf := make([]byte, frameHeaderSize+len(entry.Payload)+frameTrailerSize)
	binary.LittleEndian.PutUint16(buf[0:], frameMagic)
	buf[2] = byte(entry.Op)
	binary.LittleEndian.PutUint64(buf[3:], entry.LSN)
	binary.LittleEndian.PutUint32(buf[11:], uint32(len(entry.Payload)))
	copy(buf[frameHeaderSize:], entry.Payload)

	crc := crc32.ChecksumIEEE(buf[2 : frameHeaderSize+len(entry.Payload)])
	binary.LittleEndian.PutUint32(buf[frameHeaderSize+len(entry.Payload):], crc)
	return buf
}

// decodeFrame parses one frame from the front of buf, returning the entry,
// the number of bytes consumed, and an error. A short buf (partial frame
// at EOF) returns (zero, 0, io.ErrUnexpectedEOF)-shaped behavior via a nil
// error and consumed=0, letting the reader ask for more bytes.
func decodeFrame(buf []byte) (entry types.WALEntry, consumed int, err error) {
	if len(buf) < frameHeaderSize {
		return types.WALEntry{}, 0, nil
	}
	if binary.LittleEndian.Uint16(buf[0:]) != frameMagic {
		return types.WALEntry{}, 0, fmt.Errorf("wal: bad frame magic")
	}
	length := binary.LittleEndian.Uint32(buf[11:])
	total := frameHeaderSize + int(length) + frameTrailerSize
	if len(buf) < total {
		return types.WALEntry{}, 0, nil
	}

	op := types.WALOpTag(buf[2])
	lsn := binary.LittleEndian.Uint64(buf[3:])
	payload := append([]byte{}, buf[frameHeaderSize:frameHeaderSize+int(length)]...)
	wantCRC := binary.LittleEndian.Uint32(buf[frameHeaderSize+int(length):])

	gotCRC := crc32.ChecksumIEEE(buf[2 : frameHeaderSize+int(length)])
	if gotCRC != wantCRC {
		return types.WALEntry{}, total, fmt.Errorf("wal: crc mismatch at lsn %d", lsn)
	}
	if !knownOpTag(op) {
		return types.WALEntry{}, total, ErrWalUnreadable
	}

	return types.WALEntry{LSN: lsn, Op: op, Payload: payload, CRC: gotCRC}, total, nil
}

func knownOpTag(op types.WALOpTag) bool {
	switch op {
	case types.OpCreateNode, types.OpSetProperty, types.OpCreateRel,
		types.OpDeleteNode, types.OpDeleteRel, types.OpCatalogAdd, types.OpCommit:
		return true
	default:
		return false
	}
}
