package wal

import (
	"encoding/binary"
	"fmt"

	"github.com/nexusdb/nexus/pkg/types"
)

// CommitRecord is the decoded payload of an OpCommit entry: every staged
// node/relationship op that made up one transaction, replayed together or
// not at all (spec 8 invariant 4, commit atomicity).
type CommitRecord struct {
	NewNodes    []types.StagedNode
	StagedNodes []types.StagedNode
	NewRels     []types.StagedRel
	StagedRels  []types.StagedRel
}

// EncodeCommit serializes every staged op of tx into one WAL payload.
func EncodeCommit(tx *types.Transaction) []byte {
	var buf []byte
	buf = appendUint32(buf, uint32(len(tx.NewNodes)))
	for _, n := range tx.NewNodes {
		buf = appendStagedNode(buf, *n)
	}
	buf = appendUint32(buf, uint32(len(tx.StagedNodes)))
	for _, n := range tx.StagedNodes {
		buf = appendStagedNode(buf, *n)
	}
	buf = appendUint32(buf, uint32(len(tx.NewRels)))
	for _, r := range tx.NewRels {
		buf = appendStagedRel(buf, *r)
	}
	buf = appendUint32(buf, uint32(len(tx.StagedRels)))
	for _, r := range tx.StagedRels {
		buf = appendStagedRel(buf, *r)
	}
	return buf
}

// DecodeCommit parses a commit payload back into its staged ops, for WAL
// replay (recovery) or replica apply.
func DecodeCommit(payload []byte) (*CommitRecord, error) {
	rec := &CommitRecord{}
	buf := payload

	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, err
	}
	buf = rest
	for i := uint32(0); i < n; i++ {
		sn, rest, err := readStagedNode(buf)
		if err != nil {
			return nil, err
		}
		rec.NewNodes = append(rec.NewNodes, sn)
		buf = rest
	}

	n, rest, err = readUint32(buf)
	if err != nil {
		return nil, err
	}
	buf = rest
	for i := uint32(0); i < n; i++ {
		sn, rest, err := readStagedNode(buf)
		if err != nil {
			return nil, err
		}
		rec.StagedNodes = append(rec.StagedNodes, sn)
		buf = rest
	}

	n, rest, err = readUint32(buf)
	if err != nil {
		return nil, err
	}
	buf = rest
	for i := uint32(0); i < n; i++ {
		sr, rest, err := readStagedRel(buf)
		if err != nil {
			return nil, err
		}
		rec.NewRels = append(rec.NewRels, sr)
		buf = rest
	}

	n, rest, err = readUint32(buf)
	if err != nil {
		return nil, err
	}
	buf = rest
	for i := uint32(0); i < n; i++ {
		sr, rest, err := readStagedRel(buf)
		if err != nil {
			return nil, err
		}
		rec.StagedRels = append(rec.StagedRels, sr)
		buf = rest
	}

	return rec, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}

func appendUint64(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return append(buf, b...)
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, fmt.Errorf("wal: truncated uint32")
	}
	return binary.LittleEndian.Uint32(buf), buf[4:], nil
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, fmt.Errorf("wal: truncated uint64")
	}
	return binary.LittleEndian.Uint64(buf), buf[8:], nil
}

func appendStagedNode(buf []byte, n types.StagedNode) []byte {
	buf = appendUint64(buf, uint64(n.ID))
	deleted := byte(0)
	if n.Deleted {
		deleted = 1
	}
	buf = append(buf, deleted)
	buf = appendUint32(buf, uint32(len(n.Labels)))
	for _, l := range n.Labels {
		buf = appendUint32(buf, uint32(l))
	}
	buf = append(buf, encodeProps(n.Properties)...)
	return buf
}

func readStagedNode(buf []byte) (types.StagedNode, []byte, error) {
	id, buf, err := readUint64(buf)
	if err != nil {
		return types.StagedNode{}, nil, err
	}
	if len(buf) < 1 {
		return types.StagedNode{}, nil, fmt.Errorf("wal: truncated staged node")
	}
	deleted := buf[0] != 0
	buf = buf[1:]

	labelCount, buf, err := readUint32(buf)
	if err != nil {
		return types.StagedNode{}, nil, err
	}
	labels := make([]types.LabelID, labelCount)
	for i := range labels {
		v, rest, err := readUint32(buf)
		if err != nil {
			return types.StagedNode{}, nil, err
		}
		labels[i] = types.LabelID(v)
		buf = rest
	}

	props, rest, err := decodeProps(buf)
	if err != nil {
		return types.StagedNode{}, nil, err
	}
	return types.StagedNode{ID: types.NodeID(id), Labels: labels, Properties: props, Deleted: deleted}, rest, nil
}

func appendStagedRel(buf []byte, r types.StagedRel) []byte {
	buf = appendUint64(buf, uint64(r.ID))
	deleted := byte(0)
	if r.Deleted {
		deleted = 1
	}
	buf = append(buf, deleted)
	buf = appendUint32(buf, uint32(r.Type))
	buf = appendUint64(buf, uint64(r.Source))
	buf = appendUint64(buf, uint64(r.Target))
	buf = append(buf, encodeProps(r.Properties)...)
	return buf
}

func readStagedRel(buf []byte) (types.StagedRel, []byte, error) {
	id, buf, err := readUint64(buf)
	if err != nil {
		return types.StagedRel{}, nil, err
	}
	if len(buf) < 1 {
		return types.StagedRel{}, nil, fmt.Errorf("wal: truncated staged rel")
	}
	deleted := buf[0] != 0
	buf = buf[1:]

	typ, buf, err := readUint32(buf)
	if err != nil {
		return types.StagedRel{}, nil, err
	}
	src, buf, err := readUint64(buf)
	if err != nil {
		return types.StagedRel{}, nil, err
	}
	dst, buf, err := readUint64(buf)
	if err != nil {
		return types.StagedRel{}, nil, err
	}
	props, rest, err := decodeProps(buf)
	if err != nil {
		return types.StagedRel{}, nil, err
	}
	return types.StagedRel{
		ID: types.RelID(id), Type: types.TypeID(typ),
		Source: types.NodeID(src), Target: types.NodeID(dst),
		Properties: props, Deleted: deleted,
	}, rest, nil
}
