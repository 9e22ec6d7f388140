package wal

import (
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrips(t *testing.T) {
	entry := types.WALEntry{LSN: 42, Op: types.OpCommit, Payload: []byte("hello world")}
	frame := encodeFrame(entry)

	got, consumed, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, entry.LSN, got.LSN)
	assert.Equal(t, entry.Op, got.Op)
	assert.Equal(t, entry.Payload, got.Payload)
}

func TestDecodeFrameAsksForMoreOnPartialBuffer(t *testing.T) {
	entry := types.WALEntry{LSN: 1, Op: types.OpCommit, Payload: []byte("x")}
	frame := encodeFrame(entry)

	_, consumed, err := decodeFrame(frame[:len(frame)-3])
	require.NoError(t, err)
	assert.Equal(t, 0, consumed)
}

func TestDecodeFrameRejectsCorruptedCRC(t *testing.T) {
	entry := types.WALEntry{LSN: 1, Op: types.OpCommit, Payload: []byte("x")}
	frame := encodeFrame(entry)
	frame[len(frame)-1] ^= 0xFF

	_, _, err := decodeFrame(frame)
	assert.Error(t, err)
}

func TestDecodeFrameRejectsUnknownOpTag(t *testing.T) {
	entry := types.WALEntry{LSN: 1, Op: types.WALOpTag(250), Payload: nil}
	frame := encodeFrame(entry)

	_, _, err := decodeFrame(frame)
	assert.ErrorIs(t, err, ErrWalUnreadable)
}

func TestCommitRecordRoundTrips(t *testing.T) {
	tx := &types.Transaction{
		ID: 1,
		NewNodes: []*types.StagedNode{
			{Labels: []types.LabelID{1, 2}, Properties: map[types.KeyID]types.Value{1: types.IntValue(7)}},
		},
		NewRels: []*types.StagedRel{
			{Type: 3, Source: 1, Target: 2, Properties: map[types.KeyID]types.Value{2: types.StringValue("x")}},
		},
	}
	payload := EncodeCommit(tx)

	rec, err := DecodeCommit(payload)
	require.NoError(t, err)
	require.Len(t, rec.NewNodes, 1)
	require.Len(t, rec.NewRels, 1)
	assert.Equal(t, []types.LabelID{1, 2}, rec.NewNodes[0].Labels)
	assert.Equal(t, int64(7), rec.NewNodes[0].Properties[1].Int64)
	assert.Equal(t, "x", rec.NewRels[0].Properties[2].Str)
}

func TestValueCodecRoundTripsAllKinds(t *testing.T) {
	props := map[types.KeyID]types.Value{
		1: types.Null,
		2: types.BoolValue(true),
		3: types.IntValue(-9),
		4: types.FloatValue(3.5),
		5: types.StringValue("graph"),
		6: types.BytesValue([]byte{1, 2, 3}),
		7: types.ListValue([]types.Value{types.IntValue(1), types.IntValue(2)}),
		8: types.MapValue(map[string]types.Value{"a": types.IntValue(1)}),
	}
	buf := encodeProps(props)
	got, rest, err := decodeProps(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, len(props), len(got))
	assert.Equal(t, int64(-9), got[3].Int64)
	assert.Equal(t, "graph", got[5].Str)
}

func TestLogAppendAssignsIncreasingLSNs(t *testing.T) {
	l, err := Open(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer l.Close()

	var lsns []uint64
	for i := 0; i < 5; i++ {
		lsn := l.NextLSN()
		err := l.Append(types.WALEntry{LSN: lsn, Op: types.OpCommit, Payload: []byte{byte(i)}})
		require.NoError(t, err)
		lsns = append(lsns, lsn)
	}
	for i := 1; i < len(lsns); i++ {
		assert.Greater(t, lsns[i], lsns[i-1])
	}
	assert.Equal(t, lsns[len(lsns)-1], l.LastLSN())
}

func TestLogReplaysAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		lsn := l.NextLSN()
		require.NoError(t, l.Append(types.WALEntry{LSN: lsn, Op: types.OpCommit, Payload: []byte{byte(i)}}))
	}
	require.NoError(t, l.Close())

	l2, err := Open(Options{Dir: dir})
	require.NoError(t, err)
	defer l2.Close()

	assert.Equal(t, uint64(3), l2.LastLSN())
	entries, ok := l2.Since(0)
	require.True(t, ok)
	assert.Len(t, entries, 3)
}

func TestLogRollsSegmentsOnSize(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(Options{Dir: dir, MaxSegmentSize: 64})
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 20; i++ {
		lsn := l.NextLSN()
		require.NoError(t, l.Append(types.WALEntry{LSN: lsn, Op: types.OpCommit, Payload: []byte("payload-bytes")}))
	}

	matches, err := filepath.Glob(filepath.Join(dir, segmentPrefix+"*"))
	require.NoError(t, err)
	assert.Greater(t, len(matches), 1)
}

func TestRingBufferSinceReturnsOkWithinWindow(t *testing.T) {
	rb := newRingBuffer(4)
	for i := uint64(1); i <= 4; i++ {
		rb.push(types.WALEntry{LSN: i})
	}
	entries, ok := rb.since(2)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].LSN)
	assert.Equal(t, uint64(4), entries[1].LSN)
}

func TestRingBufferSinceFailsOutsideWindow(t *testing.T) {
	rb := newRingBuffer(2)
	for i := uint64(1); i <= 5; i++ {
		rb.push(types.WALEntry{LSN: i})
	}
	_, ok := rb.since(1)
	assert.False(t, ok)
}

func TestBrokerFansOutToSubscribers(t *testing.T) {
	b := NewBroker()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Broadcast([]types.WALEntry{{LSN: 1}, {LSN: 2}})

	first := <-ch
	second := <-ch
	assert.Equal(t, uint64(1), first.LSN)
	assert.Equal(t, uint64(2), second.LSN)
}

func TestSnapshotComponentRoundTrips(t *testing.T) {
	comp := Component{Tag: ComponentStore, Data: []byte("store-bytes")}
	encoded := encodeComponent(comp)

	got, err := decodeComponent(encoded)
	require.NoError(t, err)
	assert.Equal(t, comp.Tag, got.Tag)
	assert.Equal(t, comp.Data, got.Data)
}

func TestWalBatchRoundTrips(t *testing.T) {
	entries := []types.WALEntry{
		{LSN: 1, Op: types.OpCommit, Payload: []byte("a")},
		{LSN: 2, Op: types.OpCommit, Payload: []byte("bb")},
	}
	buf := encodeWalBatch(entries)
	got, err := decodeWalBatch(buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entries[0].LSN, got[0].LSN)
	assert.Equal(t, entries[1].Payload, got[1].Payload)
}
