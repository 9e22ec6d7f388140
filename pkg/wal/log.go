package wal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/rs/zerolog"
)

// segmentPrefix names every WAL segment file as wal.log.NNNNNN, rolled at
// defaultMaxSegmentBytes.
const segmentPrefix = "wal.log."

// Log owns the on-disk write-ahead log: a monotonic LSN counter, a segmented
// append-only file, and the in-memory ring buffer replicas tail from. It
// satisfies pkg/txn's WALAppender.
type Log struct {
	mu sync.Mutex

	dir         string
	lock        *flock.Flock
	file        *os.File
	segmentNum  int
	segmentSize int64
	maxSegment  int64

	lastLSN uint64
	ring    *ringBuffer
	bc      *Broker

	logger zerolog.Logger
}

// Options configures Open.
type Options struct {
	Dir            string
	MaxSegmentSize int64 // 0 uses defaultMaxSegmentBytes
	RingCapacity   int   // 0 uses MaxReplicationLogSize
}

// Open opens (creating if absent) the WAL directory at opts.Dir, replaying
// every existing segment to recover lastLSN and repopulate the ring buffer,
// and locks the directory exclusively: only one Log may write it at a time.
func Open(opts Options) (*Log, error) {
	if opts.MaxSegmentSize == 0 {
		opts.MaxSegmentSize = defaultMaxSegmentBytes
	}
	if opts.RingCapacity == 0 {
		opts.RingCapacity = MaxReplicationLogSize
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nexuserr.IoError("creating wal directory", err)
	}

	lock := flock.New(filepath.Join(opts.Dir, ".wal.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nexuserr.IoError("locking wal directory", err)
	}
	if !ok {
		return nil, nexuserr.IoError("wal directory already locked by another process", nil)
	}

	l := &Log{
		dir:        opts.Dir,
		lock:       lock,
		maxSegment: opts.MaxSegmentSize,
		ring:       newRingBuffer(opts.RingCapacity),
		bc:         NewBroker(),
		logger:     log.WithComponent("wal"),
	}

	if err := l.replay(); err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := l.openForAppend(); err != nil {
		lock.Unlock()
		return nil, err
	}
	return l, nil
}

func (l *Log) segmentPath(n int) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s%06d", segmentPrefix, n))
}

func (l *Log) listSegments() ([]int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var nums []int
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), segmentPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), segmentPrefix))
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

// replay reads every existing segment in order, rebuilding lastLSN and the
// ring buffer. A trailing partial frame (the writer crashed mid-append) is
// silently truncated, per spec 8 invariant 3 (replay idempotence).
func (l *Log) replay() error {
	nums, err := l.listSegments()
	if err != nil {
		return nexuserr.IoError("listing wal segments", err)
	}
	for _, n := range nums {
		if err := l.replaySegment(n); err != nil {
			return err
		}
		l.segmentNum = n
	}
	return nil
}

func (l *Log) replaySegment(n int) error {
	data, err := os.ReadFile(l.segmentPath(n))
	if err != nil {
		return nexuserr.IoError("reading wal segment", err)
	}
	off := 0
	for off < len(data) {
		entry, consumed, err := decodeFrame(data[off:])
		if err != nil {
			if err == ErrWalUnreadable {
				return nexuserr.StoreCorrupt("wal segment has an unrecognized entry type", err)
			}
			l.logger.Warn().Int("segment", n).Int("offset", off).Err(err).Msg("truncating wal at corrupt frame")
			break
		}
		if consumed == 0 {
			break // partial trailing frame, crash during write
		}
		if entry.LSN > l.lastLSN {
			l.lastLSN = entry.LSN
		}
		l.ring.push(entry)
		off += consumed
	}
	if off < len(data) {
		if err := os.Truncate(l.segmentPath(n), int64(off)); err != nil {
			return nexuserr.IoError("truncating wal segment", err)
		}
	}
	return nil
}

func (l *Log) openForAppend() error {
	path := l.segmentPath(l.segmentNum)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nexuserr.IoError("opening wal segment for append", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nexuserr.IoError("stating wal segment", err)
	}
	l.file = f
	l.segmentSize = info.Size()
	return nil
}

// NextLSN reserves and returns the next log sequence number. It does not
// persist anything; the caller must Append before the reservation is
// durable.
func (l *Log) NextLSN() uint64 {
	return atomic.AddUint64(&l.lastLSN, 1)
}

// Append frames entry, writes it to the current segment, and fsyncs before
// returning, per the durability contract txn.Manager.Commit relies on: the
// Transaction Manager only acknowledges a commit once Append has returned
// nil. A full segment is rolled to a new file first.
func (l *Log) Append(entry types.WALEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	frame := encodeFrame(entry)
	if l.segmentSize+int64(len(frame)) > l.maxSegment && l.segmentSize > 0 {
		if err := l.roll(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(frame)
	if err != nil {
		return nexuserr.WalWriteFailed(err)
	}
	if err := l.file.Sync(); err != nil {
		return nexuserr.WalWriteFailed(err)
	}
	l.segmentSize += int64(n)
	l.ring.push(entry)
	l.bc.Broadcast([]types.WALEntry{entry})
	return nil
}

func (l *Log) roll() error {
	if err := l.file.Close(); err != nil {
		return nexuserr.IoError("closing wal segment", err)
	}
	l.segmentNum++
	l.segmentSize = 0
	return l.openForAppend()
}

// Broadcast fans entries out to every registered replication stream without
// blocking the commit path, satisfying pkg/txn's Broadcaster.
func (l *Log) Broadcast(entries []types.WALEntry) {
	l.bc.Broadcast(entries)
}

// Subscribe registers a new replica stream and returns a channel of
// subsequently broadcast entries, plus an unsubscribe func.
func (l *Log) Subscribe() (<-chan types.WALEntry, func()) {
	return l.bc.Subscribe()
}

// Since returns every retained entry after lastLSN, or ok=false if lastLSN
// has aged out of the ring buffer and the caller needs a full sync instead.
func (l *Log) Since(lastLSN uint64) (entries []types.WALEntry, ok bool) {
	return l.ring.since(lastLSN)
}

// LastLSN returns the most recently assigned LSN.
func (l *Log) LastLSN() uint64 {
	return atomic.LoadUint64(&l.lastLSN)
}

// Close flushes and releases the WAL directory lock.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.file != nil {
		if syncErr := l.file.Sync(); syncErr != nil {
			err = syncErr
		}
		if closeErr := l.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	if unlockErr := l.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

var _ io.Closer = (*Log)(nil)
