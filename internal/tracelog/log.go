// Package tracelog is an optional, append-only execution trace for a
// Scheduler: every job's Created/Submitted/Ready/Running/Completed or
// Canceled transition can be recorded here for later replay.
//
// This is adapted from the teacher repository's write-ahead log, but it
// is not a durability or crash-recovery mechanism in this port: a
// Scheduler holds no state across process restarts, so there is nothing
// for a trace log to restore on startup. Its purpose here is purely
// testability and diagnostics — an execution history a test or operator
// can replay to see exactly what a run did, in order, after the fact.
package tracelog

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/russellklenk/moxie/pkg/scheduler"
)

// Log is an append-only, checksummed, batch-flushed trace file.
type Log struct {
	mu           sync.Mutex
	file         *os.File
	encoder      *json.Encoder
	path         string
	seq          uint64
	syncOnAppend bool
	closed       bool

	buffer        []Event
	bufferSize    int
	lastFlushTime time.Time
	flushInterval time.Duration
}

// NewLog opens or creates a trace log at path. If the file already has
// events, the sequence counter resumes from the last one recorded.
func NewLog(path string, syncOnAppend bool) (*Log, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	var seq uint64
	if stat, statErr := file.Stat(); statErr == nil && stat.Size() > 0 {
		if last, err := ReadLastEvent(path); err == nil && last != nil {
			seq = last.Seq
		}
	}

	return &Log{
		file:          file,
		encoder:       json.NewEncoder(file),
		path:          path,
		seq:           seq,
		syncOnAppend:  syncOnAppend,
		buffer:        make([]Event, 0, 256),
		bufferSize:    256,
		lastFlushTime: time.Now(),
		flushInterval: time.Second,
	}, nil
}

// Append records one event, flushing immediately if force is set, the
// buffer has filled, or the flush interval has elapsed since the last
// flush.
func (l *Log) Append(kind EventKind, jobID scheduler.JobID, thread scheduler.ThreadID, force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	l.seq++
	event := Event{
		Seq:       l.seq,
		Kind:      kind,
		JobID:     jobID,
		Thread:    thread,
		Timestamp: time.Now().UnixMilli(),
	}
	event.Checksum = calculateChecksum(kind, jobID, l.seq)
	l.buffer = append(l.buffer, event)

	needFlush := force || l.syncOnAppend || len(l.buffer) >= l.bufferSize || time.Since(l.lastFlushTime) > l.flushInterval
	if needFlush {
		return l.flushLocked()
	}
	return nil
}

// Replay decodes every event in the log, verifying its checksum, and
// invokes handler in order. It stops at the first handler error or
// checksum mismatch.
func (l *Log) Replay(handler EventHandler) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for decoder.More() {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			return err
		}
		if !verifyChecksum(event) {
			return &ChecksumError{Seq: event.Seq, Expected: calculateChecksum(event.Kind, event.JobID, event.Seq), Actual: event.Checksum}
		}
		if err := handler(event); err != nil {
			return err
		}
	}
	return nil
}

// Rotate flushes pending events, gzip-compresses the current segment to
// a timestamped sibling file, and truncates the active segment back to
// empty. Grounded on the teacher's commented-out compressWALFile helper
// in wal.go, instantiated here for real instead of left unreferenced.
func (l *Log) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if err := l.flushLocked(); err != nil {
		return err
	}
	if err := l.file.Close(); err != nil {
		return err
	}

	backupPath := l.path + "." + time.Now().Format("20060102T150405") + ".gz"
	if err := gzipFile(l.path, backupPath); err != nil {
		return err
	}

	newFile, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	l.file = newFile
	l.encoder = json.NewEncoder(newFile)
	l.seq = 0
	l.buffer = l.buffer[:0]
	l.lastFlushTime = time.Now()
	return nil
}

// Close flushes any pending events and releases the underlying file.
// The Log must not be used after Close.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	if err := l.flushLocked(); err != nil {
		return err
	}
	l.closed = true
	return l.file.Close()
}

// LastSeq returns the most recently assigned sequence number.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

func (l *Log) flushLocked() error {
	for _, event := range l.buffer {
		if err := l.encoder.Encode(event); err != nil {
			return err
		}
	}
	l.buffer = l.buffer[:0]
	l.lastFlushTime = time.Now()
	return l.file.Sync()
}

func gzipFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}
