// Package diagnostics periodically writes a Scheduler's Stats() out to a
// JSON file, atomically, for external tooling to poll.
//
// Adapted from the teacher repository's snapshot manager. This is
// deliberately one-way: a Scheduler has no persisted state, so there is
// no Load counterpart here — the exporter exists purely to make a
// running scheduler's resource utilization observable from outside the
// process, not to recover anything on restart.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/russellklenk/moxie/pkg/scheduler"
)

var log = slog.Default()

// Snapshot is the JSON document written by Exporter.Write.
type Snapshot struct {
	SchemaVersion int               `json:"schema_version"`
	Timestamp     int64             `json:"timestamp"`
	SlotCount     int               `json:"slot_count"`
	BuffersInUse  int               `json:"buffers_in_use"`
	BuffersTotal  int               `json:"buffers_total"`
	ContextsInUse int               `json:"contexts_in_use"`
	ContextsTotal int               `json:"contexts_total"`
	QueueDepths   map[string]int    `json:"queue_depths"`
}

const schemaVersion = 1

// Exporter periodically dumps a Scheduler's Stats() to path.
type Exporter struct {
	path  string
	sched *scheduler.Scheduler

	mu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// NewExporter creates an exporter for sched, writing to path.
func NewExporter(path string, sched *scheduler.Scheduler) *Exporter {
	return &Exporter{path: path, sched: sched}
}

// Write serializes the scheduler's current stats and writes them to
// path atomically: a temp file, fsync'd, then renamed over the target.
func (e *Exporter) Write() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := e.sched.Stats()
	depths := make(map[string]int, len(stats.QueueDepths))
	for id, depth := range stats.QueueDepths {
		depths[fmt.Sprintf("%d", id)] = depth
	}

	snap := Snapshot{
		SchemaVersion: schemaVersion,
		Timestamp:     time.Now().UnixMilli(),
		SlotCount:     stats.SlotCount,
		BuffersInUse:  stats.BuffersInUse,
		BuffersTotal:  stats.BuffersTotal,
		ContextsInUse: stats.ContextsInUse,
		ContextsTotal: stats.ContextsTotal,
		QueueDepths:   depths,
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("diagnostics: marshal snapshot: %w", err)
	}

	tmpPath := e.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("diagnostics: write temp snapshot: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("diagnostics: write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("diagnostics: sync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diagnostics: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, e.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diagnostics: rename snapshot: %w", err)
	}
	return nil
}

// Start launches a goroutine that calls Write every interval until Stop
// is called.
func (e *Exporter) Start(interval time.Duration) {
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := e.Write(); err != nil {
					log.Warn("diagnostics export failed", "error", err, "path", e.path)
				}
			case <-e.stop:
				return
			}
		}
	}()
}

// Stop halts the periodic export loop started by Start and waits for it
// to exit.
func (e *Exporter) Stop() {
	if e.stop == nil {
		return
	}
	close(e.stop)
	<-e.done
}
