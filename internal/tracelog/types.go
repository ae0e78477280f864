package tracelog

import "github.com/russellklenk/moxie/pkg/scheduler"

// EventKind identifies the scheduler transition a trace event records.
type EventKind string

const (
	EventCreated   EventKind = "CREATED"
	EventSubmitted EventKind = "SUBMITTED"
	EventReady     EventKind = "READY"
	EventRunning   EventKind = "RUNNING"
	EventCompleted EventKind = "COMPLETED"
	EventCanceled  EventKind = "CANCELED"
)

// Event is a single trace log record. It is not a durability mechanism —
// the scheduler has no persisted state to recover — it exists purely so
// a test or an operator can reconstruct the sequence of state
// transitions a job (or a whole run) went through.
type Event struct {
	Seq       uint64          `json:"seq"`
	Kind      EventKind       `json:"kind"`
	JobID     scheduler.JobID `json:"job_id"`
	Thread    scheduler.ThreadID `json:"thread_id"`
	Timestamp int64           `json:"timestamp"`
	Checksum  uint32          `json:"checksum"`
}

// EventHandler processes one decoded event during Replay.
type EventHandler func(event Event) error
