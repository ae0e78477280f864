package scheduler

// Default sizing constants, matching the fixed compile-time bounds of the
// original C scheduler. All are overridable per Scheduler via Config, but
// once a Scheduler is created its slot table and buffer arrays never
// resize.
const (
	DefaultSlotCount      = 65536 // Must be a power of two; bounded by the 16-bit slot index.
	DefaultBufferJobCount = 64    // Jobs allocatable from a single job buffer.
	DefaultBufferSize     = DefaultBufferJobCount * 1024
	DefaultMaxWaiters     = 32
	DefaultMaxQueues      = 16
)

// SignalCode is a value written to a Queue's signal word to wake blocked
// producers and consumers for reasons other than normal traffic.
type SignalCode uint32

const (
	SignalClear     SignalCode = 0
	SignalTerminate SignalCode = 1
	SignalUser      SignalCode = 2 // First value available for application use.
)

// State is the execution state of a job.
type State int32

const (
	// StateUninitialized is the zero value so that zeroed slot storage is
	// automatically a valid, inert record.
	StateUninitialized State = iota
	StateNotSubmitted
	StateNotReady
	StateReady
	StateRunning
	StateCompleted
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateNotSubmitted:
		return "not_submitted"
	case StateNotReady:
		return "not_ready"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SubmitKind distinguishes a normal run submission from a submission that
// should be treated as already-canceled (used when the caller detects an
// error condition before the job could be usefully executed).
type SubmitKind int32

const (
	SubmitRun    SubmitKind = 0
	SubmitCancel SubmitKind = -1
)

// SubmitResult reports the outcome of Context.SubmitJob.
type SubmitResult int32

const (
	SubmitSuccess         SubmitResult = 0
	SubmitInvalidJob      SubmitResult = -1
	SubmitTooManyWaiters  SubmitResult = -2
)

// CallType tells a JobFunc whether it is being asked to do the job's work
// or to perform post-execution cleanup.
type CallType int32

const (
	CallExecute CallType = iota
	CallCleanup
)

func (c CallType) String() string {
	if c == CallExecute {
		return "execute"
	}
	return "cleanup"
}
