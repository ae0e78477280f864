package scheduler

import "sync"

// JobFunc is the entry point for a job. It is invoked once with
// CallExecute (unless the job was canceled before it ran) and exactly
// once with CallCleanup. The returned exit code is stored on the
// descriptor and otherwise uninterpreted by the scheduler.
type JobFunc func(ctx *Context, job *Descriptor, call CallType) int32

// Descriptor is the public, per-job record: the fields a job function
// and its submitter are expected to read and write. It corresponds to
// job_descriptor_t in the original C scheduler.
type Descriptor struct {
	buf     *buffer
	Target  *Queue  // Queue the job is pushed to once ready. Nil defaults to the creating context's queue.
	Main    JobFunc // Entry point. Nil defaults to a no-op.
	User1   uintptr // Opaque application-defined scratch value.
	User2   uintptr // Opaque application-defined scratch value.
	Data    []byte  // Payload region carved from the owning buffer.
	ID      JobID
	Parent  JobID
	Exit    int32

	slotIndex uint32
}

// execRecord is the private per-slot bookkeeping protected by its own
// lock. It corresponds to the anonymous execution-state half of a slot
// table entry in the C scheduler.
type execRecord struct {
	mu         sync.RWMutex
	waiters    []uint32 // waiter list, sized to Scheduler's maxWaiters
	waitCnt    uint32   // number of valid entries in waiters
	wait       int32    // remaining uncompleted dependencies; -1 sentinel between create and submit
	work       int32    // uncompleted children + 1 for self
	state      State
	desc       Descriptor
	generation uint32
}
