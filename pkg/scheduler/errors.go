package scheduler

import (
	"errors"
	"fmt"
)

// Resource-exhaustion and invalid-argument conditions are all
// user-recoverable and returned as sentinel errors, in the style of
// internal/jobmanager's ErrDuplicateJob/ErrJobNotFound in the teacher
// repository. The package does not check for internal invariant
// violations (double free, negative refcount, corruption of the free
// list) at run time, and none of its code panics on them.
var (
	// ErrSlotTableFull means every slot in the scheduler's table is
	// currently occupied by a live job. No function in this package
	// returns it: slot indices are partitioned by job buffer, so running
	// out of slots surfaces as ErrBufferPoolExhausted.
	ErrSlotTableFull = errors.New("scheduler: slot table is full")

	// ErrBufferPoolExhausted means the job buffer arena has allocated its
	// maximum number of buffers (ceil(slotCount/bufferJobCount)) and none
	// can be freed to satisfy a new request.
	ErrBufferPoolExhausted = errors.New("scheduler: job buffer pool exhausted")

	// ErrContextPoolExhausted means the scheduler's context free list is
	// empty and the context count is already at its configured limit.
	ErrContextPoolExhausted = errors.New("scheduler: job context pool exhausted")

	// ErrQueueRegistryFull means the scheduler's fixed-size queue
	// registry has no room for another distinct queue.
	ErrQueueRegistryFull = errors.New("scheduler: queue registry is full")

	// ErrJobAllocFailed means CreateJob was asked for a payload no job
	// buffer can hold (a negative size, or one larger than a buffer's
	// capacity). An exhausted buffer pool is reported as
	// ErrBufferPoolExhausted instead.
	ErrJobAllocFailed = errors.New("scheduler: job allocation failed")

	// ErrQueueUnknown is returned by Scheduler.Queue for an unregistered
	// queue id.
	ErrQueueUnknown = errors.New("scheduler: unknown queue id")

	// ErrInvalidConfig is returned by New when the requested sizing
	// constants are not internally consistent (e.g. slot count not a
	// power of two).
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")
)

// errInvalidConfigf wraps ErrInvalidConfig with a specific reason so
// callers can sentinel-match via errors.Is while still getting a
// descriptive message.
func errInvalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
