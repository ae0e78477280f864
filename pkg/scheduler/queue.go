package scheduler

import "sync"

// Queue is a bounded multi-producer/multi-consumer FIFO of ready-to-run
// job descriptors. Capacity is always a power of two, sized to the
// owning Scheduler's slot count, so a full queue can only happen if
// every live job is simultaneously enqueued — which the submission
// protocol's invariants make impossible.
//
// Unlike the teacher's worker.Pool, which multiplexes work over
// buffered Go channels, Queue is implemented directly on top of
// sync.Mutex and sync.Cond. Channels model "closed means done", but this
// component needs a queue that can be signaled, drained, and then
// un-signaled to accept work again (Flush, Signal(SignalClear)), which
// channel-close semantics cannot express without discarding and
// recreating the channel — so the ring-buffer-plus-condvar design from
// the moxie C scheduler is kept as-is rather than translated to
// channels.
type Queue struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	notFull  sync.Cond
	slots    []*Descriptor
	mask     uint64
	push     uint64
	take     uint64
	signal   SignalCode
	id       uint32
}

// NewQueue creates a ready queue with the given application-defined id
// and capacity (rounded up to the next power of two).
func NewQueue(id uint32, capacity int) *Queue {
	cap := nextPowerOfTwo(capacity)
	q := &Queue{
		slots: make([]*Descriptor, cap),
		mask:  uint64(cap) - 1,
		id:    id,
	}
	q.notEmpty.L = &q.mu
	q.notFull.L = &q.mu
	return q
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// ID returns the application-defined identifier carried by the queue.
func (q *Queue) ID() uint32 {
	return q.id
}

// CheckSignal atomically reads the queue's signal word.
func (q *Queue) CheckSignal() SignalCode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.signal
}

// Signal sets the queue's signal word. A non-zero code wakes every
// blocked producer and consumer; SignalClear allows the queue to park
// threads again. The signal remains set until explicitly cleared.
func (q *Queue) Signal(code SignalCode) {
	q.mu.Lock()
	q.signal = code
	q.mu.Unlock()
	if code != SignalClear {
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
	}
}

// Flush resets the queue to logically empty and wakes all blocked
// producers, discarding any pending entries without processing them.
// Intended for recovery paths, not normal operation.
func (q *Queue) Flush() {
	q.mu.Lock()
	for i := range q.slots {
		q.slots[i] = nil
	}
	q.push = 0
	q.take = 0
	q.mu.Unlock()
	q.notFull.Broadcast()
}

// Close signals termination and releases the queue for garbage
// collection; there is no separate native resource to free in the Go
// port (job_queue_delete's role in the C API is filled by the garbage
// collector once the last reference is dropped), but Close makes the
// intent explicit and matches the exported surface of the C API.
func (q *Queue) Close() {
	q.Signal(SignalTerminate)
}

// Push enqueues a ready job, blocking while the queue is full and
// unsignaled. It returns false without enqueueing if the queue is
// signaled, true otherwise.
func (q *Queue) Push(job *Descriptor) bool {
	q.mu.Lock()
	for q.push-q.take == uint64(len(q.slots)) && q.signal == SignalClear {
		q.notFull.Wait()
	}
	if q.signal != SignalClear {
		q.mu.Unlock()
		return false
	}
	q.slots[q.push&q.mask] = job
	q.push++
	q.mu.Unlock()
	q.notEmpty.Signal()
	return true
}

// Take dequeues the oldest ready job, blocking while the queue is empty
// and unsignaled. It returns (nil, false) if the queue is signaled while
// empty.
func (q *Queue) Take() (*Descriptor, bool) {
	q.mu.Lock()
	for q.push == q.take && q.signal == SignalClear {
		q.notEmpty.Wait()
	}
	if q.push == q.take {
		// Empty and signaled.
		q.mu.Unlock()
		return nil, false
	}
	job := q.slots[q.take&q.mask]
	q.slots[q.take&q.mask] = nil
	q.take++
	q.mu.Unlock()
	q.notFull.Signal()
	return job, true
}

// Depth returns the current number of enqueued-but-not-taken entries,
// for the queue_depth diagnostics gauge.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.push - q.take)
}
