package scheduler

import (
	"sync"
	"sync/atomic"
)

// buffer is a fixed-size bump-allocation block backing the payload of
// every job created from it (waiter lists live in the slot table's
// execRecord, not here). Buffers are reference
// counted: one reference for the context that owns it, plus one per job
// allocated from it that has not yet completed. Grounded on the
// job_buffer_t bump allocator described in moxie's scheduler.h and on
// the free-list pooling pattern internal/worker.Pool applies to Worker
// goroutines in the teacher repository.
type buffer struct {
	mem    []byte
	offset uint32 // next free byte; only ever touched by the owning context's goroutine
	cap    uint32
	base   uint32 // first slot index allocated to jobs carved from this buffer
	refcnt int32  // atomic: 1 (owner) + 1 per uncompleted job allocated here
	next   *buffer
}

func alignUp(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// bumpAlloc carves size bytes, aligned to align, out of the buffer's
// remaining capacity. It returns the allocated region and the byte
// offset it starts at, or ok=false if the aligned allocation would
// overflow the buffer.
func (b *buffer) bumpAlloc(size, align uint32) (region []byte, offset uint32, ok bool) {
	aligned := alignUp(b.offset, align)
	end := uint64(aligned) + uint64(size)
	if end > uint64(b.cap) {
		return nil, 0, false
	}
	region = b.mem[aligned:end]
	b.offset = uint32(end)
	return region, aligned, true
}

func (b *buffer) addRef() {
	atomic.AddInt32(&b.refcnt, 1)
}

// bufferArena manages the pool of job buffers shared by a Scheduler. Its
// capacity is fixed at ceil(slotCount/jobsPerBuffer) buffers, matching
// the invariant that every live job's slot index is partitioned by the
// buffer that allocated it.
type bufferArena struct {
	mu           sync.Mutex
	free         *buffer
	buffers      []*buffer
	limit        int
	bufferSize   uint32
	jobsPerBufer uint32
}

func newBufferArena(limit int, bufferSize uint32, jobsPerBuffer uint32) *bufferArena {
	return &bufferArena{
		limit:        limit,
		bufferSize:   bufferSize,
		jobsPerBufer: jobsPerBuffer,
	}
}

// acquire returns a buffer a context can allocate jobs from. If current
// is non-nil, its owner reference is released first; if that drops the
// refcount to zero the same buffer is reused in place (no outstanding
// jobs reference it), avoiding a free-list round trip. Otherwise a
// buffer is pulled from the free list, or a fresh one is carved out of
// the pool's fixed capacity.
func (a *bufferArena) acquire(current *buffer) (*buffer, error) {
	if current != nil {
		if atomic.AddInt32(&current.refcnt, -1) == 0 {
			current.offset = 0
			atomic.StoreInt32(&current.refcnt, 1)
			return current, nil
		}
	}

	a.mu.Lock()
	if a.free != nil {
		b := a.free
		a.free = b.next
		b.next = nil
		a.mu.Unlock()
		b.offset = 0
		atomic.StoreInt32(&b.refcnt, 1)
		return b, nil
	}
	if len(a.buffers) >= a.limit {
		a.mu.Unlock()
		return nil, ErrBufferPoolExhausted
	}
	base := uint32(len(a.buffers)) * a.jobsPerBufer
	b := &buffer{
		mem:  make([]byte, a.bufferSize),
		cap:  a.bufferSize,
		base: base,
	}
	atomic.StoreInt32(&b.refcnt, 1)
	a.buffers = append(a.buffers, b)
	a.mu.Unlock()
	return b, nil
}

// release drops a reference on b (taken either when a job is allocated
// from it or when a context releases ownership). When the refcount
// reaches zero the buffer returns to the free list.
func (a *bufferArena) release(b *buffer) {
	if atomic.AddInt32(&b.refcnt, -1) == 0 {
		a.mu.Lock()
		b.next = a.free
		a.free = b
		a.mu.Unlock()
	}
}

// inUse reports how many buffers currently have live references beyond
// the free list, for the buffer_pool_in_use diagnostics gauge.
func (a *bufferArena) inUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	free := 0
	for b := a.free; b != nil; b = b.next {
		free++
	}
	return len(a.buffers) - free
}

// total reports how many buffers have been carved out of the pool's
// fixed capacity so far, for Stats.BuffersTotal.
// Locked the same way inUse is: acquire grows a.buffers under a.mu, so
// reading len(a.buffers) without the lock is a data race on the slice
// header.
func (a *bufferArena) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffers)
}
