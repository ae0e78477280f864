package scheduler

import "fmt"

// Context is a goroutine's private handle onto a Scheduler: its current
// job buffer, its default ready queue, and the caller-supplied identity
// of the goroutine it is bound to. A Context is not safe for concurrent
// use by more than one goroutine at a time, mirroring job_context_t in
// the original C API, which is explicitly documented as thread-affine.
type Context struct {
	sched    *Scheduler
	queue    *Queue
	thread   ThreadID
	buf      *buffer
	jobCount uint32
}

// Scheduler returns the Scheduler that owns this Context.
func (c *Context) Scheduler() *Scheduler { return c.sched }

// Queue returns the Context's default target queue, used by SubmitJob
// for any job whose Target field is left nil.
func (c *Context) Queue() *Queue { return c.queue }

// ThreadID returns the caller-supplied identity this Context is bound to.
func (c *Context) ThreadID() ThreadID { return c.thread }

func defaultJobMain(ctx *Context, job *Descriptor, call CallType) int32 {
	return 0
}

// CreateJob allocates a new job descriptor with a size-byte payload
// aligned to align (align of 0 means unaligned), rolling to a fresh job
// buffer transparently when either the current buffer's capacity or its
// per-buffer job count is exhausted. Grounded on job_context_create_job
// in scheduler_posix.c, with one deliberate simplification: the C source
// also bump-allocates each job's waiter list out of the job buffer
// alongside the payload; this port keeps the waiter list as a
// fixed-capacity slice owned by the slot's execRecord instead; a Go
// slice living in the slot table is the natural replacement for a
// pointer the C source carves out of the same arena it carves the
// payload from, and it lets MaxWaiters be configured independently of
// buffer geometry.
func (c *Context) CreateJob(size int, align uintptr) (*Descriptor, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrJobAllocFailed)
	}
	if uint32(size) > c.sched.cfg.BufferSize {
		return nil, fmt.Errorf("%w: requested size %d exceeds buffer size %d", ErrJobAllocFailed, size, c.sched.cfg.BufferSize)
	}
	a := uint32(align)
	if a == 0 {
		a = 1
	}

	for {
		region, _, ok := c.buf.bumpAlloc(uint32(size), a)
		if !ok {
			next, err := c.sched.arena.acquire(c.buf)
			if err != nil {
				return nil, err
			}
			c.buf = next
			c.jobCount = 0
			continue
		}

		idx := c.buf.base + c.jobCount
		c.buf.addRef()
		_, rec := c.sched.slots.initSlot(idx, c.buf, InvalidJobID)
		rec.desc.Data = region

		c.jobCount++
		if c.jobCount == uint32(c.sched.cfg.BufferJobCount) {
			next, err := c.sched.arena.acquire(c.buf)
			if err != nil {
				return nil, err
			}
			c.buf = next
			c.jobCount = 0
		}
		return &rec.desc, nil
	}
}

// SubmitJob registers job's dependencies and parent relationship and,
// once ready, pushes it to its target queue. Grounded on
// job_context_submit_job in scheduler_posix.c, including the "+1 to
// counteract the -1 set at creation" wait-count protocol that makes
// SubmitJob's own finalization race-safe against dependencies
// completing concurrently on other goroutines.
//
// kind == SubmitCancel marks the job Canceled but still enqueues it
// (Canceled is not NotReady), so a worker's WaitReadyJob still observes
// it and runs the Cleanup-only cancellation path. The wait-count
// arithmetic below always runs so rec.wait stays consistent, but the
// ready transition it can trigger only applies on the run path: a
// cancel must never be overwritten back to Ready just because its wait
// count happened to reach zero.
//
// Locking order is: each dependency's record, one at a time; then the
// parent's record; then this job's own record — never more than one
// record lock held at a time, and never while holding a Queue's lock
// (Push is always called after every record lock has been released).
func (c *Context) SubmitJob(job *Descriptor, deps []JobID, kind SubmitKind) (SubmitResult, error) {
	if job == nil {
		return SubmitInvalidJob, nil
	}
	sched := c.sched

	if job.Target == nil {
		job.Target = c.queue
	}
	if job.Main == nil {
		job.Main = defaultJobMain
	}

	rec := sched.slots.record(job.slotIndex)

	state := StateNotSubmitted
	var waitCount int32
	result := SubmitSuccess

	if kind == SubmitRun {
		for _, dep := range deps {
			if !dep.Valid() {
				continue
			}
			depRec := sched.slots.record(dep.slotIndex())
			depRec.mu.Lock()
			if depRec.desc.ID == dep && depRec.state != StateCompleted && depRec.state != StateCanceled {
				if depRec.waitCnt != uint32(len(depRec.waiters)) {
					depRec.waiters[depRec.waitCnt] = job.slotIndex
					depRec.waitCnt++
					waitCount++
				} else {
					result = SubmitTooManyWaiters
				}
			}
			depRec.mu.Unlock()
		}
		if waitCount == 0 {
			state = StateReady
		} else {
			state = StateNotReady
		}

		if job.Parent.Valid() {
			parentRec := sched.slots.record(job.Parent.slotIndex())
			parentRec.mu.Lock()
			if parentRec.desc.ID == job.Parent && parentRec.state != StateCanceled {
				parentRec.work++
			}
			parentRec.mu.Unlock()
		}
	} else {
		state = StateCanceled
	}

	rec.mu.Lock()
	rec.wait = rec.wait + waitCount + 1
	if rec.wait == 0 && kind == SubmitRun {
		state = StateReady
	}
	if rec.state != StateCanceled {
		rec.state = state
	}
	finalState := rec.state
	rec.mu.Unlock()

	if finalState != StateNotReady {
		job.Target.Push(job)
	}
	return result, nil
}

// CancelJob delegates to the Scheduler's slot table, marking the job
// canceled unless it has already reached a terminal or running state.
func (c *Context) CancelJob(id JobID) State {
	return c.sched.Cancel(id)
}

// WaitReadyJob takes the next ready job from the Context's queue,
// walking its ancestor chain to resolve cooperative cancellation before
// handing it back to the caller to execute. A canceled job (or one
// descended from a canceled ancestor) is completed here, as a no-op
// Cleanup-only pass, without ever being returned to the caller; the loop
// then takes the next queue entry instead. Returns ok=false only when
// the queue itself has been signaled while empty.
//
// Grounded on job_context_wait_ready_job in scheduler_posix.c. The
// ancestor walk checks JobID.Valid before every slot dereference, and
// stops (treating the remainder of the chain as unknown rather than
// canceled) the moment an ancestor's recorded ID no longer matches the
// ID being chased — both safeguards the C source's pointer-walk version
// does not need to make explicit, but which this port adds defensively
// given that one of this package's stated goals is to never resolve a
// stale or recycled slot as if it were the job a caller meant.
func (c *Context) WaitReadyJob() (*Descriptor, bool) {
	sched := c.sched
	for {
		job, ok := c.queue.Take()
		if !ok {
			return nil, false
		}

		canceled := false
		itrID := job.ID
		for itrID.Valid() {
			rec := sched.slots.record(itrID.slotIndex())
			rec.mu.RLock()
			sameID := rec.desc.ID == itrID
			st := rec.state
			parent := rec.desc.Parent
			rec.mu.RUnlock()
			if !sameID {
				break
			}
			if st == StateCanceled {
				canceled = true
				break
			}
			itrID = parent
		}

		jobRec := sched.slots.record(job.slotIndex)
		if !canceled {
			jobRec.mu.Lock()
			jobRec.state = StateRunning
			jobRec.mu.Unlock()
			return job, true
		}

		jobRec.mu.Lock()
		if jobRec.state != StateCanceled {
			jobRec.state = StateCanceled
		}
		jobRec.mu.Unlock()
		c.CompleteJob(job)
	}
}

// WaitJob blocks the calling goroutine until id has completed (or was
// canceled, or its slot has since been recycled for a different job),
// cooperatively executing other ready work from the Context's own queue
// in the meantime rather than idling. Returns false if the queue is
// signaled before id completes.
func (c *Context) WaitJob(id JobID) bool {
	sched := c.sched
	if !id.Valid() {
		return true
	}
	idx := id.slotIndex()
	for {
		rec := sched.slots.record(idx)
		rec.mu.RLock()
		stale := rec.desc.ID != id
		st := rec.state
		rec.mu.RUnlock()
		if stale || st == StateCompleted || st == StateCanceled {
			return true
		}

		job, ok := c.WaitReadyJob()
		if !ok {
			return false
		}
		job.Exit = job.Main(c, job, CallExecute)
		c.CompleteJob(job)
	}
}

// CompleteJob decrements job's outstanding-work count and, once it
// reaches zero (this job and every child it registered at submission
// time have all finished), runs its Cleanup call exactly once, retires
// the slot's generation so the job's ID stops resolving, releases its job
// buffer reference, wakes any jobs that registered as waiters on it, and
// recurses to complete its parent's own outstanding-work count.
//
// Grounded on job_context_complete_job in scheduler_posix.c, with the
// slot's generation retired here rather than at the next CreateJob into
// the slot, matching this port's completion-observed generation policy.
func (c *Context) CompleteJob(job *Descriptor) {
	sched := c.sched
	rec := sched.slots.record(job.slotIndex)

	rec.mu.Lock()
	rec.work--
	completed := rec.work == 0
	var waiterSlots []uint32
	var fn JobFunc
	if completed {
		waiterSlots = append(waiterSlots, rec.waiters[:rec.waitCnt]...)
		if rec.state != StateCanceled {
			rec.state = StateCompleted
		}
		fn = rec.desc.Main
		rec.retireLocked()
	}
	parent := job.Parent
	buf := job.buf
	rec.mu.Unlock()

	if !completed {
		return
	}

	if fn != nil {
		fn(c, job, CallCleanup)
	}

	sched.arena.release(buf)

	for _, waiterSlot := range waiterSlots {
		waitRec := sched.slots.record(waiterSlot)
		waitRec.mu.Lock()
		waitRec.wait--
		ready := waitRec.wait == 0
		if ready && waitRec.state != StateCanceled {
			waitRec.state = StateReady
		}
		target := waitRec.desc.Target
		waitDesc := &waitRec.desc
		waitRec.mu.Unlock()
		if ready {
			target.Push(waitDesc)
		}
	}

	if parent.Valid() {
		if parentDesc, ok := sched.Resolve(parent); ok {
			c.CompleteJob(parentDesc)
		}
	}
}
