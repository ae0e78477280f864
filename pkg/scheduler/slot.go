package scheduler

// slotTable is the fixed-capacity array of execution records addressed by
// a JobID's packed slot index. Each record owns its own lock, so two jobs
// in different slots never contend with each other. Grounded on the
// sched->jobdesc/sched->jobdata parallel arrays in scheduler_posix.c,
// collapsed here into a single array of execRecord (each holding both the
// public Descriptor and the private bookkeeping the C source keeps apart).
type slotTable struct {
	records    []execRecord
	maxWaiters uint32
}

func newSlotTable(slotCount int, maxWaiters uint32) *slotTable {
	t := &slotTable{
		records:    make([]execRecord, slotCount),
		maxWaiters: maxWaiters,
	}
	for i := range t.records {
		t.records[i].waiters = make([]uint32, maxWaiters)
	}
	return t
}

// resolve returns the descriptor addressed by id, or ok=false if id is
// invalid or its generation no longer matches the slot's current
// occupant (the slot has been recycled for a different job since id was
// handed out). Grounded on the wait_job->id != id staleness check in
// job_context_wait_ready_job.
func (t *slotTable) resolve(id JobID) (*Descriptor, bool) {
	if !id.Valid() {
		return nil, false
	}
	idx := id.slotIndex()
	if int(idx) >= len(t.records) {
		return nil, false
	}
	rec := &t.records[idx]
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	if rec.desc.ID != id {
		return nil, false
	}
	return &rec.desc, true
}

// cancel marks the job addressed by id as canceled, unless it has already
// reached a terminal or running state, and reports the resulting state.
// An id whose generation no longer matches the slot's occupant is treated
// as already-completed rather than an error: the caller cannot distinguish
// "completed and retired" from "completed, then the slot was reused, then
// reused again" from "never existed", so all three report
// StateUninitialized. Because retire (see below) advances the generation
// the moment a job is observed complete, this is also the path a stale ID
// takes immediately after completion, with no need for the slot to have
// been handed to a new job first.
//
// The state is read into a local only after the record is locked and the
// identity check has passed, never before: the original C scheduler has a
// documented defect where a caller could observe data->state prior to
// confirming wait_job->id == id, occasionally acting on the state of an
// unrelated job that had since reused the slot. This implementation locks
// first, checks identity second, reads state third, in that order.
func (t *slotTable) cancel(id JobID) State {
	if !id.Valid() {
		return StateUninitialized
	}
	idx := id.slotIndex()
	if int(idx) >= len(t.records) {
		return StateUninitialized
	}
	rec := &t.records[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.desc.ID != id {
		return StateUninitialized
	}
	switch rec.state {
	case StateRunning, StateCompleted, StateCanceled:
		return rec.state
	default:
		rec.state = StateCanceled
		return rec.state
	}
}

// initSlot (re)initializes the slot at idx for a freshly created job,
// packing a JobID from the slot's current generation. The generation
// itself is not bumped here: it advances at retire, when the slot's
// previous occupant (if any) is observed complete, so that resolving a
// completed job's ID fails as soon as completion happens rather than only
// after the slot has been handed to a new job.
func (t *slotTable) initSlot(idx uint32, buf *buffer, parent JobID) (JobID, *execRecord) {
	rec := &t.records[idx]
	rec.mu.Lock()
	defer rec.mu.Unlock()

	id := packJobID(idx, rec.generation)

	rec.desc = Descriptor{
		buf:       buf,
		ID:        id,
		Parent:    parent,
		slotIndex: idx,
	}
	rec.waitCnt = 0
	rec.wait = -1 // Not ready-to-run until submitted.
	rec.work = 1  // One work item representing self.
	rec.state = StateNotSubmitted

	return id, rec
}

// retireLocked advances rec's generation and rewrites its descriptor's ID
// to match. Called with rec.mu already held, at the instant a job is
// observed complete (Completed or Canceled-and-cleaned-up), so that any
// JobID still held by a caller immediately becomes stale: resolve and
// cancel both key off descriptor identity, and this is what makes
// resolve(id) return false right after completion rather than only after
// the slot is reused by a later CreateJob.
func (rec *execRecord) retireLocked() {
	rec.generation = (rec.generation + 1) % maxGeneration
	rec.desc.ID = packJobID(rec.desc.slotIndex, rec.generation)
}

// record returns the execRecord for a slot index without any identity
// check; callers that already hold a validated JobID's slot index (e.g.
// the owning Context right after initSlot) use this directly.
func (t *slotTable) record(idx uint32) *execRecord {
	return &t.records[idx]
}
