package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
)

// log is the package-wide structured logger, following the
// var log = slog.Default() pattern the teacher repository uses at
// package scope. Callers that want scheduler diagnostics routed
// elsewhere can replace it with slog.SetDefault before creating a
// Scheduler.
var log = slog.Default()

// Scheduler owns every resource a set of cooperating job Contexts share:
// the slot table, the job buffer arena, the queue registry, and the pool
// of Contexts themselves. It corresponds to job_scheduler_t in the
// original C API, collapsed from an opaque handle into a concrete
// exported struct per this port's preference for accepting interfaces
// and returning structs over emulating opaque native handles.
type Scheduler struct {
	cfg   Config
	slots *slotTable
	arena *bufferArena

	queuesMu sync.RWMutex
	queues   map[uint32]*Queue
	workers  map[uint32]int

	ctxMu    sync.Mutex
	ctxFree  []*Context
	ctxCount int

	closeOnce sync.Once
	closed    bool
}

// New creates a Scheduler sized per cfg. Passing a zero Config is
// equivalent to DefaultConfig().
func New(cfg Config) (*Scheduler, error) {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	jobsPerBuffer := uint32(cfg.BufferJobCount)
	bufferLimit := cfg.SlotCount / cfg.BufferJobCount

	sched := &Scheduler{
		cfg:     cfg,
		slots:   newSlotTable(cfg.SlotCount, cfg.MaxWaiters),
		arena:   newBufferArena(bufferLimit, cfg.BufferSize, jobsPerBuffer),
		queues:  make(map[uint32]*Queue, cfg.MaxQueues),
		workers: make(map[uint32]int, cfg.MaxQueues),
	}
	log.Info("scheduler created", "slot_count", cfg.SlotCount, "buffer_job_count", cfg.BufferJobCount, "buffer_count", bufferLimit)
	return sched, nil
}

// RegisterQueue creates and registers a ready queue under id, with
// workerCount recorded purely for the QueueWorkerCount accessor and
// diagnostics; the Scheduler does not itself spawn worker goroutines.
//
// The queue's capacity is always the scheduler's slot count, never a
// caller-supplied value: per spec §4.2, capacity fixed at the
// slot-table size is what makes "a full queue" an impossible state
// while invariants hold (a full queue would require every live job to
// be simultaneously enqueued). A smaller, independently configured
// capacity would let a single producer fanning out more ready jobs
// than that capacity block in Push, and could deadlock a queue with
// too few consumers draining it.
func (s *Scheduler) RegisterQueue(id uint32, workerCount int) (*Queue, error) {
	s.queuesMu.Lock()
	defer s.queuesMu.Unlock()
	if _, exists := s.queues[id]; exists {
		return s.queues[id], nil
	}
	if len(s.queues) >= s.cfg.MaxQueues {
		return nil, ErrQueueRegistryFull
	}
	q := NewQueue(id, s.cfg.SlotCount)
	s.queues[id] = q
	s.workers[id] = workerCount
	return q, nil
}

// Queue looks up a previously registered queue by id.
func (s *Scheduler) Queue(id uint32) (*Queue, error) {
	s.queuesMu.RLock()
	defer s.queuesMu.RUnlock()
	q, ok := s.queues[id]
	if !ok {
		return nil, ErrQueueUnknown
	}
	return q, nil
}

// QueueWorkerCount reports the worker count recorded at RegisterQueue
// time for id, or 0 if id is unregistered.
func (s *Scheduler) QueueWorkerCount(id uint32) int {
	s.queuesMu.RLock()
	defer s.queuesMu.RUnlock()
	return s.workers[id]
}

// AcquireContext hands out a Context bound to defaultQueue and thread,
// pulling from the free list before growing the pool up to
// Config.ContextCount.
func (s *Scheduler) AcquireContext(defaultQueue *Queue, thread ThreadID) (*Context, error) {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()

	var ctx *Context
	if n := len(s.ctxFree); n > 0 {
		ctx = s.ctxFree[n-1]
		s.ctxFree = s.ctxFree[:n-1]
	} else {
		if s.ctxCount >= s.cfg.ContextCount {
			return nil, ErrContextPoolExhausted
		}
		s.ctxCount++
		ctx = &Context{sched: s}
	}

	buf, err := s.arena.acquire(nil)
	if err != nil {
		s.releaseContext(ctx)
		return nil, err
	}

	ctx.queue = defaultQueue
	ctx.thread = thread
	ctx.buf = buf
	ctx.jobCount = 0
	return ctx, nil
}

// ReleaseContext returns ctx to the free list, releasing its current job
// buffer reference.
func (s *Scheduler) ReleaseContext(ctx *Context) {
	s.ctxMu.Lock()
	defer s.ctxMu.Unlock()
	s.releaseContext(ctx)
}

func (s *Scheduler) releaseContext(ctx *Context) {
	if ctx.buf != nil {
		s.arena.release(ctx.buf)
		ctx.buf = nil
	}
	ctx.queue = nil
	s.ctxFree = append(s.ctxFree, ctx)
}

// Resolve returns the live descriptor addressed by id, if any.
func (s *Scheduler) Resolve(id JobID) (*Descriptor, bool) {
	return s.slots.resolve(id)
}

// Cancel marks the job addressed by id as canceled unless it has already
// reached a terminal or running state, returning the resulting state.
func (s *Scheduler) Cancel(id JobID) State {
	return s.slots.cancel(id)
}

// Terminate signals every registered queue, waking all blocked producers
// and consumers so that worker goroutines can observe the signal and
// exit their Take loops.
func (s *Scheduler) Terminate() {
	s.queuesMu.RLock()
	defer s.queuesMu.RUnlock()
	for _, q := range s.queues {
		q.Signal(SignalTerminate)
	}
}

// Close terminates every queue and marks the scheduler closed. It is
// safe to call more than once.
func (s *Scheduler) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.Terminate()
		s.closed = true
		log.Info("scheduler closed")
	})
	return err
}

// Stats is a point-in-time snapshot used by the diagnostics exporter and
// the metrics collector.
type Stats struct {
	SlotCount       int
	BuffersInUse    int
	BuffersTotal    int
	ContextsInUse   int
	ContextsTotal   int
	QueueDepths     map[uint32]int
}

// Stats captures the scheduler's current resource utilization.
func (s *Scheduler) Stats() Stats {
	s.ctxMu.Lock()
	ctxInUse := s.ctxCount - len(s.ctxFree)
	ctxTotal := s.ctxCount
	s.ctxMu.Unlock()

	s.queuesMu.RLock()
	depths := make(map[uint32]int, len(s.queues))
	for id, q := range s.queues {
		depths[id] = q.Depth()
	}
	s.queuesMu.RUnlock()

	return Stats{
		SlotCount:     s.cfg.SlotCount,
		BuffersInUse:  s.arena.inUse(),
		BuffersTotal:  s.arena.total(),
		ContextsInUse: ctxInUse,
		ContextsTotal: ctxTotal,
		QueueDepths:   depths,
	}
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("Scheduler{slots=%d, queues=%d}", s.cfg.SlotCount, len(s.queues))
}
