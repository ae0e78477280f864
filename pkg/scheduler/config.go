package scheduler

// Config controls the fixed sizing of a Scheduler's slot table, buffer
// arena, and queue registry. All fields are immutable for the lifetime of
// the Scheduler they create: none of the C scheduler's structures ever
// resize, and this port preserves that property deliberately (see the
// dynamic-slot-space-resizing Non-goal).
type Config struct {
	// SlotCount is the maximum number of simultaneously live jobs. Must be
	// a power of two and fit in the 16-bit slot index (<= 65536).
	SlotCount int

	// BufferJobCount is the number of jobs allocatable from a single job
	// buffer before a context rolls to a fresh one. Slot indices are
	// partitioned by buffer: base = bufferOrdinal * BufferJobCount.
	BufferJobCount int

	// BufferSize is the byte capacity of a single job buffer.
	BufferSize uint32

	// MaxWaiters is the maximum number of dependents a single job may
	// register before SubmitJob reports SubmitTooManyWaiters.
	MaxWaiters uint32

	// MaxQueues bounds the scheduler's queue registry.
	MaxQueues int

	// ContextCount is the maximum number of Contexts AcquireContext will
	// hand out concurrently.
	ContextCount int
}

// DefaultConfig returns the sizing used by the original C scheduler's
// compile-time constants.
func DefaultConfig() Config {
	return Config{
		SlotCount:      DefaultSlotCount,
		BufferJobCount: DefaultBufferJobCount,
		BufferSize:     DefaultBufferSize,
		MaxWaiters:     DefaultMaxWaiters,
		MaxQueues:      DefaultMaxQueues,
		ContextCount:   DefaultMaxQueues,
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// validate checks that the configuration is internally consistent,
// returning ErrInvalidConfig wrapped with the specific reason if not.
func (c Config) validate() error {
	if !isPowerOfTwo(c.SlotCount) || c.SlotCount > 1<<16 {
		return errInvalidConfigf("slot count %d must be a power of two no greater than 65536", c.SlotCount)
	}
	if c.BufferJobCount <= 0 || c.SlotCount%c.BufferJobCount != 0 {
		return errInvalidConfigf("buffer job count %d must evenly divide slot count %d", c.BufferJobCount, c.SlotCount)
	}
	if c.BufferSize == 0 {
		return errInvalidConfigf("buffer size must be non-zero")
	}
	if c.MaxWaiters == 0 {
		return errInvalidConfigf("max waiters must be non-zero")
	}
	if c.MaxQueues <= 0 {
		return errInvalidConfigf("max queues must be positive")
	}
	if c.ContextCount <= 0 {
		return errInvalidConfigf("context count must be positive")
	}
	return nil
}
