package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueRoundsCapacityToPowerOfTwo(t *testing.T) {
	q := NewQueue(1, 5)
	assert.Equal(t, uint64(7), q.mask) // rounds 5 up to 8, mask = 7
}

func TestQueuePushTakeFIFO(t *testing.T) {
	q := NewQueue(1, 4)
	d1 := &Descriptor{ID: packJobID(1, 0)}
	d2 := &Descriptor{ID: packJobID(2, 0)}

	require.True(t, q.Push(d1))
	require.True(t, q.Push(d2))

	got1, ok := q.Take()
	require.True(t, ok)
	assert.Same(t, d1, got1)

	got2, ok := q.Take()
	require.True(t, ok)
	assert.Same(t, d2, got2)
}

func TestQueueDepth(t *testing.T) {
	q := NewQueue(1, 4)
	assert.Equal(t, 0, q.Depth())
	q.Push(&Descriptor{})
	q.Push(&Descriptor{})
	assert.Equal(t, 2, q.Depth())
	q.Take()
	assert.Equal(t, 1, q.Depth())
}

func TestQueueTakeBlocksUntilPush(t *testing.T) {
	q := NewQueue(1, 4)
	done := make(chan *Descriptor, 1)
	go func() {
		job, ok := q.Take()
		if ok {
			done <- job
		}
	}()

	select {
	case <-done:
		t.Fatal("Take returned before any job was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	d := &Descriptor{}
	q.Push(d)

	select {
	case got := <-done:
		assert.Same(t, d, got)
	case <-time.After(time.Second):
		t.Fatal("Take never woke up after Push")
	}
}

func TestQueueSignalTerminateUnblocksTake(t *testing.T) {
	q := NewQueue(1, 4)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Take()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Signal(SignalTerminate)

	select {
	case ok := <-done:
		assert.False(t, ok, "Take on a terminated, empty queue should return ok=false")
	case <-time.After(time.Second):
		t.Fatal("Take never woke up after Signal(SignalTerminate)")
	}
}

func TestQueuePushReturnsFalseWhenSignaled(t *testing.T) {
	q := NewQueue(1, 4)
	q.Signal(SignalTerminate)
	ok := q.Push(&Descriptor{})
	assert.False(t, ok)
}

func TestQueueFlushDiscardsPendingEntries(t *testing.T) {
	q := NewQueue(1, 4)
	q.Push(&Descriptor{})
	q.Push(&Descriptor{})
	q.Flush()
	assert.Equal(t, 0, q.Depth())
}

func TestQueueCheckSignalReflectsState(t *testing.T) {
	q := NewQueue(1, 4)
	assert.Equal(t, SignalClear, q.CheckSignal())
	q.Signal(SignalUser)
	assert.Equal(t, SignalUser, q.CheckSignal())
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	q := NewQueue(1, 16)
	const n = 200

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			q.Push(&Descriptor{User1: uintptr(i)})
		}
	}()

	received := 0
	go func() {
		defer wg.Done()
		for received < n {
			if _, ok := q.Take(); ok {
				received++
			}
		}
	}()

	wg.Wait()
	assert.Equal(t, n, received)
}
