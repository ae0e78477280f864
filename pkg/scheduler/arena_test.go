package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint32(0), alignUp(0, 8))
	assert.Equal(t, uint32(8), alignUp(1, 8))
	assert.Equal(t, uint32(8), alignUp(8, 8))
	assert.Equal(t, uint32(16), alignUp(9, 8))
	assert.Equal(t, uint32(5), alignUp(5, 0))
	assert.Equal(t, uint32(5), alignUp(5, 1))
}

func TestBumpAllocWithinCapacity(t *testing.T) {
	b := &buffer{mem: make([]byte, 64), cap: 64}
	region, offset, ok := b.bumpAlloc(16, 8)
	require.True(t, ok)
	assert.Equal(t, uint32(0), offset)
	assert.Len(t, region, 16)
	assert.Equal(t, uint32(16), b.offset)
}

func TestBumpAllocRespectsAlignment(t *testing.T) {
	b := &buffer{mem: make([]byte, 64), cap: 64, offset: 3}
	_, offset, ok := b.bumpAlloc(8, 8)
	require.True(t, ok)
	assert.Equal(t, uint32(8), offset)
}

func TestBumpAllocFailsOnOverflow(t *testing.T) {
	b := &buffer{mem: make([]byte, 16), cap: 16, offset: 10}
	_, _, ok := b.bumpAlloc(16, 1)
	assert.False(t, ok)
}

func TestBufferArenaAcquireGrowsUpToLimit(t *testing.T) {
	a := newBufferArena(2, 64, 4)

	b1, err := a.acquire(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), b1.base)

	b2, err := a.acquire(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), b2.base)

	_, err = a.acquire(nil)
	assert.ErrorIs(t, err, ErrBufferPoolExhausted)
}

func TestBufferArenaReleaseReturnsToFreeList(t *testing.T) {
	a := newBufferArena(1, 64, 4)
	b, err := a.acquire(nil)
	require.NoError(t, err)

	b.addRef() // simulate one live job
	a.release(b)
	assert.Equal(t, 1, a.inUse(), "buffer should still be in use while a job references it")

	a.release(b)
	assert.Equal(t, 0, a.inUse(), "buffer should return to the free list once its last reference drops")

	reused, err := a.acquire(nil)
	require.NoError(t, err)
	assert.Same(t, b, reused, "a freed buffer should be handed back out before growing the pool")
	assert.Equal(t, uint32(0), reused.offset, "a reused buffer must reset its bump offset")
}

func TestBufferArenaAcquireWithCurrentReusesInPlaceWhenUnreferenced(t *testing.T) {
	a := newBufferArena(2, 64, 4)
	b, err := a.acquire(nil)
	require.NoError(t, err)

	next, err := a.acquire(b)
	require.NoError(t, err)
	assert.Same(t, b, next, "releasing the only reference to the current buffer should reuse it in place")
}

func TestBufferArenaAcquireWithCurrentRollsOverWhenStillReferenced(t *testing.T) {
	a := newBufferArena(2, 64, 4)
	b, err := a.acquire(nil)
	require.NoError(t, err)
	b.addRef() // outstanding job keeps this buffer alive

	next, err := a.acquire(b)
	require.NoError(t, err)
	assert.NotSame(t, b, next, "a buffer with outstanding job references must not be reused in place")
}
