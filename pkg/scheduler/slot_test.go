package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlotTableAllocatesWaiterSlices(t *testing.T) {
	tbl := newSlotTable(4, 8)
	require.Len(t, tbl.records, 4)
	for i := range tbl.records {
		assert.Len(t, tbl.records[i].waiters, 8)
	}
}

func TestInitSlotReusesGenerationWithoutRetire(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id1, _ := tbl.initSlot(0, nil, InvalidJobID)
	id2, _ := tbl.initSlot(0, nil, InvalidJobID)

	assert.Equal(t, uint32(0), id1.slotIndex())
	assert.Equal(t, uint32(0), id2.slotIndex())
	assert.Equal(t, id1.generation(), id2.generation(),
		"initSlot does not itself bump the generation; only retireLocked (on completion) does")
}

func TestRetireLockedBumpsGenerationAndDescriptorID(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id1, rec := tbl.initSlot(0, nil, InvalidJobID)

	rec.mu.Lock()
	rec.retireLocked()
	rec.mu.Unlock()

	assert.NotEqual(t, id1, rec.desc.ID, "retiring a slot must invalidate the previous occupant's ID")

	id2, _ := tbl.initSlot(0, nil, InvalidJobID)
	assert.NotEqual(t, id1.generation(), id2.generation(),
		"a slot reinitialized after retire must get a distinct generation from its prior occupant")
}

func TestInitSlotResetsBookkeeping(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, rec := tbl.initSlot(1, nil, InvalidJobID)
	assert.Equal(t, id, rec.desc.ID)
	assert.Equal(t, int32(-1), rec.wait)
	assert.Equal(t, int32(1), rec.work)
	assert.Equal(t, uint32(0), rec.waitCnt)
	assert.Equal(t, StateNotSubmitted, rec.state)
}

func TestResolveReturnsFalseForInvalidID(t *testing.T) {
	tbl := newSlotTable(4, 8)
	_, ok := tbl.resolve(InvalidJobID)
	assert.False(t, ok)
}

func TestResolveReturnsFalseForOutOfRangeSlot(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id := packJobID(99, 0)
	_, ok := tbl.resolve(id)
	assert.False(t, ok)
}

func TestResolveReturnsFalseForStaleGeneration(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, _ := tbl.initSlot(0, nil, InvalidJobID)
	stale := packJobID(id.slotIndex(), id.generation()+1)
	_, ok := tbl.resolve(stale)
	assert.False(t, ok)
}

func TestResolveReturnsDescriptorForCurrentGeneration(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, _ := tbl.initSlot(2, nil, InvalidJobID)
	desc, ok := tbl.resolve(id)
	require.True(t, ok)
	assert.Equal(t, id, desc.ID)
}

func TestCancelUnknownIDReturnsUninitialized(t *testing.T) {
	tbl := newSlotTable(4, 8)
	st := tbl.cancel(InvalidJobID)
	assert.Equal(t, StateUninitialized, st)
}

func TestCancelStaleIDReturnsUninitialized(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, _ := tbl.initSlot(0, nil, InvalidJobID)
	stale := packJobID(id.slotIndex(), id.generation()+1)
	st := tbl.cancel(stale)
	assert.Equal(t, StateUninitialized, st)
}

func TestCancelTransitionsNotSubmittedToCanceled(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, _ := tbl.initSlot(0, nil, InvalidJobID)
	st := tbl.cancel(id)
	assert.Equal(t, StateCanceled, st)
}

func TestCancelIsANoOpOnceRunning(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, rec := tbl.initSlot(0, nil, InvalidJobID)
	rec.mu.Lock()
	rec.state = StateRunning
	rec.mu.Unlock()

	st := tbl.cancel(id)
	assert.Equal(t, StateRunning, st, "cancel must not override a running job's state")
}

func TestCancelIsANoOpOnceCompleted(t *testing.T) {
	tbl := newSlotTable(4, 8)
	id, rec := tbl.initSlot(0, nil, InvalidJobID)
	rec.mu.Lock()
	rec.state = StateCompleted
	rec.mu.Unlock()

	st := tbl.cancel(id)
	assert.Equal(t, StateCompleted, st)
}
