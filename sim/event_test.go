package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_PopNext_OrdersByTimestamp(t *testing.T) {
	// GIVEN events pushed out of time order
	q := NewEventQueue()
	for _, ts := range []float64{3, 1, 2} {
		q.Push(NewEvent(ts, ClockTick))
	}

	// WHEN popped
	var got []float64
	for q.Len() > 0 {
		got = append(got, q.PopNext().Timestamp())
	}

	// THEN timestamps come out ascending
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestEventQueue_EqualTimestamps_DispatchFIFO(t *testing.T) {
	// GIVEN several events at the same timestamp with different kinds
	q := NewEventQueue()
	first := NewEvent(5, CloudletFinish)
	second := NewEvent(5, ClockTick)
	third := NewEvent(5, VmHostAllocation)
	q.Push(first)
	q.Push(second)
	q.Push(third)

	// THEN they pop in push order regardless of kind
	assert.Same(t, first, q.PopNext())
	assert.Same(t, second, q.PopNext())
	assert.Same(t, third, q.PopNext())
	assert.Nil(t, q.PopNext())
}

func TestEventQueue_Push_AssignsIncreasingSeq(t *testing.T) {
	q := NewEventQueue()
	a, b := NewEvent(0, ClockTick), NewEvent(0, ClockTick)
	q.Push(a)
	q.Push(b)
	assert.Less(t, a.Seq(), b.Seq())
}

func TestEventQueue_Remove_WithdrawsQueuedEvent(t *testing.T) {
	// GIVEN three queued events
	q := NewEventQueue()
	a, b, c := NewEvent(1, ClockTick), NewEvent(2, ClockTick), NewEvent(3, ClockTick)
	q.Push(a)
	q.Push(b)
	q.Push(c)

	// WHEN the middle one is removed
	require.True(t, q.Remove(b))

	// THEN it is no longer pending and the others still pop in order
	assert.False(t, b.Pending())
	assert.False(t, q.Remove(b), "second removal must fail")
	assert.Same(t, a, q.PopNext())
	assert.Same(t, c, q.PopNext())
}

func TestEventQueue_Peek_DoesNotRemove(t *testing.T) {
	q := NewEventQueue()
	assert.Nil(t, q.Peek())
	ev := NewEvent(1, ClockTick)
	q.Push(ev)
	assert.Same(t, ev, q.Peek())
	assert.Equal(t, 1, q.Len())
}

func TestEventQueue_Push_NilPanics(t *testing.T) {
	assert.PanicsWithValue(t, "EventQueue.Push: ev must not be nil", func() {
		NewEventQueue().Push(nil)
	})
}

func TestEvent_String_IncludesEntity(t *testing.T) {
	ev := NewEvent(2, CloudletFinish)
	ev.Cloudlet = NewCloudlet(7, 100, 1)
	assert.Equal(t, "CloudletFinish(cloudlet-7)@2.000", ev.String())
	assert.Equal(t, "ClockTick@1.500", NewEvent(1.5, ClockTick).String())
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "SimulationTerminate", SimulationTerminate.String())
	assert.Equal(t, "EventKind(42)", EventKind(42).String())
}
