package sim

import (
	"container/heap"
	"fmt"
)

// EventKind tags an Event. The set is closed.
type EventKind int

const (
	// ClockTick drives periodic datacenter processing.
	ClockTick EventKind = iota
	// VmHostAllocation fires once a Vm has been placed on a Host.
	VmHostAllocation
	// CloudletFinish fires at the tick a Cloudlet completed.
	CloudletFinish
	// SimulationTerminate marks the horizon and stops the run.
	SimulationTerminate
)

var eventKindNames = map[EventKind]string{
	ClockTick:           "ClockTick",
	VmHostAllocation:    "VmHostAllocation",
	CloudletFinish:      "CloudletFinish",
	SimulationTerminate: "SimulationTerminate",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a value object owned by the EventQueue until dispatched.
// Payload fields are set according to Kind:
//   - VmHostAllocation: Vm, Host
//   - CloudletFinish: Cloudlet, Vm
//   - ClockTick, SimulationTerminate: none
type Event struct {
	time float64
	kind EventKind
	seq  uint64

	Vm       *Vm
	Host     *Host
	Cloudlet *Cloudlet

	index      int // position in the heap, -1 once removed
	dispatched bool
}

// NewEvent creates an unscheduled event of the given kind due at t.
func NewEvent(t float64, kind EventKind) *Event {
	return &Event{time: t, kind: kind, index: -1}
}

// Timestamp returns the simulated time (seconds) the event is due.
func (e *Event) Timestamp() float64 { return e.time }

// Kind returns the event tag.
func (e *Event) Kind() EventKind { return e.kind }

// Seq returns the schedule order. Assigned by EventQueue.Push.
func (e *Event) Seq() uint64 { return e.seq }

// Pending reports whether the event is still waiting in a queue.
func (e *Event) Pending() bool { return e.index >= 0 && !e.dispatched }

// entityID names the primary payload of the event for logs and traces.
func (e *Event) entityID() string {
	switch {
	case e.Cloudlet != nil:
		return e.Cloudlet.Name()
	case e.Vm != nil:
		return e.Vm.Name()
	default:
		return ""
	}
}

func (e *Event) String() string {
	if id := e.entityID(); id != "" {
		return fmt.Sprintf("%s(%s)@%.3f", e.kind, id, e.time)
	}
	return fmt.Sprintf("%s@%.3f", e.kind, e.time)
}

// eventHeap implements heap.Interface ordered by (timestamp, seq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	ev := x.(*Event)
	ev.index = len(*h)
	*h = append(*h, ev)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*h = old[:n-1]
	return ev
}

// EventQueue is a min-heap of events with FIFO tie-breaking among equal
// timestamps. The queue does not know the clock; causality is enforced by
// Simulation.Schedule.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int { return q.events.Len() }

// Push stamps ev with the next sequence number and inserts it.
func (q *EventQueue) Push(ev *Event) {
	if ev == nil {
		panic("EventQueue.Push: ev must not be nil")
	}
	q.nextSeq++
	ev.seq = q.nextSeq
	heap.Push(&q.events, ev)
}

// PopNext removes and returns the earliest event, or nil when empty.
func (q *EventQueue) PopNext() *Event {
	if q.events.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.events).(*Event)
}

// Peek returns the earliest event without removing it, or nil when empty.
func (q *EventQueue) Peek() *Event {
	if q.events.Len() == 0 {
		return nil
	}
	return q.events[0]
}

// Remove withdraws ev if it is still queued. Returns false otherwise.
func (q *EventQueue) Remove(ev *Event) bool {
	if ev == nil || ev.index < 0 || ev.index >= len(q.events) || q.events[ev.index] != ev {
		return false
	}
	heap.Remove(&q.events, ev.index)
	return true
}
