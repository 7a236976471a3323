package kinetics

import (
	"sort"
	"time"
)

// DelayedEvent is a pending delayed reaction waiting to fire.
type DelayedEvent struct {
	FireTime  time.Duration
	Subvolume int
	Reaction  int
	Consuming bool
}

// DelayedQueue holds pending delayed events sorted ascending by FireTime.
// Inserts are rare and reads are head-only hot, so a sorted slice with
// binary-search insertion is the right trade-off — matching spec's note
// that a sorted dynamic array is as acceptable as a heap here.
type DelayedQueue struct {
	events []DelayedEvent
}

// NewDelayedQueue returns an empty queue.
func NewDelayedQueue() *DelayedQueue {
	return &DelayedQueue{}
}

// Push inserts ev, keeping events sorted by FireTime; ties keep insertion
// order (stable relative to equal fire times already present).
func (q *DelayedQueue) Push(ev DelayedEvent) {
	i := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].FireTime > ev.FireTime
	})
	q.events = append(q.events, DelayedEvent{})
	copy(q.events[i+1:], q.events[i:])
	q.events[i] = ev
}

// Peek returns the earliest pending event without removing it.
func (q *DelayedQueue) Peek() (DelayedEvent, bool) {
	if len(q.events) == 0 {
		return DelayedEvent{}, false
	}
	return q.events[0], true
}

// Pop removes and returns the earliest pending event.
func (q *DelayedQueue) Pop() (DelayedEvent, bool) {
	ev, ok := q.Peek()
	if !ok {
		return DelayedEvent{}, false
	}
	q.events = q.events[1:]
	return ev, true
}

// Len returns the number of pending events.
func (q *DelayedQueue) Len() int { return len(q.events) }
