// Package queue implements the bounded event channel between capture
// threads and the dispatch loop.
//
// The queue is a fixed-capacity ring of sequence-numbered cells. Producers
// claim a cell by CAS on the tail index; the consumer claims the oldest
// published cell by CAS on the head index. Neither side ever waits for the
// other: a full queue rejects the push, an empty queue returns nothing.
// The sequence number on each cell is what prevents a torn read - a cell
// is only visible to the consumer after the producer has stored the record
// and published the new sequence.
//
// Events pushed by the same producer goroutine are popped in push order.
// Cross-producer ordering is unspecified.
package queue

import (
	"sync/atomic"

	"keybridge/internal/event"
)

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 1024

type cell struct {
	seq atomic.Uint64
	ev  event.Event
}

// Queue is a fixed-capacity, non-blocking FIFO for key events.
// Safe for concurrent TryPush from multiple goroutines and TryPop from a
// single consumer. Capacity is set at construction and never changes.
type Queue struct {
	cells []cell
	size  uint64
	head  atomic.Uint64
	tail  atomic.Uint64
}

// New creates a queue with the given capacity. A capacity below 1 falls
// back to DefaultCapacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		cells: make([]cell, capacity),
		size:  uint64(capacity),
	}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i))
	}
	return q
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return int(q.size) }

// Len returns an instantaneous estimate of the number of queued events.
func (q *Queue) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail < head {
		return 0
	}
	n := tail - head
	if n > q.size {
		n = q.size
	}
	return int(n)
}

// TryPush attempts to enqueue one event. It returns false when the queue
// is full. It never blocks and never retries a full queue internally; the
// caller must treat false as a dropped event.
func (q *Queue) TryPush(ev event.Event) bool {
	for {
		pos := q.tail.Load()
		c := &q.cells[pos%q.size]
		seq := c.seq.Load()
		switch {
		case seq == pos:
			if q.tail.CompareAndSwap(pos, pos+1) {
				c.ev = ev
				c.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			// The cell still holds an unconsumed event from a full
			// lap ago: the queue is full.
			return false
		default:
			// Another producer claimed this cell between our loads.
		}
	}
}

// TryPop attempts to dequeue the oldest event. It returns false when the
// queue is empty. It never blocks.
func (q *Queue) TryPop() (event.Event, bool) {
	for {
		pos := q.head.Load()
		c := &q.cells[pos%q.size]
		seq := c.seq.Load()
		switch {
		case seq == pos+1:
			if q.head.CompareAndSwap(pos, pos+1) {
				ev := c.ev
				c.seq.Store(pos + q.size)
				return ev, true
			}
		case seq < pos+1:
			return event.Event{}, false
		default:
			// A concurrent pop advanced past this cell.
		}
	}
}
