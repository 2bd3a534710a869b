package prefetch

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"
)

// Entry is one fetched instruction word.
type Entry struct {
	Addr uint32
	Data uint32
}

// Queue is the bounded FIFO that decouples instruction fetch from the
// consumer. Only the prefetcher pushes and only the consumer pops.
type Queue struct {
	buf sim.Buffer
}

// NewQueue creates a queue. The capacity must leave room for the word in
// flight plus one more, so it must be at least 2.
func NewQueue(name string, capacity int) *Queue {
	if capacity < 2 {
		log.Panicf("prefetch queue %s: capacity %d is less than 2", name, capacity)
	}

	return &Queue{buf: sim.NewBuffer(name, capacity)}
}

// Name returns the name of the queue.
func (q *Queue) Name() string {
	return q.buf.Name()
}

// AcceptHook registers a hook that observes pushes and pops.
func (q *Queue) AcceptHook(hook sim.Hook) {
	q.buf.AcceptHook(hook)
}

// Push appends e. It returns false and drops e if the queue is full.
func (q *Queue) Push(e Entry) bool {
	if !q.buf.CanPush() {
		return false
	}

	q.buf.Push(e)

	return true
}

// Pop removes the oldest entry.
func (q *Queue) Pop() (Entry, bool) {
	e := q.buf.Pop()
	if e == nil {
		return Entry{}, false
	}

	return e.(Entry), true
}

// Peek returns the oldest entry without removing it.
func (q *Queue) Peek() (Entry, bool) {
	e := q.buf.Peek()
	if e == nil {
		return Entry{}, false
	}

	return e.(Entry), true
}

// Len returns the number of buffered entries.
func (q *Queue) Len() int {
	return q.buf.Size()
}

// Capacity returns the maximum number of entries.
func (q *Queue) Capacity() int {
	return q.buf.Capacity()
}

// Ready reports whether a new fetch may be started: the word it returns
// and the word already in flight must both fit.
func (q *Queue) Ready() bool {
	return q.buf.Capacity()-q.buf.Size() >= 2
}

// Clear discards all entries.
func (q *Queue) Clear() {
	q.buf.Clear()
}
