// Package prefetch provides the instruction prefetcher: the controller that
// keeps the decoupling queue filled with sequential instruction words and
// restarts the stream on redirects.
//
// The instruction bus never carries more than one fetch. A redirect that
// arrives while a fetch is outstanding moves the prefetcher to WaitAborted,
// where the stale word is absorbed and dropped before the redirect target
// is requested.
package prefetch

import (
	"log"

	"github.com/sarchlab/coresim/timing/bus"
)

// Statistics holds prefetcher counters.
type Statistics struct {
	Requests   uint64
	Fetched    uint64
	Discarded  uint64
	Redirects  uint64
	BusyCycles uint64
}

// Unit is the stateful prefetcher. It owns the decoupling queue; the
// consumer drains it through Queue().
type Unit struct {
	state State
	queue *Queue
	stats Statistics
}

// NewUnit creates a prefetcher that starts fetching at boot.
func NewUnit(queue *Queue, boot uint32) *Unit {
	u := &Unit{queue: queue}
	u.Reset(boot)

	return u
}

// Queue returns the decoupling queue.
func (u *Unit) Queue() *Queue {
	return u.queue
}

// State returns the current register contents.
func (u *Unit) State() State {
	return u.state
}

// Stats returns the prefetcher counters.
func (u *Unit) Stats() Statistics {
	return u.stats
}

// Probe returns the bus request the unit drives this cycle for in, without
// advancing. in.QueueReady is taken from the queue.
func (u *Unit) Probe(in Inputs) bus.Request {
	in.QueueReady = u.queue.Ready()
	_, out := Step(u.state, in)

	return out.Bus
}

// Tick advances the unit by one cycle and applies its queue operations.
// in.QueueReady is taken from the queue.
func (u *Unit) Tick(in Inputs) Outputs {
	in.QueueReady = u.queue.Ready()
	next, out := Step(u.state, in)

	if out.Bus.Req && in.Bus.Gnt {
		u.stats.Requests++
	}

	if in.Redirect {
		u.stats.Redirects++
	}

	if u.state.FSM == WaitAborted && in.Bus.RValid {
		u.stats.Discarded++
	}

	switch {
	case out.Clear:
		u.stats.Discarded += uint64(u.queue.Len())
		if out.Push {
			u.stats.Discarded++
		}
		u.queue.Clear()
	case out.Push:
		if !u.queue.Push(out.Entry) {
			log.Panicf("prefetch: queue %s overflow at 0x%08x",
				u.queue.Name(), out.Entry.Addr)
		}
		u.stats.Fetched++
	}

	if out.Busy {
		u.stats.BusyCycles++
	}

	u.state = next

	return out
}

// Reset drops all state, empties the queue and arranges for the next fetch
// to go to boot.
func (u *Unit) Reset(boot uint32) {
	u.state = State{Addr: boot, Pending: true}
	u.stats = Statistics{}
	u.queue.Clear()
}
