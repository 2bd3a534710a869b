package prefetch

import (
	"fmt"
	"log"

	"github.com/sarchlab/coresim/timing/bus"
)

// FSMState is the control state of the prefetcher.
type FSMState uint8

// Prefetcher states.
const (
	Idle FSMState = iota
	WaitGrant
	WaitValid
	// WaitAborted waits for the valid of a fetch that a redirect made stale.
	WaitAborted
)

func (s FSMState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case WaitGrant:
		return "WaitGrant"
	case WaitValid:
		return "WaitValid"
	case WaitAborted:
		return "WaitAborted"
	}
	return fmt.Sprintf("FSMState(%d)", uint8(s))
}

// Inputs are the signals sampled in one cycle.
type Inputs struct {
	// Enable allows new fetches to start.
	Enable bool

	// Redirect abandons the sequential stream and continues at
	// RedirectAddr.
	Redirect     bool
	RedirectAddr uint32

	// QueueReady reports room for a new fetch in the decoupling queue.
	QueueReady bool

	Bus bus.Response
}

// Outputs are the signals driven in one cycle.
type Outputs struct {
	Bus bus.Request

	// Push enqueues Entry. Clear empties the queue first and wins over a
	// Push in the same cycle.
	Push  bool
	Entry Entry
	Clear bool

	Busy bool
}

// State is the register contents of the prefetcher.
type State struct {
	FSM FSMState

	// Addr is the address of the last fetch presented to the bus, or the
	// address to fetch next if Pending is set.
	Addr uint32

	// Pending is set when Addr has been latched from a reset or a redirect
	// but not yet requested.
	Pending bool
}

// nextAddr is the address the sequential stream continues at.
func (s State) nextAddr() uint32 {
	if s.Pending {
		return s.Addr
	}
	return s.Addr&^3 + 4
}

func fetch(addr uint32) bus.Request {
	return bus.Request{Req: true, Addr: addr &^ 3, BE: 0b1111}
}

// Step evaluates one clock edge.
func Step(s State, in Inputs) (State, Outputs) {
	next := s
	out := Outputs{Clear: in.Redirect}

	target := s.nextAddr()
	if in.Redirect {
		target = in.RedirectAddr
	}
	canStart := in.Enable && (in.QueueReady || in.Redirect)

	// issue drives a fetch of addr; the grant decides the next state below.
	issued := false
	issue := func(addr uint32) {
		out.Bus = fetch(addr)
		next.Addr = addr
		next.Pending = false
		issued = true
	}

	// latch remembers a redirect target that cannot be fetched yet.
	latch := func() {
		if in.Redirect {
			next.Addr = in.RedirectAddr
			next.Pending = true
		}
	}

	switch s.FSM {
	case Idle:
		if canStart {
			issue(target)
		} else {
			latch()
		}

	case WaitGrant:
		addr := s.Addr
		if in.Redirect {
			addr = in.RedirectAddr
		}
		issue(addr)

	case WaitValid:
		switch {
		case in.Bus.RValid:
			out.Push = true
			out.Entry = Entry{Addr: s.Addr, Data: in.Bus.RData}
			if canStart {
				issue(target)
			} else {
				next.FSM = Idle
				latch()
			}
		case in.Redirect:
			next.FSM = WaitAborted
			latch()
		}

	case WaitAborted:
		latch()
		if in.Bus.RValid {
			if in.Enable {
				issue(next.Addr)
			} else {
				next.FSM = Idle
			}
		}

	default:
		log.Panicf("prefetch: invalid state %v", s.FSM)
	}

	if issued {
		next.FSM = WaitGrant
		if in.Bus.Gnt {
			next.FSM = WaitValid
		}
	}

	out.Busy = s.FSM != Idle || out.Bus.Req

	return next, out
}
