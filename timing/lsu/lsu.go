// Package lsu provides the load-store unit: the controller that turns
// execute-stage loads and stores into transactions on the data bus.
//
// Accesses that cross a word boundary are split into two transactions. Write
// data is rotated onto the right byte lanes, and read data is realigned and
// sign or zero extended using the access captured when the request was
// granted.
package lsu

import (
	"github.com/sarchlab/coresim/timing/bus"
)

// Statistics holds load-store unit counters.
type Statistics struct {
	Loads         uint64
	Stores        uint64
	Transactions  uint64
	SplitAccesses uint64
	LoadErrors    uint64
	StoreErrors   uint64
	BusyCycles    uint64
}

// Unit is the stateful load-store unit. It is advanced once per cycle.
type Unit struct {
	state State
	stats Statistics
}

// NewUnit creates a load-store unit in the Idle state.
func NewUnit() *Unit {
	return &Unit{}
}

// State returns the current register contents.
func (u *Unit) State() State {
	return u.state
}

// Stats returns the unit's counters.
func (u *Unit) Stats() Statistics {
	return u.stats
}

// Probe returns the bus request the unit drives this cycle for in, without
// advancing. The request depends on in.Bus.RValid but not on in.Bus.Gnt.
func (u *Unit) Probe(in Inputs) bus.Request {
	_, out := Step(u.state, in)
	return out.Bus
}

// Tick advances the unit by one cycle.
func (u *Unit) Tick(in Inputs) Outputs {
	next, out := Step(u.state, in)

	if out.UpdateAddr {
		u.stats.Transactions++
		if next.FSM == WaitValidMisaligned {
			u.stats.SplitAccesses++
		}
	}

	if out.DataValid {
		if u.state.Desc.Write {
			u.stats.Stores++
		} else {
			u.stats.Loads++
		}
	}

	if out.LoadErr {
		u.stats.LoadErrors++
	}
	if out.StoreErr {
		u.stats.StoreErrors++
	}
	if out.Busy {
		u.stats.BusyCycles++
	}

	u.state = next

	return out
}

// Reset returns the unit to Idle and clears its counters.
func (u *Unit) Reset() {
	u.state = State{}
	u.stats = Statistics{}
}
