package lsu

import (
	"fmt"
	"log"

	"github.com/sarchlab/coresim/timing/bus"
)

// FSMState is the control state of the load-store unit.
type FSMState uint8

// Load-store unit states.
const (
	// Idle has no transaction pending.
	Idle FSMState = iota
	// WaitGrantMisaligned requests the first half of a split access.
	WaitGrantMisaligned
	// WaitValidMisaligned waits for the first half of a split access.
	WaitValidMisaligned
	// WaitGrant requests a single access or the second half of a split one.
	WaitGrant
	// WaitValid waits for the last transaction of an access.
	WaitValid
)

func (s FSMState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case WaitGrantMisaligned:
		return "WaitGrantMisaligned"
	case WaitValidMisaligned:
		return "WaitValidMisaligned"
	case WaitGrant:
		return "WaitGrant"
	case WaitValid:
		return "WaitValid"
	}
	return fmt.Sprintf("FSMState(%d)", uint8(s))
}

// Access describes a load or store presented by the execute stage.
type Access struct {
	Write      bool       `json:"write,omitempty"`
	Type       AccessType `json:"type"`
	WData      uint32     `json:"wdata,omitempty"`
	RegOffset  uint8      `json:"reg_offset,omitempty"`
	SignExtend bool       `json:"sign_extend,omitempty"`
	Addr       uint32     `json:"addr"`
}

// Inputs are the signals sampled in one cycle.
type Inputs struct {
	// Req asks for Access to be performed. The execute stage keeps Req and
	// Access stable until UpdateAddr pulses with Misaligned low.
	Req    bool
	Access Access
	Bus    bus.Response
}

// Outputs are the signals driven in one cycle.
type Outputs struct {
	Bus bus.Request

	// RData is the aligned and extended load result. It is meaningful when
	// DataValid is set and holds the previous result otherwise.
	RData uint32

	// DataValid pulses when the access completes.
	DataValid bool

	// UpdateAddr pulses on every grant.
	UpdateAddr bool

	// Misaligned is high while a split access still has a half that has
	// not been granted; the execute stage must keep stalling.
	Misaligned bool

	// Busy is high while a transaction is requested or outstanding.
	Busy bool

	LoadErr  bool
	StoreErr bool
}

// State is the register contents of the load-store unit.
type State struct {
	FSM FSMState

	// Split is set from the grant of the first half of a split access until
	// the valid of its second half.
	Split bool

	// Desc is the access captured at the last grant. The read path uses it
	// instead of the live inputs, which may already describe the next access.
	Desc Access

	// RDataQ holds the first beat of a split load, or the last result.
	RDataQ uint32
}

// request builds the bus request for access a. second selects the upper
// word of a split access.
func request(a Access, second bool) bus.Request {
	addr := a.Addr &^ 3
	if second {
		addr += 4
	}

	return bus.Request{
		Req:   true,
		Addr:  addr,
		WE:    a.Write,
		BE:    ByteEnable(a.Type, a.Addr, second),
		WData: RotateWriteData(a.WData, a.Addr, a.RegOffset),
	}
}

// Step evaluates one clock edge.
func Step(s State, in Inputs) (State, Outputs) {
	next := s
	out := Outputs{RData: s.RDataQ}

	live := in.Access
	liveSplit := in.Req && !s.Split && IsMisaligned(live.Type, live.Addr)

	switch s.FSM {
	case Idle:
		if in.Req {
			out.Bus = request(live, false)
		}
	case WaitGrantMisaligned:
		out.Bus = request(live, false)
	case WaitValidMisaligned:
		if in.Bus.RValid {
			out.Bus = request(s.Desc, true)
		}
	case WaitGrant:
		if s.Split {
			out.Bus = request(s.Desc, true)
		} else {
			out.Bus = request(live, false)
		}
	case WaitValid:
	default:
		log.Panicf("lsu: invalid state %v", s.FSM)
	}

	gnt := in.Bus.Gnt && out.Bus.Req
	out.UpdateAddr = gnt
	out.LoadErr = gnt && in.Bus.Err && !out.Bus.WE
	out.StoreErr = gnt && in.Bus.Err && out.Bus.WE

	switch s.FSM {
	case Idle:
		if !in.Req {
			break
		}
		if gnt {
			next.Desc = live
			next.Split = liveSplit
			next.FSM = WaitValid
			if liveSplit {
				next.FSM = WaitValidMisaligned
			}
		} else {
			next.FSM = WaitGrant
			if liveSplit {
				next.FSM = WaitGrantMisaligned
			}
		}

	case WaitGrantMisaligned:
		if gnt {
			next.Desc = live
			next.Split = true
			next.FSM = WaitValidMisaligned
		}

	case WaitValidMisaligned:
		if !in.Bus.RValid {
			break
		}
		if !s.Desc.Write {
			next.RDataQ = in.Bus.RData
		}
		// The second half is already on the bus; a same-cycle grant chains
		// straight into WaitValid.
		next.FSM = WaitGrant
		if gnt {
			next.FSM = WaitValid
		}

	case WaitGrant:
		if gnt {
			if !s.Split {
				next.Desc = live
			}
			next.FSM = WaitValid
		}

	case WaitValid:
		if !in.Bus.RValid {
			break
		}
		out.DataValid = true
		if !s.Desc.Write {
			out.RData = Realign(s.Desc.Type, uint8(s.Desc.Addr&3),
				s.Desc.SignExtend, in.Bus.RData, s.RDataQ, s.Split)
			next.RDataQ = out.RData
		}
		next.Split = false
		next.FSM = Idle
	}

	out.Busy = s.FSM == WaitValid || s.FSM == WaitValidMisaligned || out.Bus.Req
	out.Misaligned = next.FSM == WaitGrantMisaligned ||
		next.FSM == WaitValidMisaligned ||
		(next.FSM == WaitGrant && next.Split)

	return next, out
}
