// Package bus models the single-outstanding request/grant/valid memory bus
// shared by the load-store unit and the instruction prefetcher.
//
// Every cycle the master drives a Request. The slave answers with a
// Response: Gnt accepts the currently addressed request (possibly in the
// same cycle it is first asserted), and RValid returns the data of the
// previously granted request on a later cycle. At most one granted request
// may be waiting for its RValid.
package bus

import "fmt"

// Request holds the master-driven signals of one cycle.
type Request struct {
	Req   bool
	Addr  uint32
	WE    bool
	BE    uint8
	WData uint32
}

// Response holds the slave-driven signals of one cycle.
type Response struct {
	Gnt    bool
	RValid bool
	RData  uint32
	Err    bool
}

func (r Request) String() string {
	if !r.Req {
		return "idle"
	}

	if r.WE {
		return fmt.Sprintf("W 0x%08x be=%04b data=0x%08x", r.Addr, r.BE, r.WData)
	}

	return fmt.Sprintf("R 0x%08x be=%04b", r.Addr, r.BE)
}

// AddrRange is a half-open address window [Base, Base+Size).
type AddrRange struct {
	Base uint32 `json:"base"`
	Size uint32 `json:"size"`
}

// Contains reports whether addr falls into the window.
func (r AddrRange) Contains(addr uint32) bool {
	return addr >= r.Base && uint64(addr) < uint64(r.Base)+uint64(r.Size)
}

// Settle resolves the combinational loop of one cycle. The master's request
// may depend on RValid but never on Gnt, so the slave is sampled once with
// an idle request to learn RValid, the master is probed with that response,
// and the slave is sampled again with the probed request.
func Settle(s *Slave, probe func(Response) Request) (Request, Response) {
	req := probe(s.Sample(Request{}))

	return req, s.Sample(req)
}
