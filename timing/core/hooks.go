package core

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/coresim/timing/bus"
)

// Hook positions invoked by the Core. The item of every invocation is a
// BusEvent.
var (
	// HookPosDataReq fires in every cycle the load-store unit drives a
	// request.
	HookPosDataReq = &sim.HookPos{Name: "DataReq"}

	// HookPosDataRsp fires in every cycle the data bus returns a valid.
	HookPosDataRsp = &sim.HookPos{Name: "DataRsp"}

	// HookPosFetchReq fires in every cycle the prefetcher drives a request.
	HookPosFetchReq = &sim.HookPos{Name: "FetchReq"}

	// HookPosFetchRsp fires in every cycle the instruction bus returns a
	// valid.
	HookPosFetchRsp = &sim.HookPos{Name: "FetchRsp"}

	// HookPosRedirect fires when a redirect reaches the prefetcher. The
	// event's Req.Addr is the redirect target.
	HookPosRedirect = &sim.HookPos{Name: "Redirect"}
)

// BusName identifies one of the two buses of a core.
type BusName string

// The buses of a core.
const (
	DataBus  BusName = "data"
	FetchBus BusName = "fetch"
)

// BusEvent is the state of one bus in one cycle.
type BusEvent struct {
	Cycle uint64
	Bus   BusName
	Req   bus.Request
	Rsp   bus.Response
}

func (c *Core) invokeBusHooks(
	name BusName,
	reqPos, rspPos *sim.HookPos,
	req bus.Request,
	rsp bus.Response,
) {
	event := BusEvent{Cycle: c.cycle, Bus: name, Req: req, Rsp: rsp}

	// A valid completes the previous transaction, so it is reported before
	// a request granted in the same cycle.
	if rsp.RValid {
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: rspPos, Item: event})
	}

	if req.Req {
		c.InvokeHook(sim.HookCtx{Domain: c, Pos: reqPos, Item: event})
	}
}
