// Package core provides the cycle-level model of a core's memory interface.
// It connects the load-store unit and the instruction prefetcher to their
// buses and drives both from a Workload.
package core

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/coresim/emu"
	"github.com/sarchlab/coresim/timing/bus"
	"github.com/sarchlab/coresim/timing/config"
	"github.com/sarchlab/coresim/timing/lsu"
	"github.com/sarchlab/coresim/timing/prefetch"
)

// ErrCycleLimit is returned by Run when the workload has not finished within
// the configured number of cycles.
var ErrCycleLimit = errors.New("cycle limit reached")

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64

	// Data side.
	Loads            uint64
	Stores           uint64
	DataTransactions uint64
	SplitAccesses    uint64
	DataErrors       uint64

	// Instruction side.
	FetchTransactions uint64
	Fetched           uint64
	Delivered         uint64
	Discarded         uint64
	Redirects         uint64
	FetchErrors       uint64
}

// Core is a ticking component holding a load-store unit and a prefetcher,
// each with its own bus slave over a shared memory.
type Core struct {
	*sim.TickingComponent

	engine sim.Engine
	config *config.Config
	memory *emu.Memory

	lsu        *lsu.Unit
	prefetcher *prefetch.Unit

	dataBus    *bus.Slave
	fetchBus   *bus.Slave
	dataCheck  *bus.Checker
	fetchCheck *bus.Checker

	workload Workload
	cycle    uint64
	err      error

	nextOp       int
	opErr        bool
	inflight     *Result
	results      []Result
	nextRedirect int
	delivered    []prefetch.Entry
}

// NewCore creates a core named name that is scheduled on engine.
func NewCore(
	name string,
	engine sim.Engine,
	cfg *config.Config,
	memory *emu.Memory,
) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Core{
		engine:     engine,
		config:     cfg.Clone(),
		memory:     memory,
		lsu:        lsu.NewUnit(),
		dataBus:    bus.NewSlave(memory, cfg.DataBus()),
		fetchBus:   bus.NewSlave(memory, cfg.FetchBus()),
		dataCheck:  bus.NewChecker(name + ".DataBus"),
		fetchCheck: bus.NewChecker(name + ".InstrBus"),
	}
	c.prefetcher = prefetch.NewUnit(
		prefetch.NewQueue(name+".FetchQueue", cfg.QueueDepth), 0)
	c.TickingComponent = sim.NewTickingComponent(
		name, engine, sim.Freq(cfg.FreqMHz)*sim.MHz, c)

	return c, nil
}

// Config returns the configuration the core was built with.
func (c *Core) Config() *config.Config {
	return c.config
}

// Memory returns the memory behind both buses.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// LSU returns the load-store unit.
func (c *Core) LSU() *lsu.Unit {
	return c.lsu
}

// Prefetcher returns the instruction prefetcher.
func (c *Core) Prefetcher() *prefetch.Unit {
	return c.prefetcher
}

// DataSlave returns the slave of the data bus.
func (c *Core) DataSlave() *bus.Slave {
	return c.dataBus
}

// FetchSlave returns the slave of the instruction bus.
func (c *Core) FetchSlave() *bus.Slave {
	return c.fetchBus
}

// SetWorkload resets the core and installs w.
func (c *Core) SetWorkload(w Workload) {
	c.workload = w.normalized()
	c.Reset()
}

// Reset returns the core to cycle 0 of its workload. Memory is kept.
func (c *Core) Reset() {
	c.cycle = 0
	c.err = nil

	c.lsu.Reset()
	c.prefetcher.Reset(c.workload.Fetch.Boot)
	c.dataBus.Reset()
	c.fetchBus.Reset()
	c.dataCheck.Reset()
	c.fetchCheck.Reset()

	c.nextOp = 0
	c.opErr = false
	c.inflight = nil
	c.results = nil
	c.nextRedirect = 0
	c.delivered = nil
}

// Cycle returns the number of cycles simulated.
func (c *Core) Cycle() uint64 {
	return c.cycle
}

// Err returns the first bus protocol violation, if any. A core with an
// error does not advance.
func (c *Core) Err() error {
	return c.err
}

// Results returns the completed loads and stores in completion order.
func (c *Core) Results() []Result {
	return c.results
}

// Delivered returns the instruction words taken from the queue by the
// consumer.
func (c *Core) Delivered() []prefetch.Entry {
	return c.delivered
}

// Finished reports whether both sides of the workload are complete.
func (c *Core) Finished() bool {
	return c.dataDone() && c.fetchDone()
}

func (c *Core) dataDone() bool {
	return c.nextOp == len(c.workload.Ops) && c.inflight == nil
}

func (c *Core) fetchDone() bool {
	plan := c.workload.Fetch
	if !plan.Enable {
		return true
	}
	return plan.Limit > 0 && len(c.delivered) >= plan.Limit
}

func (c *Core) running() bool {
	if c.err != nil || c.Finished() {
		return false
	}
	return c.config.MaxCycles == 0 || c.cycle < c.config.MaxCycles
}

// Tick advances the core by one cycle. It returns false once the core has
// nothing left to do.
func (c *Core) Tick() bool {
	if !c.running() {
		return false
	}

	c.step()

	return c.running()
}

// RunCycles executes the core for at most the given number of cycles.
// Returns true if still running.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && c.running(); i++ {
		c.step()
	}

	return c.running()
}

// Run schedules the core on its engine and runs the engine until the core
// stops ticking.
func (c *Core) Run() error {
	if c.running() {
		c.TickLater()

		if err := c.engine.Run(); err != nil {
			return fmt.Errorf("engine failed: %w", err)
		}
	}

	switch {
	case c.err != nil:
		return c.err
	case !c.Finished():
		return fmt.Errorf("%s after %d cycles: %w", c.Name(), c.cycle, ErrCycleLimit)
	}

	return nil
}

func (c *Core) step() {
	c.stepData()
	if c.err == nil {
		c.stepFetch()
	}

	c.cycle++
}

func (c *Core) stepData() {
	in := lsu.Inputs{}
	if c.nextOp < len(c.workload.Ops) {
		in.Req = true
		in.Access = c.workload.Ops[c.nextOp]
	}

	req, rsp := bus.Settle(c.dataBus, func(r bus.Response) bus.Request {
		in.Bus = r
		return c.lsu.Probe(in)
	})
	in.Bus = rsp

	if err := c.dataCheck.Check(req, rsp); err != nil {
		c.err = err
		return
	}

	c.invokeBusHooks(DataBus, HookPosDataReq, HookPosDataRsp, req, rsp)

	out := c.lsu.Tick(in)
	c.dataBus.Tick(req, rsp)

	if out.DataValid {
		r := *c.inflight
		r.Done = c.cycle
		if !r.Access.Write {
			r.RData = out.RData
		}
		c.results = append(c.results, r)
		c.inflight = nil
	}

	if out.LoadErr || out.StoreErr {
		c.opErr = true
	}

	if out.UpdateAddr && !out.Misaligned {
		c.inflight = &Result{
			Access:  in.Access,
			Err:     c.opErr,
			Granted: c.cycle,
		}
		c.nextOp++
		c.opErr = false
	}
}

func (c *Core) stepFetch() {
	plan := c.workload.Fetch

	if plan.PopEvery > 0 && c.cycle%plan.PopEvery == 0 && !c.fetchDone() {
		if e, ok := c.prefetcher.Queue().Pop(); ok {
			c.delivered = append(c.delivered, e)
		}
	}

	in := prefetch.Inputs{Enable: plan.Enable}
	for c.nextRedirect < len(plan.Redirects) &&
		plan.Redirects[c.nextRedirect].Cycle <= c.cycle {
		in.Redirect = true
		in.RedirectAddr = plan.Redirects[c.nextRedirect].Addr
		c.nextRedirect++
	}

	if in.Redirect {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosRedirect,
			Item: BusEvent{
				Cycle: c.cycle,
				Bus:   FetchBus,
				Req:   bus.Request{Addr: in.RedirectAddr},
			},
		})
	}

	req, rsp := bus.Settle(c.fetchBus, func(r bus.Response) bus.Request {
		in.Bus = r
		return c.prefetcher.Probe(in)
	})
	in.Bus = rsp

	if err := c.fetchCheck.Check(req, rsp); err != nil {
		c.err = err
		return
	}

	c.invokeBusHooks(FetchBus, HookPosFetchReq, HookPosFetchRsp, req, rsp)

	c.prefetcher.Tick(in)
	c.fetchBus.Tick(req, rsp)
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	ls := c.lsu.Stats()
	ps := c.prefetcher.Stats()

	return Stats{
		Cycles:            c.cycle,
		Loads:             ls.Loads,
		Stores:            ls.Stores,
		DataTransactions:  ls.Transactions,
		SplitAccesses:     ls.SplitAccesses,
		DataErrors:        ls.LoadErrors + ls.StoreErrors,
		FetchTransactions: ps.Requests,
		Fetched:           ps.Fetched,
		Delivered:         uint64(len(c.delivered)),
		Discarded:         ps.Discarded,
		Redirects:         ps.Redirects,
		FetchErrors:       c.fetchBus.Stats().Errors,
	}
}
