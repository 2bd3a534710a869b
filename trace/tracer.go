package trace

import (
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/coresim/timing/core"
)

// BusTracer is a hook that assembles transactions from the bus events of
// cores and writes them once they complete.
type BusTracer struct {
	writer Writer
	err    error

	// waiting holds requests that have not been granted yet, granted holds
	// those that wait for their valid.
	waiting map[key]*Transaction
	granted map[key]*Transaction
}

type key struct {
	where string
	bus   core.BusName
}

// NewBusTracer creates a tracer that writes to w.
func NewBusTracer(w Writer) *BusTracer {
	return &BusTracer{
		writer:  w,
		waiting: make(map[key]*Transaction),
		granted: make(map[key]*Transaction),
	}
}

// Err returns the first error reported by the writer.
func (t *BusTracer) Err() error {
	return t.err
}

// Func records the event carried by ctx. Events other than bus requests and
// responses are ignored.
func (t *BusTracer) Func(ctx sim.HookCtx) {
	event, ok := ctx.Item.(core.BusEvent)
	if !ok {
		return
	}

	k := key{bus: event.Bus}
	if named, ok := ctx.Domain.(sim.Named); ok {
		k.where = named.Name()
	}

	switch ctx.Pos {
	case core.HookPosDataReq, core.HookPosFetchReq:
		t.request(k, event)
	case core.HookPosDataRsp, core.HookPosFetchRsp:
		t.response(k, event)
	}
}

func (t *BusTracer) request(k key, event core.BusEvent) {
	tx, found := t.waiting[k]
	if !found {
		tx = &Transaction{
			ID:    xid.New().String(),
			Where: k.where,
			Bus:   k.bus,
			Issue: event.Cycle,
		}
		t.waiting[k] = tx
	}

	// An ungranted request may still change.
	tx.Addr = event.Req.Addr
	tx.Write = event.Req.WE
	tx.BE = event.Req.BE
	tx.WData = event.Req.WData

	if event.Rsp.Gnt {
		tx.Grant = event.Cycle
		tx.Err = event.Rsp.Err
		t.granted[k] = tx
		delete(t.waiting, k)
	}
}

func (t *BusTracer) response(k key, event core.BusEvent) {
	tx, found := t.granted[k]
	if !found {
		return
	}
	delete(t.granted, k)

	tx.Valid = event.Cycle
	if !tx.Write {
		tx.RData = event.Rsp.RData
	}

	if err := t.writer.Write(*tx); err != nil && t.err == nil {
		t.err = err
	}
}

// Flush flushes the writer.
func (t *BusTracer) Flush() error {
	if err := t.writer.Flush(); err != nil {
		return err
	}
	return t.err
}
