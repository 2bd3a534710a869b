// Package trace records the transactions of a core's buses. A BusTracer is
// attached to a core as a hook and hands every completed transaction to a
// Writer.
package trace

import "github.com/sarchlab/coresim/timing/core"

// Transaction is one bus transaction, from the first cycle its request was
// driven to the cycle its valid returned.
type Transaction struct {
	ID    string
	Where string
	Bus   core.BusName

	Addr  uint32
	Write bool
	BE    uint8
	WData uint32
	RData uint32
	Err   bool

	Issue uint64
	Grant uint64
	Valid uint64
}

// A Writer stores transactions.
type Writer interface {
	// Init prepares the destination. It must be called before Write.
	Init() error

	// Write buffers a transaction.
	Write(t Transaction) error

	// Flush stores all buffered transactions.
	Flush() error
}
