package bus

import (
	"errors"
	"fmt"
)

// Protocol violations reported by Checker.
var (
	ErrGrantWithoutRequest     = errors.New("grant without request")
	ErrErrorWithoutGrant       = errors.New("error without grant")
	ErrValidWithoutOutstanding = errors.New("valid without outstanding request")
	ErrRequestWhileOutstanding = errors.New("request while a transaction is outstanding")
	ErrUnalignedAddress        = errors.New("request address not word aligned")
)

// Checker monitors one bus cycle by cycle and reports the first rule a cycle
// breaks.
type Checker struct {
	name        string
	cycle       uint64
	outstanding bool
}

// NewChecker creates a checker for the bus with the given name.
func NewChecker(name string) *Checker {
	return &Checker{name: name}
}

// Outstanding reports whether a granted transaction awaits its valid.
func (c *Checker) Outstanding() bool {
	return c.outstanding
}

// Check validates one cycle and advances the checker.
func (c *Checker) Check(req Request, resp Response) error {
	err := c.violation(req, resp)

	if resp.RValid {
		c.outstanding = false
	}
	if resp.Gnt {
		c.outstanding = true
	}
	c.cycle++

	if err != nil {
		return fmt.Errorf("%s: cycle %d, %v: %w", c.name, c.cycle-1, req, err)
	}

	return nil
}

func (c *Checker) violation(req Request, resp Response) error {
	switch {
	case resp.Gnt && !req.Req:
		return ErrGrantWithoutRequest
	case resp.Err && !resp.Gnt:
		return ErrErrorWithoutGrant
	case resp.RValid && !c.outstanding:
		return ErrValidWithoutOutstanding
	case req.Req && c.outstanding && !resp.RValid:
		return ErrRequestWhileOutstanding
	case req.Req && req.Addr&3 != 0:
		return ErrUnalignedAddress
	}

	return nil
}

// Reset forgets the outstanding transaction and the cycle count.
func (c *Checker) Reset() {
	c.cycle = 0
	c.outstanding = false
}
