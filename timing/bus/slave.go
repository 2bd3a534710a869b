package bus

import (
	"math/rand/v2"

	"github.com/sarchlab/coresim/emu"
	"github.com/sarchlab/coresim/timing/cache"
)

// SlaveConfig controls the timing of a Slave.
type SlaveConfig struct {
	// GrantDelay is the number of cycles a request must be held before it
	// is granted. 0 grants in the cycle the request is first asserted.
	GrantDelay uint64 `json:"grant_delay"`

	// ValidLatency is the number of cycles between grant and valid. Values
	// below 1 are treated as 1. Ignored when Cache is set.
	ValidLatency uint64 `json:"valid_latency"`

	// RandomStall is the probability of withholding a grant or a valid in
	// any given cycle.
	RandomStall float64 `json:"random_stall"`

	// Seed seeds the stall generator.
	Seed uint64 `json:"seed"`

	// ErrorWindows lists address ranges answered with an error.
	ErrorWindows []AddrRange `json:"error_windows,omitempty"`

	// Cache, if set, derives the valid latency from a cache model.
	Cache *cache.Config `json:"cache,omitempty"`
}

// SlaveStats counts the transactions served by a Slave.
type SlaveStats struct {
	Reads  uint64
	Writes uint64
	Errors uint64
}

// Slave is the bus-side responder. It accepts one transaction at a time,
// performs the access against memory when granting, and returns the result
// after the configured latency. A new request can be granted in the same
// cycle the previous one is validated.
type Slave struct {
	config SlaveConfig
	memory *emu.Memory
	cache  *cache.Cache
	rng    *rand.Rand

	held        uint64
	outstanding bool
	countdown   uint64
	rdata       uint32

	stallGrant bool
	stallValid bool

	stats SlaveStats
}

// NewSlave creates a slave serving memory.
func NewSlave(memory *emu.Memory, config SlaveConfig) *Slave {
	s := &Slave{
		config: config,
		memory: memory,
		rng:    rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}

	if config.Cache != nil {
		s.cache = cache.New(*config.Cache, cache.NewMemoryBacking(memory))
	}

	return s
}

// Cache returns the latency model, or nil if the slave has a fixed latency.
func (s *Slave) Cache() *cache.Cache {
	return s.cache
}

// Stats returns the transaction counters.
func (s *Slave) Stats() SlaveStats {
	return s.stats
}

// Outstanding reports whether a granted transaction awaits its valid.
func (s *Slave) Outstanding() bool {
	return s.outstanding
}

// Sample returns the response for the current cycle given the master's
// request. It does not change the slave's state.
func (s *Slave) Sample(req Request) Response {
	resp := Response{}

	if s.outstanding && s.countdown == 0 && !s.stallValid {
		resp.RValid = true
		resp.RData = s.rdata
	}

	canAccept := !s.outstanding || resp.RValid
	if req.Req && canAccept && s.held >= s.config.GrantDelay && !s.stallGrant {
		resp.Gnt = true
		resp.Err = s.inErrorWindow(req.Addr)
	}

	return resp
}

// Tick commits the cycle described by req and resp, which must be the
// values returned by Sample for this cycle.
func (s *Slave) Tick(req Request, resp Response) {
	if s.outstanding {
		if resp.RValid {
			s.outstanding = false
		} else if s.countdown > 0 {
			s.countdown--
		}
	}

	if resp.Gnt {
		s.accept(req, resp.Err)
	}

	if req.Req && !resp.Gnt {
		s.held++
	} else {
		s.held = 0
	}

	if s.config.RandomStall > 0 {
		s.stallGrant = s.rng.Float64() < s.config.RandomStall
		s.stallValid = s.rng.Float64() < s.config.RandomStall
	}
}

func (s *Slave) accept(req Request, fault bool) {
	latency := max(s.config.ValidLatency, 1)
	addr := uint64(req.Addr &^ 3)

	s.outstanding = true
	s.rdata = 0

	switch {
	case fault:
		s.stats.Errors++
	case req.WE:
		s.stats.Writes++
		if s.cache != nil {
			latency = max(s.cache.WriteWord(addr, req.BE, req.WData).Latency, 1)
		} else {
			s.memory.WriteMasked(addr, req.BE, req.WData)
		}
	default:
		s.stats.Reads++
		if s.cache != nil {
			result := s.cache.ReadWord(addr)
			latency = max(result.Latency, 1)
			s.rdata = result.Data
		} else {
			s.rdata = s.memory.Read32(addr)
		}
	}

	s.countdown = latency - 1
}

func (s *Slave) inErrorWindow(addr uint32) bool {
	for _, w := range s.config.ErrorWindows {
		if w.Contains(addr) {
			return true
		}
	}
	return false
}

// Reset drops any outstanding transaction.
func (s *Slave) Reset() {
	s.held = 0
	s.outstanding = false
	s.countdown = 0
	s.rdata = 0
	s.stallGrant = false
	s.stallValid = false
	s.stats = SlaveStats{}
	if s.cache != nil {
		s.cache.Reset()
	}
}
