// Package config holds the JSON configuration of a simulated core: clock,
// queue depth, bus timing and the optional cache model behind the buses.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/coresim/timing/bus"
	"github.com/sarchlab/coresim/timing/cache"
)

// Config holds the parameters of one simulation.
type Config struct {
	// FreqMHz is the core clock. Default: 100 MHz.
	FreqMHz uint64 `json:"freq_mhz"`

	// QueueDepth is the capacity of the instruction fetch queue. It must be
	// at least 2. Default: 3.
	QueueDepth int `json:"queue_depth"`

	// MaxCycles stops a run that has not finished. 0 means no limit.
	// Default: 1000000.
	MaxCycles uint64 `json:"max_cycles"`

	// DataGrantDelay is the number of cycles the data bus holds a request
	// before granting it. Default: 0.
	DataGrantDelay uint64 `json:"data_grant_delay"`

	// DataValidLatency is the number of cycles from grant to valid on the
	// data bus. Default: 1.
	DataValidLatency uint64 `json:"data_valid_latency"`

	// FetchGrantDelay is the grant delay of the instruction bus.
	// Default: 0.
	FetchGrantDelay uint64 `json:"fetch_grant_delay"`

	// FetchValidLatency is the valid latency of the instruction bus.
	// Default: 1.
	FetchValidLatency uint64 `json:"fetch_valid_latency"`

	// RandomStall is the probability that either bus withholds a grant or
	// a valid in a given cycle. Default: 0.
	RandomStall float64 `json:"random_stall"`

	// Seed seeds the stall generators.
	Seed uint64 `json:"seed"`

	// ErrorWindows are address ranges both buses answer with an error.
	ErrorWindows []bus.AddrRange `json:"error_windows,omitempty"`

	// Cache, if set, replaces the fixed valid latencies with a cache model
	// in front of each bus.
	Cache *cache.Config `json:"cache,omitempty"`
}

// Default returns a Config with a single-cycle memory on both buses.
func Default() *Config {
	return &Config{
		FreqMHz:           100,
		QueueDepth:        3,
		MaxCycles:         1000000,
		DataGrantDelay:    0,
		DataValidLatency:  1,
		FetchGrantDelay:   0,
		FetchValidLatency: 1,
	}
}

// Load reads a Config from a JSON file. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return c, nil
}

// Save writes the Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the values describe a buildable core.
func (c *Config) Validate() error {
	if c.FreqMHz == 0 {
		return fmt.Errorf("freq_mhz must be > 0")
	}
	if c.QueueDepth < 2 {
		return fmt.Errorf("queue_depth must be >= 2")
	}
	if c.DataValidLatency == 0 {
		return fmt.Errorf("data_valid_latency must be > 0")
	}
	if c.FetchValidLatency == 0 {
		return fmt.Errorf("fetch_valid_latency must be > 0")
	}
	if c.RandomStall < 0 || c.RandomStall >= 1 {
		return fmt.Errorf("random_stall must be in [0, 1)")
	}
	for _, w := range c.ErrorWindows {
		if w.Size == 0 {
			return fmt.Errorf("error window at 0x%08x is empty", w.Base)
		}
	}
	if c.Cache != nil {
		if err := validateCache(*c.Cache); err != nil {
			return err
		}
	}
	return nil
}

func validateCache(cc cache.Config) error {
	if cc.BlockSize < 4 || cc.BlockSize&(cc.BlockSize-1) != 0 {
		return fmt.Errorf("cache block_size must be a power of two >= 4")
	}
	if cc.Associativity <= 0 {
		return fmt.Errorf("cache associativity must be > 0")
	}
	if cc.Size <= 0 || cc.Size%(cc.Associativity*cc.BlockSize) != 0 {
		return fmt.Errorf("cache size must be a multiple of associativity * block_size")
	}
	if cc.HitLatency == 0 || cc.MissLatency < cc.HitLatency {
		return fmt.Errorf("cache latencies must satisfy 0 < hit_latency <= miss_latency")
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c

	if c.ErrorWindows != nil {
		clone.ErrorWindows = append([]bus.AddrRange(nil), c.ErrorWindows...)
	}
	if c.Cache != nil {
		cc := *c.Cache
		clone.Cache = &cc
	}

	return &clone
}

// DataBus returns the slave configuration of the data bus.
func (c *Config) DataBus() bus.SlaveConfig {
	return bus.SlaveConfig{
		GrantDelay:   c.DataGrantDelay,
		ValidLatency: c.DataValidLatency,
		RandomStall:  c.RandomStall,
		Seed:         c.Seed,
		ErrorWindows: c.ErrorWindows,
		Cache:        c.Cache,
	}
}

// FetchBus returns the slave configuration of the instruction bus. Its
// stall generator is seeded apart from the data bus.
func (c *Config) FetchBus() bus.SlaveConfig {
	return bus.SlaveConfig{
		GrantDelay:   c.FetchGrantDelay,
		ValidLatency: c.FetchValidLatency,
		RandomStall:  c.RandomStall,
		Seed:         c.Seed + 1,
		ErrorWindows: c.ErrorWindows,
		Cache:        c.Cache,
	}
}
