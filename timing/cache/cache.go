// Package cache provides a set-associative latency model for the bus slaves
// using Akita cache components.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles between grant and valid on a hit.
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles between grant and valid on a miss.
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultConfig returns a small L1-like configuration suitable for an
// embedded core: 4KB, 2-way, 16B lines.
func DefaultConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     16,
		HitLatency:    1,
		MissLatency:   8,
	}
}

// NumSets returns the number of sets implied by the geometry.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the full bus word read (for read operations).
	Data uint32
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads     uint64
	Writes    uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches size bytes starting at addr.
	Read(addr uint64, size int) []byte
	// WriteWord stores the enabled byte lanes of a word-aligned bus word.
	WriteWord(addr uint64, be uint8, data uint32)
}

// Cache is a write-through, write-allocate cache. Since writes are
// propagated immediately, the backing store is always up to date and several
// caches may share it.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats   Statistics
	backing BackingStore
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.NumSets()
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

// ReadWord reads the aligned bus word containing addr.
func (c *Cache) ReadWord(addr uint64) AccessResult {
	c.stats.Reads++
	addr &^= 3

	block, result := c.lookupOrFill(addr)
	offset := addr % uint64(c.config.BlockSize)
	result.Data = loadWord(c.dataStore[c.blockIndex(block)], offset)

	return result
}

// WriteWord writes the enabled lanes of the aligned bus word containing addr.
func (c *Cache) WriteWord(addr uint64, be uint8, data uint32) AccessResult {
	c.stats.Writes++
	addr &^= 3

	block, result := c.lookupOrFill(addr)
	offset := addr % uint64(c.config.BlockSize)
	storeWord(c.dataStore[c.blockIndex(block)], offset, be, data)

	if c.backing != nil {
		c.backing.WriteWord(addr, be, data)
	}

	return result
}

func (c *Cache) lookupOrFill(addr uint64) (*akitacache.Block, AccessResult) {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return block, AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(blockAddr)
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
	}

	victimData := c.dataStore[c.blockIndex(victim)]
	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		clear(victimData)
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return victim, result
}

// Invalidate marks the line holding addr as invalid.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
	}
}

// Reset invalidates all cache lines.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func loadWord(data []byte, offset uint64) uint32 {
	var word uint32
	for i := uint64(0); i < 4; i++ {
		word |= uint32(data[offset+i]) << (8 * i)
	}
	return word
}

func storeWord(data []byte, offset uint64, be uint8, value uint32) {
	for i := uint64(0); i < 4; i++ {
		if be&(1<<i) != 0 {
			data[offset+i] = byte(value >> (8 * i))
		}
	}
}
