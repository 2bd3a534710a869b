package cache

import (
	"github.com/sarchlab/coresim/emu"
)

// MemoryBacking wraps emu.Memory as a BackingStore.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches data from the backing memory.
func (m *MemoryBacking) Read(addr uint64, size int) []byte {
	return m.memory.ReadBytes(addr, size)
}

// WriteWord stores the enabled lanes into the backing memory.
func (m *MemoryBacking) WriteWord(addr uint64, be uint8, data uint32) {
	m.memory.WriteMasked(addr, be, data)
}
