// Package emu provides the functional backing store behind the simulated
// buses.
package emu

import "encoding/binary"

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

// Memory is a sparse, little-endian, byte-addressable memory. Pages are
// allocated on first write; unwritten locations read as zero.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint64][]byte),
	}
}

func (m *Memory) page(addr uint64, alloc bool) []byte {
	idx := addr >> pageShift
	p, ok := m.pages[idx]
	if !ok && alloc {
		p = make([]byte, pageSize)
		m.pages[idx] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	m.page(addr, true)[addr&pageMask] = value
}

// ReadBytes copies size bytes starting at addr.
func (m *Memory) ReadBytes(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.Read8(addr + uint64(i))
	}
	return data
}

// WriteBytes stores data starting at addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint64) uint16 {
	return binary.LittleEndian.Uint16(m.ReadBytes(addr, 2))
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint64, value uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint64) uint32 {
	return binary.LittleEndian.Uint32(m.ReadBytes(addr, 4))
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint64, value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	m.WriteBytes(addr, buf[:])
}

// WriteMasked writes the bytes of a 32-bit bus word whose bit is set in the
// 4-bit byte enable. addr must be word aligned.
func (m *Memory) WriteMasked(addr uint64, be uint8, value uint32) {
	for lane := uint64(0); lane < 4; lane++ {
		if be&(1<<lane) != 0 {
			m.Write8(addr+lane, uint8(value>>(8*lane)))
		}
	}
}

// Reset drops all contents.
func (m *Memory) Reset() {
	m.pages = make(map[uint64][]byte)
}
