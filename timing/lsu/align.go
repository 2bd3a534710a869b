package lsu

import (
	"fmt"
	"math/bits"
)

// AccessType is the width of a load or store.
type AccessType uint8

// Access widths.
const (
	Word AccessType = iota
	Halfword
	Byte
)

func (t AccessType) String() string {
	switch t {
	case Word:
		return "word"
	case Halfword:
		return "halfword"
	case Byte:
		return "byte"
	}
	return fmt.Sprintf("AccessType(%d)", uint8(t))
}

// MarshalText encodes the type by name.
func (t AccessType) MarshalText() ([]byte, error) {
	if t > Byte {
		return nil, fmt.Errorf("invalid access type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText and the short
// forms "w", "h" and "b".
func (t *AccessType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "word", "w":
		*t = Word
	case "halfword", "half", "h":
		*t = Halfword
	case "byte", "b":
		*t = Byte
	default:
		return fmt.Errorf("unknown access type %q", text)
	}
	return nil
}

// Size returns the width in bytes.
func (t AccessType) Size() uint32 {
	switch t {
	case Word:
		return 4
	case Halfword:
		return 2
	}
	return 1
}

// IsMisaligned reports whether an access of type t at addr crosses a word
// boundary and therefore needs two bus transactions.
func IsMisaligned(t AccessType, addr uint32) bool {
	switch t {
	case Word:
		return addr&3 != 0
	case Halfword:
		return addr&3 == 3
	}
	return false
}

// first-half (or only) byte enables, indexed by type then addr[1:0].
var byteEnableFirst = [3][4]uint8{
	Word:     {0b1111, 0b1110, 0b1100, 0b1000},
	Halfword: {0b0011, 0b0110, 0b1100, 0b1000},
	Byte:     {0b0001, 0b0010, 0b0100, 0b1000},
}

// second-half byte enables of a split access.
var byteEnableSecond = [3][4]uint8{
	Word:     {0b0000, 0b0001, 0b0011, 0b0111},
	Halfword: {0b0000, 0b0000, 0b0000, 0b0001},
}

// ByteEnable returns the bus byte lanes touched by an access of type t at
// addr. second selects the upper half of a split access.
func ByteEnable(t AccessType, addr uint32, second bool) uint8 {
	// anything wider than the table is a byte access
	t = min(t, Byte)

	if second {
		return byteEnableSecond[t][addr&3]
	}
	return byteEnableFirst[t][addr&3]
}

// RotateWriteData moves the operand, whose lowest byte sits in byte lane
// regOffset of the source register, onto the bus lanes selected by
// addr[1:0]. The rotation amount is (addr[1:0] - regOffset) mod 4 bytes.
func RotateWriteData(data uint32, addr uint32, regOffset uint8) uint32 {
	shift := (addr - uint32(regOffset)) & 3
	return bits.RotateLeft32(data, int(8*shift))
}

// Realign extracts a load result from the bus. cur is the beat that was just
// validated. For a split access prev is the beat of the first half and cur
// the beat of the second half; offset is addr[1:0] captured at grant.
func Realign(t AccessType, offset uint8, signExtend bool, cur, prev uint32, split bool) uint32 {
	window := uint64(cur)
	if split {
		window = uint64(cur)<<32 | uint64(prev)
	}

	value := uint32(window >> (8 * uint(offset&3)))

	switch t {
	case Halfword:
		if signExtend {
			return uint32(int32(int16(value)))
		}
		return value & 0xffff
	case Byte:
		if signExtend {
			return uint32(int32(int8(value)))
		}
		return value & 0xff
	}

	return value
}
