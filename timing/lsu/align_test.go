package lsu_test

import (
	"encoding/json"
	"math/bits"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coresim/timing/lsu"
)

var _ = Describe("Byte lanes", func() {
	DescribeTable("misalignment detection",
		func(t lsu.AccessType, addr uint32, expected bool) {
			Expect(lsu.IsMisaligned(t, addr)).To(Equal(expected))
		},
		Entry("word +0", lsu.Word, uint32(0x1000), false),
		Entry("word +1", lsu.Word, uint32(0x1001), true),
		Entry("word +2", lsu.Word, uint32(0x1002), true),
		Entry("word +3", lsu.Word, uint32(0x1003), true),
		Entry("half +0", lsu.Halfword, uint32(0x1000), false),
		Entry("half +1", lsu.Halfword, uint32(0x1001), false),
		Entry("half +2", lsu.Halfword, uint32(0x1002), false),
		Entry("half +3", lsu.Halfword, uint32(0x1003), true),
		Entry("byte +3", lsu.Byte, uint32(0x1003), false),
	)

	DescribeTable("byte enables",
		func(t lsu.AccessType, offset uint32, first, second uint8) {
			Expect(lsu.ByteEnable(t, 0x2000+offset, false)).To(Equal(first))
			if lsu.IsMisaligned(t, 0x2000+offset) {
				Expect(lsu.ByteEnable(t, 0x2000+offset, true)).To(Equal(second))
			}
		},
		Entry("word +0", lsu.Word, uint32(0), uint8(0b1111), uint8(0)),
		Entry("word +1", lsu.Word, uint32(1), uint8(0b1110), uint8(0b0001)),
		Entry("word +2", lsu.Word, uint32(2), uint8(0b1100), uint8(0b0011)),
		Entry("word +3", lsu.Word, uint32(3), uint8(0b1000), uint8(0b0111)),
		Entry("half +0", lsu.Halfword, uint32(0), uint8(0b0011), uint8(0)),
		Entry("half +1", lsu.Halfword, uint32(1), uint8(0b0110), uint8(0)),
		Entry("half +2", lsu.Halfword, uint32(2), uint8(0b1100), uint8(0)),
		Entry("half +3", lsu.Halfword, uint32(3), uint8(0b1000), uint8(0b0001)),
		Entry("byte +0", lsu.Byte, uint32(0), uint8(0b0001), uint8(0)),
		Entry("byte +1", lsu.Byte, uint32(1), uint8(0b0010), uint8(0)),
		Entry("byte +2", lsu.Byte, uint32(2), uint8(0b0100), uint8(0)),
		Entry("byte +3", lsu.Byte, uint32(3), uint8(0b1000), uint8(0)),
	)

	It("should cover every accessed byte exactly once", func() {
		for _, t := range []lsu.AccessType{lsu.Word, lsu.Halfword, lsu.Byte} {
			for offset := uint32(0); offset < 4; offset++ {
				addr := 0x3000 + offset
				first := lsu.ByteEnable(t, addr, false)

				var second uint8
				if lsu.IsMisaligned(t, addr) {
					second = lsu.ByteEnable(t, addr, true)
					Expect(second).NotTo(BeZero())
				}

				// Lanes of the second beat continue above lane 3.
				lanes := uint16(second)<<4 | uint16(first)
				want := uint16(1<<t.Size()-1) << offset

				Expect(lanes).To(Equal(want), "%v at +%d", t, offset)
				Expect(bits.OnesCount8(first) + bits.OnesCount8(second)).
					To(Equal(int(t.Size())))
			}
		}
	})

	It("should treat wider type codes as bytes", func() {
		Expect(lsu.ByteEnable(lsu.AccessType(3), 0x1002, false)).To(Equal(uint8(0b0100)))
	})
})

var _ = Describe("Write data rotation", func() {
	DescribeTable("rotation by address minus register offset",
		func(addr uint32, regOffset uint8, expected uint32) {
			Expect(lsu.RotateWriteData(0x44332211, addr, regOffset)).To(Equal(expected))
		},
		Entry("0 - 0", uint32(0x100), uint8(0), uint32(0x44332211)),
		Entry("1 - 0", uint32(0x101), uint8(0), uint32(0x33221144)),
		Entry("2 - 0", uint32(0x102), uint8(0), uint32(0x22114433)),
		Entry("3 - 0", uint32(0x103), uint8(0), uint32(0x11443322)),
		Entry("0 - 1", uint32(0x100), uint8(1), uint32(0x11443322)),
		Entry("2 - 2", uint32(0x102), uint8(2), uint32(0x44332211)),
		Entry("1 - 3", uint32(0x101), uint8(3), uint32(0x22114433)),
	)

	It("should place the operand byte on the addressed lane", func() {
		for regOffset := uint8(0); regOffset < 4; regOffset++ {
			for addr := uint32(0); addr < 4; addr++ {
				src := uint32(0xA5) << (8 * regOffset)
				rotated := lsu.RotateWriteData(src, addr, regOffset)
				Expect(rotated).To(Equal(uint32(0xA5) << (8 * addr)))
			}
		}
	})
})

var _ = Describe("Read realignment", func() {
	DescribeTable("single beat",
		func(t lsu.AccessType, offset uint8, signed bool, expected uint32) {
			Expect(lsu.Realign(t, offset, signed, 0x8899AABB, 0, false)).To(Equal(expected))
		},
		Entry("word", lsu.Word, uint8(0), false, uint32(0x8899AABB)),
		Entry("half +0 unsigned", lsu.Halfword, uint8(0), false, uint32(0x0000AABB)),
		Entry("half +0 signed", lsu.Halfword, uint8(0), true, uint32(0xFFFFAABB)),
		Entry("half +1 signed", lsu.Halfword, uint8(1), true, uint32(0xFFFF99AA)),
		Entry("half +2 unsigned", lsu.Halfword, uint8(2), false, uint32(0x00008899)),
		Entry("byte +0 signed", lsu.Byte, uint8(0), true, uint32(0xFFFFFFBB)),
		Entry("byte +1 unsigned", lsu.Byte, uint8(1), false, uint32(0x000000AA)),
		Entry("byte +3 signed", lsu.Byte, uint8(3), true, uint32(0xFFFFFF88)),
	)

	DescribeTable("split access",
		func(t lsu.AccessType, offset uint8, signed bool, expected uint32) {
			// prev is the word below the boundary, cur the word above.
			Expect(lsu.Realign(t, offset, signed, 0x44332211, 0xDDCCBBAA, true)).To(Equal(expected))
		},
		Entry("word +1", lsu.Word, uint8(1), false, uint32(0x11DDCCBB)),
		Entry("word +2", lsu.Word, uint8(2), false, uint32(0x2211DDCC)),
		Entry("word +3", lsu.Word, uint8(3), false, uint32(0x332211DD)),
		Entry("half +3 unsigned", lsu.Halfword, uint8(3), false, uint32(0x000011DD)),
		Entry("half +3 signed", lsu.Halfword, uint8(3), true, uint32(0x000011DD)),
	)

	It("should replicate the sign bit or zero fill", func() {
		for v := 0; v < 256; v++ {
			for offset := uint8(0); offset < 4; offset++ {
				word := uint32(v) << (8 * offset)
				signed := lsu.Realign(lsu.Byte, offset, true, word, 0, false)
				unsigned := lsu.Realign(lsu.Byte, offset, false, word, 0, false)

				Expect(unsigned).To(Equal(uint32(v)))
				Expect(signed & 0xFF).To(Equal(uint32(v)))
				if v&0x80 != 0 {
					Expect(signed >> 8).To(Equal(uint32(0xFFFFFF)))
				} else {
					Expect(signed >> 8).To(BeZero())
				}
			}
		}

		for _, v := range []uint32{0x0000, 0x7FFF, 0x8000, 0xFFFF, 0x1234, 0xBEEF} {
			signed := lsu.Realign(lsu.Halfword, 2, true, v<<16, 0, false)
			unsigned := lsu.Realign(lsu.Halfword, 2, false, v<<16, 0, false)

			Expect(unsigned).To(Equal(v))
			Expect(signed & 0xFFFF).To(Equal(v))
			Expect(signed >> 16).To(Equal(map[bool]uint32{true: 0xFFFF, false: 0}[v&0x8000 != 0]))
		}
	})
})

var _ = Describe("Access encoding", func() {
	It("should decode an access from JSON", func() {
		var a lsu.Access
		err := json.Unmarshal([]byte(
			`{"write": true, "type": "half", "addr": 4099, "wdata": 48879}`), &a)

		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(lsu.Access{
			Write: true, Type: lsu.Halfword, Addr: 0x1003, WData: 0xBEEF,
		}))
	})

	It("should encode access types by name", func() {
		data, err := json.Marshal(lsu.Access{Type: lsu.Byte, Addr: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"type":"byte","addr":1}`))
	})

	It("should reject unknown types", func() {
		var a lsu.Access
		err := json.Unmarshal([]byte(`{"type": "dword"}`), &a)
		Expect(err).To(MatchError(ContainSubstring("unknown access type")))
	})
})
