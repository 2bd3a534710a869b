package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coresim/timing/bus"
)

var _ = Describe("Checker", func() {
	var checker *bus.Checker

	req := bus.Request{Req: true, Addr: 0x40, BE: 0b1111}

	BeforeEach(func() {
		checker = bus.NewChecker("DataBus")
	})

	It("should accept a well-formed transaction", func() {
		Expect(checker.Check(req, bus.Response{})).To(Succeed())
		Expect(checker.Check(req, bus.Response{Gnt: true})).To(Succeed())
		Expect(checker.Outstanding()).To(BeTrue())
		Expect(checker.Check(bus.Request{}, bus.Response{})).To(Succeed())
		Expect(checker.Check(bus.Request{}, bus.Response{RValid: true})).To(Succeed())
		Expect(checker.Outstanding()).To(BeFalse())
	})

	It("should accept a request chained onto a valid", func() {
		Expect(checker.Check(req, bus.Response{Gnt: true})).To(Succeed())
		Expect(checker.Check(req, bus.Response{RValid: true, Gnt: true})).To(Succeed())
		Expect(checker.Outstanding()).To(BeTrue())
	})

	DescribeTable("violations",
		func(setup []bus.Request, setupResp []bus.Response,
			r bus.Request, resp bus.Response, expected error,
		) {
			for i := range setup {
				Expect(checker.Check(setup[i], setupResp[i])).To(Succeed())
			}

			err := checker.Check(r, resp)
			Expect(err).To(MatchError(expected))
			Expect(err.Error()).To(ContainSubstring("DataBus"))
		},
		Entry("grant without request", nil, nil,
			bus.Request{}, bus.Response{Gnt: true}, bus.ErrGrantWithoutRequest),
		Entry("error without grant", nil, nil,
			req, bus.Response{Err: true}, bus.ErrErrorWithoutGrant),
		Entry("valid while idle", nil, nil,
			bus.Request{}, bus.Response{RValid: true}, bus.ErrValidWithoutOutstanding),
		Entry("second request before valid",
			[]bus.Request{req}, []bus.Response{{Gnt: true}},
			req, bus.Response{}, bus.ErrRequestWhileOutstanding),
		Entry("unaligned address", nil, nil,
			bus.Request{Req: true, Addr: 0x41}, bus.Response{}, bus.ErrUnalignedAddress),
	)

	It("should forget state on reset", func() {
		Expect(checker.Check(req, bus.Response{Gnt: true})).To(Succeed())
		checker.Reset()
		Expect(checker.Outstanding()).To(BeFalse())
	})
})

var _ = Describe("Settle", func() {
	It("should feed the slave's valid to the probe before granting", func() {
		slave := bus.NewSlave(nil, bus.SlaveConfig{ValidLatency: 1, ErrorWindows: []bus.AddrRange{{Base: 0, Size: 0x100}}})
		first := bus.Request{Req: true, Addr: 0x10}
		resp := slave.Sample(first)
		slave.Tick(first, resp)

		var seen bus.Response
		req, resp := bus.Settle(slave, func(r bus.Response) bus.Request {
			seen = r
			if r.RValid {
				return bus.Request{Req: true, Addr: 0x20}
			}
			return bus.Request{}
		})

		Expect(seen.RValid).To(BeTrue())
		Expect(seen.Gnt).To(BeFalse())
		Expect(req.Req).To(BeTrue())
		Expect(resp.Gnt).To(BeTrue())
	})
})

var _ = Describe("AddrRange", func() {
	It("should be half open", func() {
		r := bus.AddrRange{Base: 0x100, Size: 0x10}
		Expect(r.Contains(0x100)).To(BeTrue())
		Expect(r.Contains(0x10f)).To(BeTrue())
		Expect(r.Contains(0x110)).To(BeFalse())
		Expect(r.Contains(0xff)).To(BeFalse())
	})

	It("should not overflow at the top of the address space", func() {
		r := bus.AddrRange{Base: 0xfffffff0, Size: 0x10}
		Expect(r.Contains(0xffffffff)).To(BeTrue())
	})
})
