package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("VirtualAddress", func() {
	It("should split the fields", func() {
		va, err := DecodeVirtualAddress(2097674)

		Expect(err).NotTo(HaveOccurred())
		Expect(va).To(Equal(VirtualAddress{S: 8, P: 1, W: 10, PW: 522}))
	})

	It("should reassemble every address in the address space", func() {
		for raw := uint32(0); raw <= AddressMask; raw += 4093 {
			va, err := DecodeVirtualAddress(raw)

			Expect(err).NotTo(HaveOccurred())
			Expect(va.Raw()).To(Equal(raw))
			Expect(va.PW).To(Equal(uint32(va.P)<<WordBits | uint32(va.W)))
		}

		va, err := DecodeVirtualAddress(AddressMask)
		Expect(err).NotTo(HaveOccurred())
		Expect(va).To(Equal(VirtualAddress{S: 511, P: 511, W: 511, PW: 262143}))
	})

	It("should reject addresses with leading bits", func() {
		for _, raw := range []uint32{1 << 27, 1<<27 + 5, 1 << 31, ^uint32(0)} {
			_, err := DecodeVirtualAddress(raw)

			Expect(err).To(MatchError(ErrVirtualAddressLeadingBits))
		}
	})

	It("should parse decimal text", func() {
		va, err := ParseVirtualAddress("2359306")

		Expect(err).NotTo(HaveOccurred())
		Expect(va.String()).To(Equal("s=9 p=0 w=10 pw=10"))
	})

	It("should reject malformed text", func() {
		_, err := ParseVirtualAddress("-1")
		Expect(err).To(MatchError(ErrInvalidVirtualAddress))

		_, err = ParseVirtualAddress("4294967296")
		Expect(err).To(MatchError(ErrInvalidVirtualAddress))

		_, err = ParseVirtualAddress("134217728")
		Expect(err).To(MatchError(ErrVirtualAddressLeadingBits))
	})
})
