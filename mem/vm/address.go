package vm

import (
	"fmt"
	"strconv"
)

// A VirtualAddress is a raw address split into its fields.
type VirtualAddress struct {
	// S is the segment number.
	S uint16
	// P is the page number within the segment.
	P uint16
	// W is the word offset within the page.
	W uint16
	// PW is the offset within the segment, used for the segment bound check.
	PW uint32
}

// DecodeVirtualAddress splits a raw address. Addresses with bits set outside
// the address space are rejected rather than truncated.
func DecodeVirtualAddress(raw uint32) (VirtualAddress, error) {
	if raw&AddressMask != raw {
		return VirtualAddress{}, fmt.Errorf(
			"%w: %d", ErrVirtualAddressLeadingBits, raw)
	}

	return VirtualAddress{
		S:  uint16(raw >> (PageBits + WordBits)),
		P:  uint16((raw >> WordBits) & MaxPageOffset),
		W:  uint16(raw & (PageSize - 1)),
		PW: raw & (1<<(PageBits+WordBits) - 1),
	}, nil
}

// ParseVirtualAddress parses a decimal raw address and decodes it.
func ParseVirtualAddress(s string) (VirtualAddress, error) {
	raw, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return VirtualAddress{}, fmt.Errorf(
			"%w: %q", ErrInvalidVirtualAddress, s)
	}

	return DecodeVirtualAddress(uint32(raw))
}

// Raw reassembles the raw address.
func (va VirtualAddress) Raw() uint32 {
	return uint32(va.S)<<(PageBits+WordBits) |
		uint32(va.P)<<WordBits |
		uint32(va.W)
}

func (va VirtualAddress) String() string {
	return fmt.Sprintf("s=%d p=%d w=%d pw=%d", va.S, va.P, va.W, va.PW)
}
