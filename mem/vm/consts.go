// Package vm defines the virtual-memory vocabulary of a segmented, paged
// address space: geometry constants, validated input values, table entries,
// the residency encoding of table slots, and the virtual address layout.
package vm

// Field widths of a virtual address.
const (
	SegmentBits = 9
	PageBits    = 9
	WordBits    = 9

	AddressBits = SegmentBits + PageBits + WordBits
	AddressMask = 1<<AddressBits - 1
)

// Memory geometry.
const (
	// PageSize is the number of words in a page, a frame and a backing-store
	// block.
	PageSize = 1 << WordBits

	// PageCount is the number of frames in physical memory and the number of
	// blocks on the backing store.
	PageCount = 1024

	// SegmentWordCount is the number of words a segment-table entry occupies.
	// The segment table of 2^SegmentBits entries fills exactly this many
	// frames at the start of physical memory.
	SegmentWordCount = 2

	// SegmentSizeOffset and SegmentPageTableOffset locate the two words of
	// a segment-table entry.
	SegmentSizeOffset      = 0
	SegmentPageTableOffset = 1
)

// Value bounds.
const (
	MaxSegmentOffset = 1<<SegmentBits - 1
	MaxPageOffset    = 1<<PageBits - 1
	MaxSegmentSize   = PageSize*PageCount - (1<<SegmentBits)*SegmentWordCount
	MaxFrameOffset   = PageCount - 1

	// MinPositiveFrameOffset is the lowest frame that can hold a page. Lower
	// positive frames belong to the segment table.
	MinPositiveFrameOffset = (1 << SegmentBits) * SegmentWordCount / PageSize
)
