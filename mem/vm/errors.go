package vm

import "errors"

// Input validation errors.
var (
	ErrInvalidSegment        = errors.New("invalid segment")
	ErrInvalidPage           = errors.New("invalid page")
	ErrInvalidFrame          = errors.New("invalid frame")
	ErrInvalidSegmentSize    = errors.New("invalid segment size")
	ErrInvalidVirtualAddress = errors.New("invalid virtual address")
	ErrIncompleteTriple      = errors.New("incomplete table entry triple")
)

// Translation errors.
var (
	ErrVirtualAddressLeadingBits = errors.New(
		"virtual address uses bits outside the address space")
	ErrVirtualAddressOutOfBounds = errors.New(
		"virtual address beyond segment size")
	ErrMemoryNotInitialized = errors.New("memory not initialized")
	ErrMemoryFull           = errors.New("memory full")
)
