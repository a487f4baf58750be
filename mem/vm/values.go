package vm

import (
	"fmt"
	"strconv"
)

// SegmentOffset is a segment number.
type SegmentOffset uint16

// PageOffset is a page number within a segment.
type PageOffset uint16

// SegmentSize is the number of words a segment spans.
type SegmentSize uint32

// FrameOffset is an encoded location: a resident frame when positive, a
// backing-store block when negative, and uninitialized when zero.
type FrameOffset int16

// NewSegmentOffset validates an integer segment number.
func NewSegmentOffset(v int64) (SegmentOffset, error) {
	if v < 0 || v > MaxSegmentOffset {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSegment, v)
	}

	return SegmentOffset(v), nil
}

// ParseSegmentOffset parses a decimal segment number.
func ParseSegmentOffset(s string) (SegmentOffset, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSegment, s)
	}

	return NewSegmentOffset(v)
}

// NewPageOffset validates an integer page number.
func NewPageOffset(v int64) (PageOffset, error) {
	if v < 0 || v > MaxPageOffset {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPage, v)
	}

	return PageOffset(v), nil
}

// ParsePageOffset parses a decimal page number.
func ParsePageOffset(s string) (PageOffset, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, s)
	}

	return NewPageOffset(v)
}

// NewSegmentSize validates an integer segment size.
func NewSegmentSize(v int64) (SegmentSize, error) {
	if v < 0 || v > MaxSegmentSize {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSegmentSize, v)
	}

	return SegmentSize(v), nil
}

// ParseSegmentSize parses a decimal segment size.
func ParseSegmentSize(s string) (SegmentSize, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSegmentSize, s)
	}

	return NewSegmentSize(v)
}

// NewFrameOffset validates an integer location. Zero passes; its meaning is
// left to the engine. Positive values below MinPositiveFrameOffset would name
// a segment-table frame and are rejected.
func NewFrameOffset(v int64) (FrameOffset, error) {
	if v < -MaxFrameOffset || v > MaxFrameOffset ||
		(v > 0 && v < MinPositiveFrameOffset) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFrame, v)
	}

	return FrameOffset(v), nil
}

// ParseFrameOffset parses a decimal location.
func ParseFrameOffset(s string) (FrameOffset, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrame, s)
	}

	return NewFrameOffset(v)
}

// Location decodes the frame offset into its tagged form.
func (f FrameOffset) Location() Location {
	return DecodeLocation(int32(f))
}
