package vm

import (
	"fmt"
	"strings"
)

// A SegmentTableEntry declares a segment: its size and where its page table
// lives.
type SegmentTableEntry struct {
	Segment   SegmentOffset
	Size      SegmentSize
	PageTable FrameOffset
}

// NewSegmentTableEntry validates a segment-table triple.
func NewSegmentTableEntry(
	s uint16,
	z uint32,
	f int16,
) (SegmentTableEntry, error) {
	segment, err := NewSegmentOffset(int64(s))
	if err != nil {
		return SegmentTableEntry{}, err
	}

	size, err := NewSegmentSize(int64(z))
	if err != nil {
		return SegmentTableEntry{}, err
	}

	pageTable, err := NewFrameOffset(int64(f))
	if err != nil {
		return SegmentTableEntry{}, err
	}

	return SegmentTableEntry{
		Segment:   segment,
		Size:      size,
		PageTable: pageTable,
	}, nil
}

// ParseSegmentTableEntry validates a textual segment-table triple.
func ParseSegmentTableEntry(s, z, f string) (SegmentTableEntry, error) {
	segment, err := ParseSegmentOffset(s)
	if err != nil {
		return SegmentTableEntry{}, err
	}

	size, err := ParseSegmentSize(z)
	if err != nil {
		return SegmentTableEntry{}, err
	}

	pageTable, err := ParseFrameOffset(f)
	if err != nil {
		return SegmentTableEntry{}, err
	}

	return SegmentTableEntry{
		Segment:   segment,
		Size:      size,
		PageTable: pageTable,
	}, nil
}

// A PageTableEntry declares where a page of a segment lives.
type PageTableEntry struct {
	Segment SegmentOffset
	Page    PageOffset
	Frame   FrameOffset
}

// NewPageTableEntry validates a page-table triple.
func NewPageTableEntry(s, p uint16, f int16) (PageTableEntry, error) {
	segment, err := NewSegmentOffset(int64(s))
	if err != nil {
		return PageTableEntry{}, err
	}

	page, err := NewPageOffset(int64(p))
	if err != nil {
		return PageTableEntry{}, err
	}

	frame, err := NewFrameOffset(int64(f))
	if err != nil {
		return PageTableEntry{}, err
	}

	return PageTableEntry{Segment: segment, Page: page, Frame: frame}, nil
}

// ParsePageTableEntry validates a textual page-table triple.
func ParsePageTableEntry(s, p, f string) (PageTableEntry, error) {
	segment, err := ParseSegmentOffset(s)
	if err != nil {
		return PageTableEntry{}, err
	}

	page, err := ParsePageOffset(p)
	if err != nil {
		return PageTableEntry{}, err
	}

	frame, err := ParseFrameOffset(f)
	if err != nil {
		return PageTableEntry{}, err
	}

	return PageTableEntry{Segment: segment, Page: page, Frame: frame}, nil
}

// ParseSegmentTableLine parses a whitespace-separated list of segment-table
// triples.
func ParseSegmentTableLine(line string) ([]SegmentTableEntry, error) {
	triples, err := splitTriples(line)
	if err != nil {
		return nil, err
	}

	entries := make([]SegmentTableEntry, 0, len(triples))
	for _, t := range triples {
		e, err := ParseSegmentTableEntry(t[0], t[1], t[2])
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// ParsePageTableLine parses a whitespace-separated list of page-table triples.
func ParsePageTableLine(line string) ([]PageTableEntry, error) {
	triples, err := splitTriples(line)
	if err != nil {
		return nil, err
	}

	entries := make([]PageTableEntry, 0, len(triples))
	for _, t := range triples {
		e, err := ParsePageTableEntry(t[0], t[1], t[2])
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func splitTriples(line string) ([][3]string, error) {
	fields := strings.Fields(line)
	if len(fields)%3 != 0 {
		return nil, fmt.Errorf("%w: %d trailing field(s)",
			ErrIncompleteTriple, len(fields)%3)
	}

	triples := make([][3]string, 0, len(fields)/3)
	for i := 0; i < len(fields); i += 3 {
		triples = append(triples, [3]string{fields[i], fields[i+1], fields[i+2]})
	}

	return triples, nil
}
