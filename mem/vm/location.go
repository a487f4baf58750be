package vm

import "fmt"

// LocationKind tells where the unit referenced by a table slot lives.
type LocationKind int

// The three states a table slot can be in.
const (
	Uninitialized LocationKind = iota
	Resident
	OnDisk
)

func (k LocationKind) String() string {
	switch k {
	case Uninitialized:
		return "uninitialized"
	case Resident:
		return "resident"
	case OnDisk:
		return "on_disk"
	default:
		return fmt.Sprintf("LocationKind(%d)", int(k))
	}
}

// A Location is the decoded content of a segment-table or page-table slot.
// Index is a frame for Resident locations and a block for OnDisk ones.
type Location struct {
	Kind  LocationKind
	Index uint32
}

// ResidentAt returns the location of a unit held in the given frame.
func ResidentAt(frame uint32) Location {
	return Location{Kind: Resident, Index: frame}
}

// OnDiskAt returns the location of a unit held in the given backing-store
// block.
func OnDiskAt(block uint32) Location {
	return Location{Kind: OnDisk, Index: block}
}

// DecodeLocation converts the signed word stored in a slot. Negative words
// name a block, positive words name a frame and zero is uninitialized.
func DecodeLocation(word int32) Location {
	switch {
	case word < 0:
		return OnDiskAt(uint32(-int64(word)))
	case word > 0:
		return ResidentAt(uint32(word))
	default:
		return Location{}
	}
}

// Encode converts the location back to the signed word stored in a slot.
func (l Location) Encode() int32 {
	switch l.Kind {
	case Resident:
		return int32(l.Index)
	case OnDisk:
		return -int32(l.Index)
	default:
		return 0
	}
}

func (l Location) String() string {
	if l.Kind == Uninitialized {
		return l.Kind.String()
	}

	return fmt.Sprintf("%s(%d)", l.Kind, l.Index)
}
