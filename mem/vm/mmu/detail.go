package mmu

import (
	"encoding/json"

	"github.com/sarchlab/segvm/mem/vm"
)

// Task kinds and names reported to tracers.
const (
	TaskKindTranslation = "translation"
	TaskKindPageIn      = "page_in"

	TaskWhatTranslate = "translate"

	// PageInUnitPageTable and PageInUnitPage name what a page-in brought in.
	PageInUnitPageTable = "page_table"
	PageInUnitPage      = "page"
)

// TranslationDetail is attached to translation tasks. At task start only
// Address is set.
type TranslationDetail struct {
	Address  vm.VirtualAddress
	Physical uint32
	Err      error
}

// MarshalJSON writes the address as its raw value and the error as its
// message.
func (d TranslationDetail) MarshalJSON() ([]byte, error) {
	out := struct {
		Address  uint32 `json:"address"`
		Physical uint32 `json:"physical"`
		Error    string `json:"error,omitempty"`
	}{
		Address:  d.Address.Raw(),
		Physical: d.Physical,
	}

	if d.Err != nil {
		out.Error = d.Err.Error()
	}

	return json.Marshal(out)
}

// PageInDetail is attached to page-in tasks. At task start Frame is not set
// yet.
type PageInDetail struct {
	Unit    string `json:"unit"`
	Segment uint16 `json:"segment"`
	Page    uint16 `json:"page"`
	Block   uint32 `json:"block"`
	Frame   uint32 `json:"frame"`
}

// Stats summarizes the work an engine has done.
type Stats struct {
	Translations    uint64 `json:"translations"`
	Failures        uint64 `json:"failures"`
	PageTableFaults uint64 `json:"page_table_faults"`
	PageFaults      uint64 `json:"page_faults"`
	FreeFrames      int    `json:"free_frames"`
}
