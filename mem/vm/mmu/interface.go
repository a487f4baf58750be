package mmu

import "github.com/sarchlab/segvm/mem/vm"

// A Translator turns virtual addresses into physical word addresses.
type Translator interface {
	Translate(va vm.VirtualAddress) (uint32, error)
}
