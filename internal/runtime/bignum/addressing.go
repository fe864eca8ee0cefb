// Package bignum implements the 256-bit arithmetic and control-flow helpers a
// guest drives through its bignum stack in linear memory.
package bignum

import (
	"github.com/ewasm/scout/internal/runtime/constants"
	"github.com/ewasm/scout/internal/runtime/memory"
	"github.com/ewasm/scout/types"
)

// Addressing holds the base offsets a guest configured with setBignumStack
// and setMemoryPtr. The zero value has neither set.
type Addressing struct {
	StackBase  uint32
	MemoryBase uint32
	stackSet   bool
	memorySet  bool
}

// SetStack records the offset of stack slot 0.
func (a *Addressing) SetStack(base uint32) {
	a.StackBase = base
	a.stackSet = true
}

// SetMemory records the base offset used by printMem.
func (a *Addressing) SetMemory(base uint32) {
	a.MemoryBase = base
	a.memorySet = true
}

// StackSet reports whether SetStack has been called.
func (a *Addressing) StackSet() bool { return a.stackSet }

// MemorySet reports whether SetMemory has been called.
func (a *Addressing) MemorySet() bool { return a.memorySet }

// Slot returns the byte offset of stack slot i.
func (a *Addressing) Slot(i uint32) (uint64, error) {
	if !a.stackSet {
		return 0, &types.ConfigurationError{Setting: "setBignumStack"}
	}
	return uint64(a.StackBase) + uint64(constants.WordSize)*uint64(i), nil
}

// operands returns the offsets of the top two slots for a stack-relative op.
func (a *Addressing) operands(op string, top uint32) (uint64, uint64, error) {
	if !a.stackSet {
		return 0, 0, &types.ConfigurationError{Setting: "setBignumStack"}
	}
	if top < 2 {
		return 0, 0, &types.StackUnderflowError{Op: op, Top: top, Need: 2}
	}
	first, _ := a.Slot(top - 1)
	second, _ := a.Slot(top - 2)
	return first, second, nil
}

// readPair loads the slots at the two offsets.
func readPair(mem *memory.Manager, first, second uint64) (memory.Word, memory.Word, error) {
	a, err := mem.ReadWord(first)
	if err != nil {
		return memory.Word{}, memory.Word{}, err
	}
	b, err := mem.ReadWord(second)
	if err != nil {
		return memory.Word{}, memory.Word{}, err
	}
	return a, b, nil
}
