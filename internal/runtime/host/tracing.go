package host

import (
	"encoding/hex"

	"github.com/rs/zerolog"

	"github.com/ewasm/scout/internal/runtime/bignum"
	"github.com/ewasm/scout/internal/runtime/constants"
	"github.com/ewasm/scout/types"
)

func (e *Environment) traceEvent() *zerolog.Event {
	if e.printDebug {
		return e.logger.Info()
	}
	return e.logger.Debug()
}

// Log traces an opcode and the bignum stack slots below top.
// It never changes what the guest observes apart from a failing read.
func (e *Environment) Log(opcode, top uint32) error {
	if !e.addressing.StackSet() {
		return &types.ConfigurationError{Setting: "setBignumStack"}
	}
	mem, err := e.memory()
	if err != nil {
		return err
	}
	// Slots are contiguous, so the last one bounds top by the memory size.
	if top > 0 {
		last, err := e.addressing.Slot(top - 1)
		if err != nil {
			return err
		}
		if err := mem.Check(last, constants.WordSize); err != nil {
			return err
		}
	}
	slots := make([]string, 0, top)
	for i := uint32(0); i < top; i++ {
		off, err := e.addressing.Slot(i)
		if err != nil {
			return err
		}
		w, err := mem.ReadWord(off)
		if err != nil {
			return err
		}
		slots = append(slots, hex.EncodeToString(w[:]))
	}
	e.traceEvent().
		Str("op", bignum.OpcodeName(opcode)).
		Uint32("opcode", opcode).
		Uint32("top", top).
		Strs("stack", slots).
		Msg("log")
	return nil
}

// PrintMem traces windows 16-byte windows starting at the memory base.
func (e *Environment) PrintMem(windows uint32) error {
	if !e.addressing.MemorySet() {
		return &types.ConfigurationError{Setting: "setMemoryPtr"}
	}
	mem, err := e.memory()
	if err != nil {
		return err
	}
	base := uint64(e.addressing.MemoryBase)
	for i := uint64(0); i < uint64(windows); i++ {
		off := base + i*constants.MemoryWindowSize
		data, err := mem.Read(off, constants.MemoryWindowSize)
		if err != nil {
			return err
		}
		e.traceEvent().Uint64("offset", off).Hex("data", data).Msg("printMem")
	}
	return nil
}
