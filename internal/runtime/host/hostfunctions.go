package host

import (
	"github.com/ewasm/scout/internal/runtime/bignum"
	"github.com/ewasm/scout/internal/runtime/constants"
	"github.com/ewasm/scout/types"
)

// UseTicks charges n ticks against the budget.
func (e *Environment) UseTicks(n uint32) error {
	return e.Meter.Consume(types.Ticks(n))
}

// LoadPreStateRoot writes the pre-state root to ptr.
func (e *Environment) LoadPreStateRoot(ptr uint32) error {
	mem, err := e.memory()
	if err != nil {
		return err
	}
	e.logger.Debug().Uint32("ptr", ptr).Stringer("root", e.preState).Msg("loadPreStateRoot")
	return mem.Write(uint64(ptr), e.preState.Bytes())
}

// SavePostStateRoot reads the post-state root from ptr. Later calls overwrite earlier ones.
func (e *Environment) SavePostStateRoot(ptr uint32) error {
	mem, err := e.memory()
	if err != nil {
		return err
	}
	if err := mem.ReadInto(uint64(ptr), e.postState[:]); err != nil {
		return err
	}
	e.logger.Debug().Uint32("ptr", ptr).Stringer("root", e.postState).Msg("savePostStateRoot")
	return nil
}

// BlockDataSize returns the payload length.
func (e *Environment) BlockDataSize() int32 {
	return int32(len(e.blockData))
}

// BlockDataCopy copies payload[offset:offset+length] to ptr.
func (e *Environment) BlockDataCopy(ptr, offset, length uint32) error {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(e.blockData)) {
		return &types.BlockDataRangeError{Offset: offset, Length: length, Size: len(e.blockData)}
	}
	mem, err := e.memory()
	if err != nil {
		return err
	}
	e.logger.Debug().Uint32("ptr", ptr).Uint32("offset", offset).Uint32("length", length).Msg("blockDataCopy")
	return mem.Write(uint64(ptr), e.blockData[offset:end])
}

// PushNewDeposit is part of the ABI but deposits cannot be produced yet.
func (e *Environment) PushNewDeposit(ptr uint32) error {
	return types.ErrUnimplemented
}

// SetBignumStack sets the offset of bignum stack slot 0.
func (e *Environment) SetBignumStack(base uint32) {
	e.addressing.SetStack(base)
}

// SetMemoryPtr sets the base of the printMem windows.
func (e *Environment) SetMemoryPtr(base uint32) {
	e.addressing.SetMemory(base)
}

func (e *Environment) Add256(a, b, result uint32) error {
	mem, err := e.memory()
	if err != nil {
		return err
	}
	return bignum.Add(mem, a, b, result)
}

func (e *Environment) Sub256(a, b, result uint32) error {
	mem, err := e.memory()
	if err != nil {
		return err
	}
	return bignum.Sub(mem, a, b, result)
}

func (e *Environment) Mul256(top uint32) (uint32, error) {
	mem, err := e.memory()
	if err != nil {
		return 0, err
	}
	return bignum.Mul(mem, &e.addressing, top)
}

func (e *Environment) Lt256(top uint32) (uint32, error) {
	mem, err := e.memory()
	if err != nil {
		return 0, err
	}
	return bignum.Lt(mem, &e.addressing, top)
}

func (e *Environment) Div256(top uint32) (uint32, error) {
	mem, err := e.memory()
	if err != nil {
		return 0, err
	}
	return bignum.Div(mem, &e.addressing, top)
}

func (e *Environment) JumpI(top uint32, fallback int32) (int32, error) {
	mem, err := e.memory()
	if err != nil {
		return 0, err
	}
	return bignum.JumpI(mem, &e.addressing, top, fallback)
}

// Dispatch routes a host call by function index. Arguments and the result
// use wazero's raw uint64 stack encoding.
func (e *Environment) Dispatch(index int, args []uint64) (uint64, error) {
	arg := func(i int) uint32 { return uint32(args[i]) }

	switch index {
	case constants.LoadPreStateRootFuncIndex:
		return 0, e.LoadPreStateRoot(arg(0))
	case constants.BlockDataSizeFuncIndex:
		return uint64(uint32(e.BlockDataSize())), nil
	case constants.BlockDataCopyFuncIndex:
		return 0, e.BlockDataCopy(arg(0), arg(1), arg(2))
	case constants.SavePostStateRootFuncIndex:
		return 0, e.SavePostStateRoot(arg(0))
	case constants.PushNewDepositFuncIndex:
		return 0, e.PushNewDeposit(arg(0))
	case constants.UseTicksFuncIndex:
		return 0, e.UseTicks(arg(0))
	case constants.SetBignumStackFuncIndex:
		e.SetBignumStack(arg(0))
		return 0, nil
	case constants.SetMemoryPtrFuncIndex:
		e.SetMemoryPtr(arg(0))
		return 0, nil
	case constants.Add256FuncIndex:
		return 0, e.Add256(arg(0), arg(1), arg(2))
	case constants.Mul256FuncIndex:
		top, err := e.Mul256(arg(0))
		return uint64(top), err
	case constants.Sub256FuncIndex:
		return 0, e.Sub256(arg(0), arg(1), arg(2))
	case constants.Lt256FuncIndex:
		top, err := e.Lt256(arg(0))
		return uint64(top), err
	case constants.Div256FuncIndex:
		top, err := e.Div256(arg(0))
		return uint64(top), err
	case constants.JumpIFuncIndex:
		pc, err := e.JumpI(arg(0), int32(arg(1)))
		return uint64(uint32(pc)), err
	case constants.LogFuncIndex:
		return 0, e.Log(arg(0), arg(1))
	case constants.PrintMemFuncIndex:
		return 0, e.PrintMem(arg(0))
	default:
		return 0, types.ErrUnknownFunctionIndex
	}
}
