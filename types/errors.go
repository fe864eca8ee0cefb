package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDivisionByZero is raised by div256 when the divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrUnimplemented is raised by host functions that exist in the ABI but have no behaviour yet.
	ErrUnimplemented = errors.New("host function not implemented")
	// ErrUnknownFunctionIndex is raised when dispatch receives an index outside the host table.
	ErrUnknownFunctionIndex = errors.New("unknown host function index")
	// ErrPayloadTooLarge is returned when block data does not fit a signed 32-bit length.
	ErrPayloadTooLarge = errors.New("block payload must be smaller than 2^31 bytes")
	// ErrMemoryNotBound is raised when a host function runs before guest memory is attached.
	ErrMemoryNotBound = errors.New("guest memory not bound to execution context")
	// ErrNoEnvironment is raised when a host function is called outside of an execution.
	ErrNoEnvironment = errors.New("no execution context attached to call")
	// ErrStartFunction is returned for scripts that declare a wasm start function.
	ErrStartFunction = errors.New("start function is not allowed")
)

var (
	_ error = (*LoadError)(nil)
	_ error = (*TrapError)(nil)
	_ error = (*UnknownImportError)(nil)
	_ error = (*ImportSignatureError)(nil)
	_ error = (*MissingExportError)(nil)
	_ error = (*OutOfTicksError)(nil)
	_ error = (*OutOfBoundsError)(nil)
	_ error = (*BlockDataRangeError)(nil)
	_ error = (*StackUnderflowError)(nil)
	_ error = (*ConfigurationError)(nil)
	_ error = (*UnknownEnvironmentError)(nil)
)

// LoadError is returned when a guest module cannot be prepared for execution:
// malformed bytecode, an unresolvable import, or a missing export.
// No guest code has run when it is returned.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load error: %s: %v", e.Reason, e.Err)
	}
	return "load error: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// TrapError is returned when an invocation aborts after it started.
// Func is the guest export that was running.
type TrapError struct {
	Func string
	Err  error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("trap in %q: %v", e.Func, e.Err)
}

func (e *TrapError) Unwrap() error { return e.Err }

// UnknownImportError is returned when a guest imports a function the host does not provide.
type UnknownImportError struct {
	Module string
	Field  string
}

func (e *UnknownImportError) Error() string {
	return fmt.Sprintf("host module %q doesn't export function with name %s", e.Module, e.Field)
}

// ImportSignatureError is returned when a guest imports a known host function with the wrong type.
type ImportSignatureError struct {
	Field string
	Want  string
	Got   string
}

func (e *ImportSignatureError) Error() string {
	return fmt.Sprintf("import %s has signature %s, host expects %s", e.Field, e.Got, e.Want)
}

// MissingExportError is returned when a guest lacks a required export.
type MissingExportError struct {
	Name string
	Kind string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("module expected to have %s export %q", e.Kind, e.Name)
}

// OutOfTicksError is raised when useTicks asks for more than the remaining budget.
type OutOfTicksError struct {
	Wanted    Ticks
	Available Ticks
}

func (e *OutOfTicksError) Error() string {
	return fmt.Sprintf("out of ticks: required %d, but only %d available", e.Wanted, e.Available)
}

// OutOfBoundsError is raised when a host function touches memory outside the guest's linear memory.
type OutOfBoundsError struct {
	Offset uint64
	Length uint32
	Size   uint32
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("memory access out of bounds: offset %d, length %d, memory size %d", e.Offset, e.Length, e.Size)
}

// BlockDataRangeError is raised when blockDataCopy asks for bytes past the end of the payload.
type BlockDataRangeError struct {
	Offset uint32
	Length uint32
	Size   int
}

func (e *BlockDataRangeError) Error() string {
	return fmt.Sprintf("block data range [%d, %d+%d) exceeds payload of %d bytes", e.Offset, e.Offset, e.Length, e.Size)
}

// StackUnderflowError is raised when a stack-relative operation is given too small a stack height.
type StackUnderflowError struct {
	Op   string
	Top  uint32
	Need uint32
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("%s: stack height %d, need at least %d", e.Op, e.Top, e.Need)
}

// ConfigurationError is raised when a host function needs an addressing setting the guest never made.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s must be called before this operation", e.Setting)
}

// UnknownEnvironmentError is returned when a block names an execution environment that does not exist.
type UnknownEnvironmentError struct {
	Env     uint64
	Scripts int
	States  int
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown execution environment %d (%d scripts, %d state roots)", e.Env, e.Scripts, e.States)
}
