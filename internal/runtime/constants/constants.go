// Package constants holds the fixed numbers of the host ABI.
package constants

// Host function indices. A resolved import carries one of these and
// dispatch routes on it.
const (
	LoadPreStateRootFuncIndex = iota
	BlockDataSizeFuncIndex
	BlockDataCopyFuncIndex
	SavePostStateRootFuncIndex
	PushNewDepositFuncIndex
	UseTicksFuncIndex
	SetBignumStackFuncIndex
	SetMemoryPtrFuncIndex
	Add256FuncIndex
	Mul256FuncIndex
	Sub256FuncIndex
	Lt256FuncIndex
	Div256FuncIndex
	JumpIFuncIndex
	LogFuncIndex
	PrintMemFuncIndex

	// NumHostFunctions is the size of the host function table.
	NumHostFunctions
)

const (
	// WordSize is the width in bytes of one bignum stack slot.
	WordSize = 32
	// MemoryWindowSize is the width in bytes of one printMem window.
	MemoryWindowSize = 16
)
