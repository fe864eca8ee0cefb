package wasmtest

const (
	opUnreachable = 0x00
	opIf          = 0x04
	opEnd         = 0x0b
	opReturn      = 0x0f
	opCall        = 0x10
	opDrop        = 0x1a
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opI32Load     = 0x28
	opI32Store    = 0x36
	opI32Store8   = 0x3a
	opI32Const    = 0x41
	opI32Eq       = 0x46
	opI32Ne       = 0x47
	opI32Add      = 0x6a

	blockTypeEmpty = 0x40
)

// I32Const pushes a constant.
func I32Const(v int32) []byte {
	return append([]byte{opI32Const}, sleb(int64(v))...)
}

// U32Const pushes a constant given as its unsigned bit pattern.
func U32Const(v uint32) []byte {
	return I32Const(int32(v))
}

// Call calls the function at idx.
func Call(idx uint32) []byte {
	return append([]byte{opCall}, uleb(idx)...)
}

// LocalGet pushes local i.
func LocalGet(i uint32) []byte {
	return append([]byte{opLocalGet}, uleb(i)...)
}

// LocalSet pops into local i.
func LocalSet(i uint32) []byte {
	return append([]byte{opLocalSet}, uleb(i)...)
}

// I32Load loads a 32-bit little-endian value from the address on the stack plus offset.
func I32Load(offset uint32) []byte {
	return append([]byte{opI32Load, 0x02}, uleb(offset)...)
}

// I32Store stores a 32-bit little-endian value: [addr, value] -> [].
func I32Store(offset uint32) []byte {
	return append([]byte{opI32Store, 0x02}, uleb(offset)...)
}

// I32Store8 stores the low byte of a value: [addr, value] -> [].
func I32Store8(offset uint32) []byte {
	return append([]byte{opI32Store8, 0x00}, uleb(offset)...)
}

// I32Eq compares the two top values for equality.
func I32Eq() []byte { return []byte{opI32Eq} }

// I32Ne compares the two top values for inequality.
func I32Ne() []byte { return []byte{opI32Ne} }

// I32Add adds the two top values.
func I32Add() []byte { return []byte{opI32Add} }

// Drop discards the top value.
func Drop() []byte { return []byte{opDrop} }

// Return returns from the current function.
func Return() []byte { return []byte{opReturn} }

// Unreachable traps.
func Unreachable() []byte { return []byte{opUnreachable} }

// TrapIf traps when the i32 on top of the stack is non-zero.
func TrapIf() []byte {
	return []byte{opIf, blockTypeEmpty, opUnreachable, opEnd}
}
