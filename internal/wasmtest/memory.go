package wasmtest

// Memory is a fixed-size linear memory backed by a byte slice.
type Memory []byte

// NewMemory returns a zeroed memory of size bytes.
func NewMemory(size int) Memory {
	return make(Memory, size)
}

func (m Memory) Size() uint32 {
	return uint32(len(m))
}

func (m Memory) Read(offset, byteCount uint32) ([]byte, bool) {
	if uint64(offset)+uint64(byteCount) > uint64(len(m)) {
		return nil, false
	}
	return m[offset : offset+byteCount], true
}

func (m Memory) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(m)) {
		return false
	}
	copy(m[offset:], v)
	return true
}
