// Package memory provides bounds-checked access to a guest's linear memory.
package memory

import (
	"fmt"
	"math"

	"github.com/ewasm/scout/internal/runtime/constants"
	"github.com/ewasm/scout/types"
)

// Memory is the subset of wazero's api.Memory the host needs.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// Word is one 256-bit big-endian stack slot.
type Word = [constants.WordSize]byte

// Manager wraps a guest memory and turns every out-of-range access into a
// *types.OutOfBoundsError instead of relying on the engine's behaviour.
// The size is queried on every access since the guest may grow its memory.
type Manager struct {
	mem Memory
}

// NewManager binds a Manager to the given guest memory.
func NewManager(mem Memory) *Manager {
	return &Manager{mem: mem}
}

// Size returns the current size of the memory in bytes.
func (m *Manager) Size() uint32 {
	return m.mem.Size()
}

// Check verifies that [offset, offset+length) lies inside the memory.
func (m *Manager) Check(offset uint64, length uint32) error {
	size := m.mem.Size()
	if offset > math.MaxUint32 || offset+uint64(length) > uint64(size) {
		return &types.OutOfBoundsError{Offset: offset, Length: length, Size: size}
	}
	return nil
}

// Read copies length bytes starting at offset into a new slice.
func (m *Manager) Read(offset uint64, length uint32) ([]byte, error) {
	if err := m.Check(offset, length); err != nil {
		return nil, err
	}
	view, ok := m.mem.Read(uint32(offset), length)
	if !ok {
		return nil, fmt.Errorf("%w at offset %d, length %d", ErrMemoryReadFailed, offset, length)
	}
	return append([]byte(nil), view...), nil
}

// ReadInto fills out with the bytes starting at offset.
func (m *Manager) ReadInto(offset uint64, out []byte) error {
	data, err := m.Read(offset, uint32(len(out)))
	if err != nil {
		return err
	}
	copy(out, data)
	return nil
}

// Write copies data into memory starting at offset.
func (m *Manager) Write(offset uint64, data []byte) error {
	if err := m.Check(offset, uint32(len(data))); err != nil {
		return err
	}
	if !m.mem.Write(uint32(offset), data) {
		return fmt.Errorf("%w at offset %d, length %d", ErrMemoryWriteFailed, offset, len(data))
	}
	return nil
}

// ReadWord reads the 32-byte slot at offset.
func (m *Manager) ReadWord(offset uint64) (Word, error) {
	var w Word
	err := m.ReadInto(offset, w[:])
	return w, err
}

// WriteWord stores a 32-byte slot at offset.
func (m *Manager) WriteWord(offset uint64, w Word) error {
	return m.Write(offset, w[:])
}
