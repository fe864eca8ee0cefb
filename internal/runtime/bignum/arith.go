package bignum

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/ewasm/scout/internal/runtime/memory"
	"github.com/ewasm/scout/types"
)

type binaryOp func(z, x, y *uint256.Int) error

func wrapping(f func(z, x, y *uint256.Int) *uint256.Int) binaryOp {
	return func(z, x, y *uint256.Int) error {
		f(z, x, y)
		return nil
	}
}

// explicit applies op to the words at a and b and stores the result at result.
func explicit(mem *memory.Manager, a, b, result uint32, op binaryOp) error {
	x, y, err := readPair(mem, uint64(a), uint64(b))
	if err != nil {
		return err
	}
	if err := mem.Check(uint64(result), uint32(len(x))); err != nil {
		return err
	}
	var z uint256.Int
	if err := op(&z, new(uint256.Int).SetBytes32(x[:]), new(uint256.Int).SetBytes32(y[:])); err != nil {
		return err
	}
	return mem.WriteWord(uint64(result), z.Bytes32())
}

// stackRelative applies op to the top two slots and overwrites the second one.
// It returns the new stack height.
func stackRelative(mem *memory.Manager, addr *Addressing, name string, top uint32, op binaryOp) (uint32, error) {
	first, second, err := addr.operands(name, top)
	if err != nil {
		return 0, err
	}
	x, y, err := readPair(mem, first, second)
	if err != nil {
		return 0, err
	}
	var z uint256.Int
	if err := op(&z, new(uint256.Int).SetBytes32(x[:]), new(uint256.Int).SetBytes32(y[:])); err != nil {
		return 0, err
	}
	if err := mem.WriteWord(second, z.Bytes32()); err != nil {
		return 0, err
	}
	return top - 1, nil
}

// Add stores a+b mod 2^256 at result.
func Add(mem *memory.Manager, a, b, result uint32) error {
	return explicit(mem, a, b, result, wrapping((*uint256.Int).Add))
}

// Sub stores a-b mod 2^256 at result.
func Sub(mem *memory.Manager, a, b, result uint32) error {
	return explicit(mem, a, b, result, wrapping((*uint256.Int).Sub))
}

// Mul multiplies the top two slots, wrapping mod 2^256.
func Mul(mem *memory.Manager, addr *Addressing, top uint32) (uint32, error) {
	return stackRelative(mem, addr, "mul256", top, wrapping((*uint256.Int).Mul))
}

// Lt writes 1 if the top slot is less than the one below it, otherwise 0.
func Lt(mem *memory.Manager, addr *Addressing, top uint32) (uint32, error) {
	return stackRelative(mem, addr, "lt256", top, func(z, x, y *uint256.Int) error {
		if x.Lt(y) {
			z.SetOne()
		} else {
			z.Clear()
		}
		return nil
	})
}

// Div divides the top slot by the one below it.
func Div(mem *memory.Manager, addr *Addressing, top uint32) (uint32, error) {
	return stackRelative(mem, addr, "div256", top, func(z, x, y *uint256.Int) error {
		if y.IsZero() {
			return types.ErrDivisionByZero
		}
		z.Div(x, y)
		return nil
	})
}

// JumpI returns the destination in the top slot when the slot below it is
// non-zero, otherwise fallback. The destination is the big-endian int32 held
// in the last four bytes of the slot. The stack is not modified.
func JumpI(mem *memory.Manager, addr *Addressing, top uint32, fallback int32) (int32, error) {
	first, second, err := addr.operands("jumpi", top)
	if err != nil {
		return 0, err
	}
	dest, cond, err := readPair(mem, first, second)
	if err != nil {
		return 0, err
	}
	if new(uint256.Int).SetBytes32(cond[:]).IsZero() {
		return fallback, nil
	}
	return int32(binary.BigEndian.Uint32(dest[28:32])), nil
}
