// Package validation checks the static shape of a compiled script before it
// is instantiated.
package validation

import (
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero"

	"github.com/ewasm/scout/types"
)

const (
	headerSize     = 8
	startSectionID = 8
)

// Exports names the exports every script must provide.
type Exports struct {
	Memory     string
	EntryPoint string
}

// AnalyzeForValidation checks that the script has no start function and that
// compiled exports the memory and a parameterless entry point with no results.
// code must be the bytecode compiled was built from.
func AnalyzeForValidation(code []byte, compiled wazero.CompiledModule, want Exports) error {
	if HasStartFunction(code) {
		return &types.LoadError{Reason: "checking start section", Err: types.ErrStartFunction}
	}

	if _, ok := compiled.ExportedMemories()[want.Memory]; !ok {
		return &types.LoadError{
			Reason: "checking exports",
			Err:    &types.MissingExportError{Name: want.Memory, Kind: "memory"},
		}
	}

	entry, ok := compiled.ExportedFunctions()[want.EntryPoint]
	if !ok {
		return &types.LoadError{
			Reason: "checking exports",
			Err:    &types.MissingExportError{Name: want.EntryPoint, Kind: "function"},
		}
	}
	if len(entry.ParamTypes()) != 0 || len(entry.ResultTypes()) != 0 {
		return &types.LoadError{
			Reason: fmt.Sprintf("entry point %q must take no arguments and return nothing", want.EntryPoint),
		}
	}
	return nil
}

// HasStartFunction reports whether code declares a start section. It walks
// the section headers only, so code is expected to have compiled already.
func HasStartFunction(code []byte) bool {
	if len(code) < headerSize {
		return false
	}
	rest := code[headerSize:]
	for len(rest) > 0 {
		id := rest[0]
		size, n := binary.Uvarint(rest[1:])
		if n <= 0 || size > uint64(len(rest)-1-n) {
			return false
		}
		if id == startSectionID {
			return true
		}
		rest = rest[1+n+int(size):]
	}
	return false
}
