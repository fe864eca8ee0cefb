// Package wasmtest assembles small WebAssembly binaries for tests and provides
// an in-memory stand-in for guest linear memory.
package wasmtest

import "fmt"

// ValType is a wasm value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionStart    = 8
	sectionCode     = 10
	sectionData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02
)

type funcType struct {
	params  []ValType
	results []ValType
}

type funcImport struct {
	module  string
	name    string
	typeIdx uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type dataSegment struct {
	offset int32
	data   []byte
}

// Module is a builder for a single-memory wasm module. Imports must be
// declared before any function is defined so that indices stay stable.
type Module struct {
	types   []funcType
	imports []funcImport
	funcs   []function
	memory  *uint32
	exports []export
	start   *uint32
	data    []dataSegment
}

// NewModule returns an empty module builder.
func NewModule() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	for i, t := range m.types {
		if string(valBytes(t.params)) == string(valBytes(params)) && string(valBytes(t.results)) == string(valBytes(results)) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc declares a function import and returns its function index.
func (m *Module) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must be declared before functions")
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function from the given instructions and returns its index.
// The terminating end opcode is appended automatically.
func (m *Module) Func(params, results, locals []ValType, instrs ...[]byte) uint32 {
	var body []byte
	for _, in := range instrs {
		body = append(body, in...)
	}
	m.funcs = append(m.funcs, function{typeIdx: m.typeIndex(params, results), locals: locals, body: body})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the module's linear memory with the given minimum page count.
func (m *Module) Memory(minPages uint32) *Module {
	m.memory = &minPages
	return m
}

// ExportFunc exports the function at idx under name.
func (m *Module) ExportFunc(name string, idx uint32) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
	return m
}

// ExportMemory exports the module's memory under name.
func (m *Module) ExportMemory(name string) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindMemory, idx: 0})
	return m
}

// Start marks the function at idx as the module's start function.
func (m *Module) Start(idx uint32) *Module {
	m.start = &idx
	return m
}

// Data adds an active data segment initialising memory at offset.
func (m *Module) Data(offset int32, data []byte) *Module {
	m.data = append(m.data, dataSegment{offset: offset, data: data})
	return m
}

// Bytes encodes the module in the wasm binary format.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		var s []byte
		s = append(s, uleb(uint32(len(m.types)))...)
		for _, t := range m.types {
			s = append(s, 0x60)
			s = append(s, vec(valBytes(t.params))...)
			s = append(s, vec(valBytes(t.results))...)
		}
		out = appendSection(out, sectionType, s)
	}

	if len(m.imports) > 0 {
		var s []byte
		s = append(s, uleb(uint32(len(m.imports)))...)
		for _, im := range m.imports {
			s = append(s, name(im.module)...)
			s = append(s, name(im.name)...)
			s = append(s, kindFunc)
			s = append(s, uleb(im.typeIdx)...)
		}
		out = appendSection(out, sectionImport, s)
	}

	if len(m.funcs) > 0 {
		var s []byte
		s = append(s, uleb(uint32(len(m.funcs)))...)
		for _, f := range m.funcs {
			s = append(s, uleb(f.typeIdx)...)
		}
		out = appendSection(out, sectionFunction, s)
	}

	if m.memory != nil {
		s := []byte{0x01, 0x00}
		s = append(s, uleb(*m.memory)...)
		out = appendSection(out, sectionMemory, s)
	}

	if len(m.exports) > 0 {
		var s []byte
		s = append(s, uleb(uint32(len(m.exports)))...)
		for _, e := range m.exports {
			s = append(s, name(e.name)...)
			s = append(s, e.kind)
			s = append(s, uleb(e.idx)...)
		}
		out = appendSection(out, sectionExport, s)
	}

	if m.start != nil {
		out = appendSection(out, sectionStart, uleb(*m.start))
	}

	if len(m.funcs) > 0 {
		var s []byte
		s = append(s, uleb(uint32(len(m.funcs)))...)
		for _, f := range m.funcs {
			var body []byte
			body = append(body, uleb(uint32(len(f.locals)))...)
			for _, l := range f.locals {
				body = append(body, 0x01, byte(l))
			}
			body = append(body, f.body...)
			body = append(body, opEnd)
			s = append(s, uleb(uint32(len(body)))...)
			s = append(s, body...)
		}
		out = appendSection(out, sectionCode, s)
	}

	if len(m.data) > 0 {
		var s []byte
		s = append(s, uleb(uint32(len(m.data)))...)
		for _, d := range m.data {
			s = append(s, 0x00)
			s = append(s, I32Const(d.offset)...)
			s = append(s, opEnd)
			s = append(s, vec(d.data)...)
		}
		out = appendSection(out, sectionData, s)
	}

	return out
}

func (m *Module) String() string {
	return fmt.Sprintf("wasm module: %d imports, %d funcs, %d exports", len(m.imports), len(m.funcs), len(m.exports))
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = append(out, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func valBytes(vs []ValType) []byte {
	out := make([]byte, len(vs))
	for i, v := range vs {
		out[i] = byte(v)
	}
	return out
}

func vec(b []byte) []byte {
	return append(uleb(uint32(len(b))), b...)
}

func name(s string) []byte {
	return vec([]byte(s))
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
