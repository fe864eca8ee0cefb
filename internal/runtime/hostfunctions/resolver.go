// Package hostfunctions binds the host function table to guest imports and
// to a wazero host module.
package hostfunctions

import (
	"slices"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ewasm/scout/internal/runtime/constants"
	"github.com/ewasm/scout/types"
)

var (
	i32 = api.ValueTypeI32
)

// Func describes one entry of the host function table.
type Func struct {
	Index   int
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// Signature renders the function type the way it is shown in errors.
func (f Func) Signature() string {
	return signature(f.Params, f.Results)
}

var table = [constants.NumHostFunctions]Func{
	{constants.LoadPreStateRootFuncIndex, "loadPreStateRoot", []api.ValueType{i32}, nil},
	{constants.BlockDataSizeFuncIndex, "blockDataSize", nil, []api.ValueType{i32}},
	{constants.BlockDataCopyFuncIndex, "blockDataCopy", []api.ValueType{i32, i32, i32}, nil},
	{constants.SavePostStateRootFuncIndex, "savePostStateRoot", []api.ValueType{i32}, nil},
	{constants.PushNewDepositFuncIndex, "pushNewDeposit", []api.ValueType{i32}, nil},
	{constants.UseTicksFuncIndex, "useTicks", []api.ValueType{i32}, nil},
	{constants.SetBignumStackFuncIndex, "setBignumStack", []api.ValueType{i32}, nil},
	{constants.SetMemoryPtrFuncIndex, "setMemoryPtr", []api.ValueType{i32}, nil},
	{constants.Add256FuncIndex, "add256", []api.ValueType{i32, i32, i32}, nil},
	{constants.Mul256FuncIndex, "mul256", []api.ValueType{i32}, []api.ValueType{i32}},
	{constants.Sub256FuncIndex, "sub256", []api.ValueType{i32, i32, i32}, nil},
	{constants.Lt256FuncIndex, "lt256", []api.ValueType{i32}, []api.ValueType{i32}},
	{constants.Div256FuncIndex, "div256", []api.ValueType{i32}, []api.ValueType{i32}},
	{constants.JumpIFuncIndex, "jumpi", []api.ValueType{i32, i32}, []api.ValueType{i32}},
	{constants.LogFuncIndex, "log", []api.ValueType{i32, i32}, nil},
	{constants.PrintMemFuncIndex, "printMem", []api.ValueType{i32}, nil},
}

// Table returns the host function table ordered by index.
func Table() []Func {
	return slices.Clone(table[:])
}

// Resolver maps guest imports onto the host function table.
type Resolver struct {
	Module string
	Prefix string
}

// DefaultResolver resolves imports of env.eth2_*.
var DefaultResolver = Resolver{Module: types.DefaultHostModule, Prefix: types.DefaultImportPrefix}

// NewResolver creates a resolver for the host module and import prefix in cfg.
func NewResolver(cfg types.VMConfig) Resolver {
	return Resolver{Module: cfg.HostModule, Prefix: cfg.ImportPrefix}
}

// Resolve resolves one import with DefaultResolver.
func Resolve(module, field string, params, results []api.ValueType) (Func, error) {
	return DefaultResolver.Resolve(module, field, params, results)
}

// Resolve finds the host function a guest imports as module.field and checks
// that the guest declared it with the host's signature.
func (r Resolver) Resolve(module, field string, params, results []api.ValueType) (Func, error) {
	if module != r.Module || !strings.HasPrefix(field, r.Prefix) {
		return Func{}, &types.UnknownImportError{Module: module, Field: field}
	}
	name := strings.TrimPrefix(field, r.Prefix)
	for _, f := range table {
		if f.Name != name {
			continue
		}
		if !slices.Equal(f.Params, params) || !slices.Equal(f.Results, results) {
			return Func{}, &types.ImportSignatureError{
				Field: field,
				Want:  f.Signature(),
				Got:   signature(params, results),
			}
		}
		return f, nil
	}
	return Func{}, &types.UnknownImportError{Module: module, Field: field}
}

// ResolveModule resolves every function a compiled guest imports. It runs
// before instantiation so failures are load errors.
func (r Resolver) ResolveModule(compiled wazero.CompiledModule) ([]Func, error) {
	imports := compiled.ImportedFunctions()
	resolved := make([]Func, 0, len(imports))
	for _, def := range imports {
		module, field, _ := def.Import()
		f, err := r.Resolve(module, field, def.ParamTypes(), def.ResultTypes())
		if err != nil {
			return nil, &types.LoadError{Reason: "resolving imports", Err: err}
		}
		resolved = append(resolved, f)
	}
	return resolved, nil
}

func signature(params, results []api.ValueType) string {
	names := func(vs []api.ValueType) string {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = api.ValueTypeName(v)
		}
		return strings.Join(parts, ", ")
	}
	return "(" + names(params) + ") -> (" + names(results) + ")"
}
