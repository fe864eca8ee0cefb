package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ewasm/scout/internal/runtime/host"
	"github.com/ewasm/scout/internal/runtime/validation"
	"github.com/ewasm/scout/types"
)

// load returns the compiled form of code from the cache, compiling and
// checking it against the host on a miss. Nothing has run when it returns.
func (vm *VM) load(ctx context.Context, code []byte) (wazero.CompiledModule, error) {
	return vm.cache.Compile(ctx, code, vm.compile)
}

// compile builds code and checks that every import resolves and the memory
// and entry point exports exist. A rejected module is closed again.
func (vm *VM) compile(ctx context.Context, code []byte) (wazero.CompiledModule, error) {
	compiled, err := vm.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, &types.LoadError{Reason: "compiling module", Err: err}
	}
	if _, err := vm.resolver.ResolveModule(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	if err := validation.AnalyzeForValidation(code, compiled, validation.Exports{
		Memory:     vm.config.MemoryExport,
		EntryPoint: vm.config.EntryPoint,
	}); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	return compiled, nil
}

// ExecuteCode runs one script against one block and returns the post-state
// root it saved. Any failure aborts the whole invocation: load failures are
// *types.LoadError and failures after the entry point started are
// *types.TrapError.
func (vm *VM) ExecuteCode(ctx context.Context, code []byte, preState types.StateRoot, blockData []byte) (types.ExecutionResult, error) {
	env, err := host.NewEnvironment(host.Params{
		TickLimit:  vm.config.TickLimit,
		PreState:   preState,
		BlockData:  blockData,
		Logger:     vm.logger,
		PrintDebug: vm.config.PrintDebug,
	})
	if err != nil {
		return types.ExecutionResult{}, err
	}

	callCtx := host.WithEnvironment(ctx, env)
	module, err := vm.instantiate(callCtx, code)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	defer module.Close(ctx)

	env.BindMemory(module.ExportedMemory(vm.config.MemoryExport))

	vm.logger.Debug().
		Stringer("pre_state", preState).
		Int("block_size", len(blockData)).
		Msg("Calling entry point")

	if _, err := module.ExportedFunction(vm.config.EntryPoint).Call(callCtx); err != nil {
		vm.logger.Debug().Err(err).Uint64("ticks_used", env.Ticks().Used).Msg("Execution trapped")
		return types.ExecutionResult{}, &types.TrapError{Func: vm.config.EntryPoint, Err: err}
	}

	result := types.ExecutionResult{
		PostState: env.PostState(),
		Deposits:  []types.Deposit{{}},
		Ticks:     env.Ticks(),
	}
	vm.logger.Debug().
		Stringer("post_state", result.PostState).
		Uint64("ticks_used", result.Ticks.Used).
		Msg("Execution finished")
	return result, nil
}

// instantiate loads code and creates an anonymous instance of it, so
// concurrent executions of one script coexist. Exported start functions
// such as _start are not run. RemoveCode waits until instantiation is done
// before closing a compiled module.
func (vm *VM) instantiate(ctx context.Context, code []byte) (api.Module, error) {
	vm.codeMu.RLock()
	defer vm.codeMu.RUnlock()

	compiled, err := vm.load(ctx, code)
	if err != nil {
		return nil, err
	}
	module, err := vm.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return nil, &types.LoadError{Reason: "instantiating module", Err: err}
	}
	return module, nil
}
