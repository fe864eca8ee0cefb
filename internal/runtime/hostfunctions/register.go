package hostfunctions

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ewasm/scout/internal/runtime/host"
)

// RegisterHostFunctions instantiates the host module in runtime, exporting
// every table entry as r.Prefix+name under r.Module. The functions find their
// Environment in the call context, so one host module serves all invocations.
func RegisterHostFunctions(ctx context.Context, runtime wazero.Runtime, r Resolver) (api.Module, error) {
	builder := runtime.NewHostModuleBuilder(r.Module)

	for _, f := range table {
		f := f
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, _ api.Module, stack []uint64) {
				env, err := host.FromContext(ctx)
				if err != nil {
					panic(fmt.Errorf("%s: %w", f.Name, err))
				}
				res, err := env.Dispatch(f.Index, stack[:len(f.Params)])
				if err != nil {
					panic(fmt.Errorf("%s: %w", f.Name, err))
				}
				if len(f.Results) > 0 {
					stack[0] = res
				}
			}), f.Params, f.Results).
			WithName(f.Name).
			Export(r.Prefix + f.Name)
	}

	return builder.Instantiate(ctx)
}
