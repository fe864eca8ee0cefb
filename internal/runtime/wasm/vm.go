// Package wasm drives guest scripts on wazero: it loads a script, checks its
// imports and exports, runs its entry point against one block and applies
// the resulting state root to the shard state.
package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ewasm/scout/internal/runtime/cache"
	"github.com/ewasm/scout/internal/runtime/hostfunctions"
	"github.com/ewasm/scout/types"
)

// VM executes guest scripts. It is safe for concurrent use: everything an
// invocation mutates lives in the host.Environment attached to its context.
type VM struct {
	runtime    wazero.Runtime
	hostModule api.Module
	resolver   hostfunctions.Resolver
	cache      *cache.Cache
	config     types.VMConfig
	logger     zerolog.Logger

	// codeMu orders RemoveCode after in-flight instantiations.
	codeMu sync.RWMutex
}

// Option customizes a VM.
type Option func(*VM)

// WithCache makes the VM keep code in c instead of a private in-memory cache.
// The VM takes ownership of c and closes it in Close.
func WithCache(c *cache.Cache) Option {
	return func(vm *VM) {
		vm.cache = c
	}
}

// NewVM builds the wazero runtime and instantiates the host module.
func NewVM(ctx context.Context, cfg types.VMConfig, logger zerolog.Logger, opts ...Option) (*VM, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runtimeConfig := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MemoryLimitPages).
		WithCloseOnContextDone(true)

	vm := &VM{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeConfig),
		resolver: hostfunctions.NewResolver(cfg),
		config:   cfg,
		logger:   logger.With().Str("component", "vm").Logger(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.cache == nil {
		vm.cache = cache.New(nil)
	}

	mod, err := hostfunctions.RegisterHostFunctions(ctx, vm.runtime, vm.resolver)
	if err != nil {
		_ = vm.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiating host module %q: %w", cfg.HostModule, err)
	}
	vm.hostModule = mod

	vm.logger.Info().
		Str("host_module", cfg.HostModule).
		Uint64("tick_limit", cfg.TickLimit).
		Uint32("memory_limit_pages", cfg.MemoryLimitPages).
		Msg("Wazero runtime initialized")
	return vm, nil
}

// Config returns the effective configuration.
func (vm *VM) Config() types.VMConfig {
	return vm.config
}

// Close releases all resources held by the VM
func (vm *VM) Close(ctx context.Context) error {
	if err := vm.cache.Close(ctx); err != nil {
		vm.logger.Error().Err(err).Msg("Error closing code cache")
	}
	return vm.runtime.Close(ctx)
}

// StoreCode saves and compiles a script and checks it can be linked, so that
// later executions of it only pay for instantiation.
func (vm *VM) StoreCode(ctx context.Context, code []byte) ([]byte, error) {
	if _, err := vm.load(ctx, code); err != nil {
		return nil, err
	}
	checksum := cache.Checksum(code)
	vm.logger.Debug().Hex("checksum", checksum).Int("size", len(code)).Msg("Stored script")
	return checksum, nil
}

// GetCode returns the bytecode stored under checksum.
func (vm *VM) GetCode(checksum []byte) ([]byte, error) {
	code, ok, err := vm.cache.Load(checksum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no code stored for checksum %x", checksum)
	}
	return code, nil
}

// Pin keeps a stored script from being removed.
func (vm *VM) Pin(checksum []byte) {
	vm.cache.Pin(checksum)
}

// Unpin reverses Pin.
func (vm *VM) Unpin(checksum []byte) {
	vm.cache.Unpin(checksum)
}

// RemoveCode removes an unpinned script. It reports whether anything was removed.
// It waits for executions that are instantiating the script; running
// instances are unaffected.
func (vm *VM) RemoveCode(ctx context.Context, checksum []byte) (bool, error) {
	vm.codeMu.Lock()
	defer vm.codeMu.Unlock()
	return vm.cache.Remove(ctx, checksum)
}

// GetMetrics reports code cache statistics.
func (vm *VM) GetMetrics() cache.Metrics {
	return vm.cache.Metrics()
}
