// Package scout runs execution environment scripts against shard blocks.
//
// Each shard block names an execution environment: a wasm script held in the
// beacon state together with a 32-byte state root held in the shard state.
// Processing the block runs the script's main export with the block payload
// and replaces the environment's state root with the one the script saved.
package scout

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ewasm/scout/internal/runtime/cache"
	"github.com/ewasm/scout/internal/runtime/wasm"
	"github.com/ewasm/scout/types"
)

// Checksum identifies a stored script. It is the sha256 of the bytecode.
type Checksum []byte

type (
	StateRoot       = types.StateRoot
	ShardState      = types.ShardState
	ShardBlock      = types.ShardBlock
	BeaconState     = types.BeaconState
	ExecutionResult = types.ExecutionResult
	CacheMetrics    = cache.Metrics
)

// Config configures a VM.
type Config struct {
	VM types.VMConfig `yaml:"vm"`
	// CodeDBBackend is a cometbft-db backend name. Empty means memdb.
	CodeDBBackend string `yaml:"code_db_backend"`
	// CodeDBDir is where file backed stores keep their data.
	CodeDBDir string `yaml:"code_db_dir"`
}

// VM is the main entry point to this library.
type VM struct {
	vm *wasm.VM
}

// NewVM creates a new VM. Call Cleanup once it is no longer needed.
func NewVM(ctx context.Context, config Config, logger zerolog.Logger) (*VM, error) {
	codeCache, err := cache.Open(config.CodeDBBackend, config.CodeDBDir)
	if err != nil {
		return nil, err
	}
	vm, err := wasm.NewVM(ctx, config.VM, logger, wasm.WithCache(codeCache))
	if err != nil {
		_ = codeCache.Close(ctx)
		return nil, err
	}
	return &VM{vm: vm}, nil
}

// Cleanup frees the runtime and the code store.
func (vm *VM) Cleanup() {
	_ = vm.vm.Close(context.Background())
}

// Config returns the effective runtime configuration.
func (vm *VM) Config() types.VMConfig {
	return vm.vm.Config()
}

// StoreCode compiles code, checks that it links against the host, and keeps it
// so later executions skip compilation.
func (vm *VM) StoreCode(ctx context.Context, code []byte) (Checksum, error) {
	return vm.vm.StoreCode(ctx, code)
}

// GetCode loads the bytecode stored under checksum.
func (vm *VM) GetCode(checksum Checksum) ([]byte, error) {
	return vm.vm.GetCode(checksum)
}

// Pin protects stored code from RemoveCode.
func (vm *VM) Pin(checksum Checksum) {
	vm.vm.Pin(checksum)
}

// Unpin reverses Pin.
func (vm *VM) Unpin(checksum Checksum) {
	vm.vm.Unpin(checksum)
}

// RemoveCode drops unpinned code from the store.
func (vm *VM) RemoveCode(ctx context.Context, checksum Checksum) (bool, error) {
	return vm.vm.RemoveCode(ctx, checksum)
}

// GetMetrics reports code cache statistics.
func (vm *VM) GetMetrics() CacheMetrics {
	return vm.vm.GetMetrics()
}

// ExecuteCode runs code once with preState and blockData and returns the
// post-state root the script saved. A failed run returns no partial result.
func (vm *VM) ExecuteCode(ctx context.Context, code []byte, preState StateRoot, blockData []byte) (ExecutionResult, error) {
	return vm.vm.ExecuteCode(ctx, code, preState, blockData)
}

// ProcessShardBlock applies one block to state. A nil block does nothing and
// a failed block leaves state as it was.
func (vm *VM) ProcessShardBlock(ctx context.Context, state *ShardState, beacon *BeaconState, block *ShardBlock) error {
	return vm.vm.ProcessShardBlock(ctx, state, beacon, block)
}

// ProcessShardBlocks applies blocks one after another.
func (vm *VM) ProcessShardBlocks(ctx context.Context, state *ShardState, beacon *BeaconState, blocks []ShardBlock) error {
	return vm.vm.ProcessShardBlocks(ctx, state, beacon, blocks)
}
