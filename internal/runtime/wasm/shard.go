package wasm

import (
	"context"
	"fmt"

	"github.com/ewasm/scout/types"
)

// ProcessShardBlock executes block against the script and state root of the
// execution environment it names and stores the new root in state. A nil
// block is a no-op. On error state is left untouched.
func (vm *VM) ProcessShardBlock(ctx context.Context, state *types.ShardState, beacon *types.BeaconState, block *types.ShardBlock) error {
	if block == nil {
		return nil
	}
	env := block.Env
	if env >= uint64(len(beacon.ExecutionScripts)) || env >= uint64(len(state.ExecEnvStates)) {
		return &types.UnknownEnvironmentError{
			Env:     env,
			Scripts: len(beacon.ExecutionScripts),
			States:  len(state.ExecEnvStates),
		}
	}

	preState := state.ExecEnvStates[env]
	result, err := vm.ExecuteCode(ctx, beacon.ExecutionScripts[env].Code, preState, block.Data.Data)
	if err != nil {
		return fmt.Errorf("execution environment %d: %w", env, err)
	}
	state.ExecEnvStates[env] = result.PostState

	vm.logger.Info().
		Uint64("env", env).
		Stringer("pre_state", preState).
		Stringer("post_state", result.PostState).
		Uint64("ticks_used", result.Ticks.Used).
		Msg("Processed shard block")
	return nil
}

// ProcessShardBlocks applies blocks in order, each seeing the state left by
// the previous one. It stops at the first failure; blocks before it stay applied.
func (vm *VM) ProcessShardBlocks(ctx context.Context, state *types.ShardState, beacon *types.BeaconState, blocks []types.ShardBlock) error {
	for i := range blocks {
		if err := vm.ProcessShardBlock(ctx, state, beacon, &blocks[i]); err != nil {
			return fmt.Errorf("shard block %d: %w", i, err)
		}
	}
	return nil
}
