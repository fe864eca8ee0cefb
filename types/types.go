// Package types provides core types used throughout the scout packages.
package types

// Deposit is a Phase 0 beacon chain deposit produced by an execution.
// It carries no fields yet.
type Deposit struct{}

// ExecutionScript is guest bytecode bound to one execution environment.
type ExecutionScript struct {
	Code []byte
}

// BeaconState holds the execution scripts, indexed by execution environment.
type BeaconState struct {
	ExecutionScripts []ExecutionScript
}

// ShardBlockHeader is a placeholder for the Phase 1 shard block header.
type ShardBlockHeader struct{}

// ShardBlockBody is the opaque payload handed to an execution script.
type ShardBlockBody struct {
	Data []byte
}

// ShardBlock is one unit of work: an execution environment index plus its payload.
type ShardBlock struct {
	Env  uint64
	Data ShardBlockBody
}

// ShardState holds one state root per execution environment.
type ShardState struct {
	ExecEnvStates []StateRoot
	Slot          uint64
	ParentBlock   ShardBlockHeader
}

// Clone returns a deep copy of the shard state.
func (s *ShardState) Clone() *ShardState {
	out := *s
	out.ExecEnvStates = append([]StateRoot(nil), s.ExecEnvStates...)
	return &out
}

// ExecutionResult is what a single guest invocation produces.
type ExecutionResult struct {
	PostState StateRoot
	Deposits  []Deposit
	Ticks     TickReport
}
