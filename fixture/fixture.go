// Package fixture loads and replays state transition test files: a beacon
// state listing script files, a sequence of shard blocks, and the shard
// state before and after applying them.
package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ewasm/scout/types"
)

// DefaultPath is the fixture read when none is given.
const DefaultPath = "test.yaml"

type testBeaconState struct {
	ExecutionScripts []string `yaml:"execution_scripts"`
}

type testShardBlock struct {
	Env  uint64 `yaml:"env"`
	Data string `yaml:"data"`
}

type testShardState struct {
	ExecEnvStates []types.StateRoot `yaml:"exec_env_states"`
}

type testFile struct {
	BeaconState    testBeaconState  `yaml:"beacon_state"`
	ShardBlocks    []testShardBlock `yaml:"shard_blocks"`
	ShardPreState  testShardState   `yaml:"shard_pre_state"`
	ShardPostState testShardState   `yaml:"shard_post_state"`
}

// File is a loaded fixture with its scripts read and its payloads decoded.
type File struct {
	Path    string
	Scripts []string

	beacon types.BeaconState
	blocks []types.ShardBlock
	pre    types.ShardState
	post   types.ShardState
}

// Load reads the fixture at path. Script paths are taken relative to the
// fixture's directory unless they are absolute.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var doc testFile
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}

	f := &File{
		Path: path,
		pre:  types.ShardState{ExecEnvStates: doc.ShardPreState.ExecEnvStates},
		post: types.ShardState{ExecEnvStates: doc.ShardPostState.ExecEnvStates},
	}

	dir := filepath.Dir(path)
	for _, script := range doc.BeaconState.ExecutionScripts {
		if !filepath.IsAbs(script) {
			script = filepath.Join(dir, script)
		}
		code, err := os.ReadFile(script)
		if err != nil {
			return nil, fmt.Errorf("loading execution script: %w", err)
		}
		f.Scripts = append(f.Scripts, script)
		f.beacon.ExecutionScripts = append(f.beacon.ExecutionScripts, types.ExecutionScript{Code: code})
	}

	for i, block := range doc.ShardBlocks {
		data, err := types.DecodeHex(block.Data)
		if err != nil {
			return nil, fmt.Errorf("shard block %d: invalid hex data: %w", i, err)
		}
		f.blocks = append(f.blocks, types.ShardBlock{Env: block.Env, Data: types.ShardBlockBody{Data: data}})
	}
	return f, nil
}

// BeaconState returns the beacon state with all scripts loaded.
func (f *File) BeaconState() *types.BeaconState {
	return &f.beacon
}

// PreState returns a copy of the declared pre-state.
func (f *File) PreState() *types.ShardState {
	return f.pre.Clone()
}

// PostState returns a copy of the declared post-state.
func (f *File) PostState() *types.ShardState {
	return f.post.Clone()
}

// Blocks returns the shard blocks in order.
func (f *File) Blocks() []types.ShardBlock {
	return f.blocks
}

// Processor applies shard blocks to a shard state.
type Processor interface {
	ProcessShardBlocks(ctx context.Context, state *types.ShardState, beacon *types.BeaconState, blocks []types.ShardBlock) error
}

// Run replays the fixture's blocks on its pre-state and compares the result
// with the declared post-state. It returns the state it reached, also on error.
func Run(ctx context.Context, p Processor, f *File) (*types.ShardState, error) {
	state := f.PreState()
	if err := p.ProcessShardBlocks(ctx, state, f.BeaconState(), f.Blocks()); err != nil {
		return state, err
	}
	if err := Compare(state, &f.post); err != nil {
		return state, err
	}
	return state, nil
}

// MismatchError reports a shard state that differs from the expected one.
// Env is -1 when the number of execution environments differs.
type MismatchError struct {
	Env      int
	Got      types.StateRoot
	Want     types.StateRoot
	GotEnvs  int
	WantEnvs int
}

func (e *MismatchError) Error() string {
	if e.Env < 0 {
		return fmt.Sprintf("post state has %d execution environments, expected %d", e.GotEnvs, e.WantEnvs)
	}
	return fmt.Sprintf("execution environment %d: post state root %s, expected %s", e.Env, e.Got, e.Want)
}

// Compare returns a *MismatchError for the first difference between the
// state roots of got and want.
func Compare(got, want *types.ShardState) error {
	if len(got.ExecEnvStates) != len(want.ExecEnvStates) {
		return &MismatchError{Env: -1, GotEnvs: len(got.ExecEnvStates), WantEnvs: len(want.ExecEnvStates)}
	}
	for i := range got.ExecEnvStates {
		if got.ExecEnvStates[i] != want.ExecEnvStates[i] {
			return &MismatchError{
				Env:      i,
				Got:      got.ExecEnvStates[i],
				Want:     want.ExecEnvStates[i],
				GotEnvs:  len(got.ExecEnvStates),
				WantEnvs: len(want.ExecEnvStates),
			}
		}
	}
	return nil
}
