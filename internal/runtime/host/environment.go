// Package host holds the per-invocation execution context and the host
// functions a guest calls through it.
package host

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ewasm/scout/internal/runtime/bignum"
	"github.com/ewasm/scout/internal/runtime/gas"
	"github.com/ewasm/scout/internal/runtime/memory"
	"github.com/ewasm/scout/types"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	envKey contextKey = "env"
)

// Params configures a new Environment.
type Params struct {
	TickLimit  types.Ticks
	PreState   types.StateRoot
	BlockData  []byte
	Logger     zerolog.Logger
	PrintDebug bool
}

// Environment holds all execution context for one guest invocation.
// It is created before the guest is instantiated and discarded afterwards.
type Environment struct {
	Meter gas.Meter

	mem        *memory.Manager
	preState   types.StateRoot
	postState  types.StateRoot
	blockData  []byte
	addressing bignum.Addressing

	logger     zerolog.Logger
	printDebug bool
}

// NewEnvironment creates the context for one invocation.
func NewEnvironment(p Params) (*Environment, error) {
	if uint64(len(p.BlockData)) >= 1<<31 {
		return nil, types.ErrPayloadTooLarge
	}
	return &Environment{
		Meter:      gas.NewTickMeter(p.TickLimit),
		preState:   p.PreState,
		blockData:  p.BlockData,
		logger:     p.Logger.With().Str("component", "host").Logger(),
		printDebug: p.PrintDebug,
	}, nil
}

// BindMemory attaches the guest's linear memory once the module is instantiated.
func (e *Environment) BindMemory(mem memory.Memory) {
	e.mem = memory.NewManager(mem)
}

func (e *Environment) memory() (*memory.Manager, error) {
	if e.mem == nil {
		return nil, types.ErrMemoryNotBound
	}
	return e.mem, nil
}

// PostState returns the last root saved by the guest, or the zero root.
func (e *Environment) PostState() types.StateRoot {
	return e.postState
}

// Addressing exposes the bignum addressing state.
func (e *Environment) Addressing() *bignum.Addressing {
	return &e.addressing
}

// Ticks reports the meter's state.
func (e *Environment) Ticks() types.TickReport {
	return e.Meter.Report()
}

// WithEnvironment returns a context carrying env.
func WithEnvironment(ctx context.Context, env *Environment) context.Context {
	return context.WithValue(ctx, envKey, env)
}

// FromContext returns the Environment carried by ctx.
func FromContext(ctx context.Context) (*Environment, error) {
	env, ok := ctx.Value(envKey).(*Environment)
	if !ok || env == nil {
		return nil, types.ErrNoEnvironment
	}
	return env, nil
}
