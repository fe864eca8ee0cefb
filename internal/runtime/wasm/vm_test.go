package wasm

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewasm/scout/internal/runtime/cache"
	"github.com/ewasm/scout/internal/wasmtest"
	"github.com/ewasm/scout/types"
)

var (
	none  = []wasmtest.ValType(nil)
	i32   = []wasmtest.ValType{wasmtest.I32}
	i32x2 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32}
	i32x3 = []wasmtest.ValType{wasmtest.I32, wasmtest.I32, wasmtest.I32}
)

func newVM(t *testing.T) *VM {
	t.Helper()
	ctx := context.Background()
	vm, err := NewVM(ctx, types.DefaultVMConfig(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close(ctx) })
	return vm
}

// guest wraps a module builder with the env imports the tests use.
type guest struct {
	*wasmtest.Module
	loadPre, savePost, size, copyData, useTicks, deposit, setStack, mul, div, log uint32
}

func newGuest() *guest {
	m := wasmtest.NewModule()
	g := &guest{Module: m}
	g.loadPre = m.ImportFunc("env", "eth2_loadPreStateRoot", i32, none)
	g.savePost = m.ImportFunc("env", "eth2_savePostStateRoot", i32, none)
	g.size = m.ImportFunc("env", "eth2_blockDataSize", none, i32)
	g.copyData = m.ImportFunc("env", "eth2_blockDataCopy", i32x3, none)
	g.useTicks = m.ImportFunc("env", "eth2_useTicks", i32, none)
	g.deposit = m.ImportFunc("env", "eth2_pushNewDeposit", i32, none)
	g.setStack = m.ImportFunc("env", "eth2_setBignumStack", i32, none)
	g.mul = m.ImportFunc("env", "eth2_mul256", i32, i32)
	g.div = m.ImportFunc("env", "eth2_div256", i32, i32)
	g.log = m.ImportFunc("env", "eth2_log", i32x2, none)
	m.Memory(1).ExportMemory("memory")
	return g
}

func (g *guest) main(instrs ...[]byte) []byte {
	g.ExportFunc("main", g.Func(none, none, none, instrs...))
	return g.Bytes()
}

// identityScript checks the payload size and saves the pre-state root unchanged.
func identityScript(expectSize int32) []byte {
	g := newGuest()
	return g.main(
		wasmtest.Call(g.size), wasmtest.I32Const(expectSize), wasmtest.I32Ne(), wasmtest.TrapIf(),
		wasmtest.I32Const(0), wasmtest.Call(g.loadPre),
		wasmtest.I32Const(0), wasmtest.Call(g.savePost),
	)
}

// counterScript increments the little-endian u32 held in bytes 28..31 of the root.
func counterScript() []byte {
	g := newGuest()
	return g.main(
		wasmtest.I32Const(0), wasmtest.Call(g.loadPre),
		wasmtest.I32Const(28),
		wasmtest.I32Const(28), wasmtest.I32Load(0),
		wasmtest.I32Const(1), wasmtest.I32Add(),
		wasmtest.I32Store(0),
		wasmtest.I32Const(0), wasmtest.Call(g.savePost),
	)
}

func counterRoot(n uint32) types.StateRoot {
	var root types.StateRoot
	binary.LittleEndian.PutUint32(root[28:], n)
	return root
}

func word(v uint64) []byte {
	w := make([]byte, 32)
	binary.BigEndian.PutUint64(w[24:], v)
	return w
}

// stackScript runs op on a two-slot stack at 64 holding b below a and saves slot 0.
func stackScript(op func(*guest) uint32, a, b uint64) []byte {
	g := newGuest()
	g.Data(64, append(word(b), word(a)...))
	return g.main(
		wasmtest.I32Const(64), wasmtest.Call(g.setStack),
		wasmtest.I32Const(2), wasmtest.Call(op(g)),
		wasmtest.I32Const(1), wasmtest.I32Ne(), wasmtest.TrapIf(),
		wasmtest.I32Const(64), wasmtest.Call(g.savePost),
	)
}

func TestExecuteIdentity(t *testing.T) {
	vm := newVM(t)
	ctx := context.Background()

	result, err := vm.ExecuteCode(ctx, identityScript(4), types.ZeroStateRoot, []byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(t, err)
	assert.Equal(t, types.ZeroStateRoot, result.PostState)
	assert.Equal(t, []types.Deposit{{}}, result.Deposits)
	assert.Equal(t, types.DefaultTickLimit, result.Ticks.Limit)

	pre := types.ForceNewStateRoot("0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	result, err = vm.ExecuteCode(ctx, identityScript(0), pre, nil)
	require.NoError(t, err)
	assert.Equal(t, pre, result.PostState)

	_, err = vm.ExecuteCode(ctx, identityScript(4), pre, []byte{1, 2, 3})
	var trap *types.TrapError
	require.ErrorAs(t, err, &trap)
	assert.Equal(t, "main", trap.Func)
}

func TestExecuteBlockDataCopy(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	code := g.main(
		wasmtest.I32Const(0), wasmtest.Call(g.loadPre),
		wasmtest.I32Const(1), wasmtest.I32Const(1), wasmtest.I32Const(3), wasmtest.Call(g.copyData),
		wasmtest.I32Const(0), wasmtest.Call(g.savePost),
	)

	result, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, []byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xad, 0xbe, 0xef, 0x00}, result.PostState.Bytes()[:5])

	_, err = vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, []byte{0xde, 0xad})
	var rangeErr *types.BlockDataRangeError
	require.ErrorAs(t, err, &rangeErr)
}

func TestExecuteWithoutSave(t *testing.T) {
	vm := newVM(t)
	code := newGuest().main()
	result, err := vm.ExecuteCode(context.Background(), code, counterRoot(9), nil)
	require.NoError(t, err)
	assert.Equal(t, types.ZeroStateRoot, result.PostState)
}

func TestExecuteBignum(t *testing.T) {
	vm := newVM(t)
	ctx := context.Background()
	mul := func(g *guest) uint32 { return g.mul }
	div := func(g *guest) uint32 { return g.div }

	result, err := vm.ExecuteCode(ctx, stackScript(mul, 6, 7), types.ZeroStateRoot, nil)
	require.NoError(t, err)
	assert.Equal(t, word(42), result.PostState.Bytes())

	result, err = vm.ExecuteCode(ctx, stackScript(div, 42, 5), types.ZeroStateRoot, nil)
	require.NoError(t, err)
	assert.Equal(t, word(8), result.PostState.Bytes())

	_, err = vm.ExecuteCode(ctx, stackScript(div, 42, 0), types.ZeroStateRoot, nil)
	var trap *types.TrapError
	require.ErrorAs(t, err, &trap)
	require.ErrorIs(t, err, types.ErrDivisionByZero)
}

func TestExecuteUnconfiguredStack(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	code := g.main(wasmtest.I32Const(2), wasmtest.Call(g.mul), wasmtest.Drop())

	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestExecuteOutOfTicks(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	code := g.main(
		wasmtest.I32Const(6_000_000), wasmtest.Call(g.useTicks),
		wasmtest.I32Const(0), wasmtest.Call(g.savePost),
		wasmtest.I32Const(6_000_000), wasmtest.Call(g.useTicks),
	)

	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	var outOfTicks *types.OutOfTicksError
	require.ErrorAs(t, err, &outOfTicks)
	assert.Equal(t, types.Ticks(6_000_000), outOfTicks.Wanted)
	assert.Equal(t, types.Ticks(4_000_000), outOfTicks.Available)
}

func TestExecutePushNewDeposit(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	code := g.main(wasmtest.I32Const(0), wasmtest.Call(g.deposit))

	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	require.ErrorIs(t, err, types.ErrUnimplemented)
}

func TestExecuteOutOfBounds(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	code := g.main(wasmtest.I32Const(65530), wasmtest.Call(g.loadPre))

	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	var oob *types.OutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, uint32(65536), oob.Size)
}

func TestExecuteGuestTrap(t *testing.T) {
	vm := newVM(t)
	code := newGuest().main(wasmtest.Unreachable())

	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	var trap *types.TrapError
	require.ErrorAs(t, err, &trap)
}

func TestLoadErrors(t *testing.T) {
	unknownImport := wasmtest.NewModule()
	unknownImport.ImportFunc("env", "eth2_getBalance", i32, none)
	unknownImport.Memory(1).ExportMemory("memory")
	unknownImport.ExportFunc("main", unknownImport.Func(none, none, none))

	badSignature := wasmtest.NewModule()
	badSignature.ImportFunc("env", "eth2_useTicks", i32x2, none)
	badSignature.Memory(1).ExportMemory("memory")
	badSignature.ExportFunc("main", badSignature.Func(none, none, none))

	noMemory := wasmtest.NewModule()
	noMemory.ExportFunc("main", noMemory.Func(none, none, none))

	noMain := wasmtest.NewModule()
	noMain.Memory(1).ExportMemory("memory")
	noMain.ExportFunc("run", noMain.Func(none, none, none))

	withStart := newGuest()
	withStart.Start(withStart.Func(none, none, none, wasmtest.I32Const(10), wasmtest.Call(withStart.useTicks)))
	withStart.main(wasmtest.I32Const(0), wasmtest.Call(withStart.savePost))

	mainWithParams := wasmtest.NewModule()
	mainWithParams.Memory(1).ExportMemory("memory")
	mainWithParams.ExportFunc("main", mainWithParams.Func(i32, none, none))

	cases := map[string]struct {
		code  []byte
		check func(t *testing.T, err error)
	}{
		"malformed": {[]byte("\x00asm garbage"), func(t *testing.T, err error) {}},
		"unknown import": {unknownImport.Bytes(), func(t *testing.T, err error) {
			var unknown *types.UnknownImportError
			require.ErrorAs(t, err, &unknown)
			assert.Equal(t, "eth2_getBalance", unknown.Field)
		}},
		"bad signature": {badSignature.Bytes(), func(t *testing.T, err error) {
			var sig *types.ImportSignatureError
			require.ErrorAs(t, err, &sig)
		}},
		"no memory": {noMemory.Bytes(), func(t *testing.T, err error) {
			var missing *types.MissingExportError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "memory", missing.Kind)
		}},
		"no main": {noMain.Bytes(), func(t *testing.T, err error) {
			var missing *types.MissingExportError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "main", missing.Name)
		}},
		"main with params": {mainWithParams.Bytes(), func(t *testing.T, err error) {}},
		"start function": {withStart.Bytes(), func(t *testing.T, err error) {
			require.ErrorIs(t, err, types.ErrStartFunction)
		}},
	}

	vm := newVM(t)
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := vm.ExecuteCode(context.Background(), tc.code, types.ZeroStateRoot, nil)
			var loadErr *types.LoadError
			require.ErrorAs(t, err, &loadErr)
			tc.check(t, err)

			_, err = vm.GetCode(cache.Checksum(tc.code))
			require.Error(t, err)
		})
	}
	assert.Equal(t, uint64(0), vm.GetMetrics().Elements)
}

func TestExecuteLog(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	g.Data(64, append(word(1), word(2)...))
	code := g.main(
		wasmtest.I32Const(64), wasmtest.Call(g.setStack),
		wasmtest.I32Const(0x01), wasmtest.I32Const(2), wasmtest.Call(g.log),
		wasmtest.I32Const(0), wasmtest.Call(g.savePost),
	)
	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	require.NoError(t, err)
}

func TestExecuteLogHugeTop(t *testing.T) {
	vm := newVM(t)
	g := newGuest()
	code := g.main(
		wasmtest.I32Const(0), wasmtest.Call(g.setStack),
		wasmtest.I32Const(0x01), wasmtest.U32Const(0xffffffff), wasmtest.Call(g.log),
	)

	_, err := vm.ExecuteCode(context.Background(), code, types.ZeroStateRoot, nil)
	var trap *types.TrapError
	require.ErrorAs(t, err, &trap)
	var oob *types.OutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, uint64(32)*0xfffffffe, oob.Offset)

	result, err := vm.ExecuteCode(context.Background(), identityScript(0), counterRoot(5), nil)
	require.NoError(t, err)
	assert.Equal(t, counterRoot(5), result.PostState)
}

func TestProcessShardBlocks(t *testing.T) {
	vm := newVM(t)
	ctx := context.Background()

	beacon := &types.BeaconState{ExecutionScripts: []types.ExecutionScript{
		{Code: counterScript()},
		{Code: identityScript(4)},
	}}
	state := &types.ShardState{ExecEnvStates: []types.StateRoot{counterRoot(0), counterRoot(7)}}

	require.NoError(t, vm.ProcessShardBlock(ctx, state, beacon, nil))
	assert.Equal(t, counterRoot(0), state.ExecEnvStates[0])

	blocks := []types.ShardBlock{
		{Env: 0},
		{Env: 1, Data: types.ShardBlockBody{Data: []byte{0xde, 0xad, 0xbe, 0xef}}},
		{Env: 0},
	}
	require.NoError(t, vm.ProcessShardBlocks(ctx, state, beacon, blocks))
	assert.Equal(t, counterRoot(2), state.ExecEnvStates[0])
	assert.Equal(t, counterRoot(7), state.ExecEnvStates[1])
}

func TestProcessShardBlockFailureLeavesState(t *testing.T) {
	vm := newVM(t)
	ctx := context.Background()

	beacon := &types.BeaconState{ExecutionScripts: []types.ExecutionScript{{Code: identityScript(4)}}}
	state := &types.ShardState{ExecEnvStates: []types.StateRoot{counterRoot(3)}}
	before := state.Clone()

	err := vm.ProcessShardBlock(ctx, state, beacon, &types.ShardBlock{Env: 0, Data: types.ShardBlockBody{Data: []byte{1}}})
	var trap *types.TrapError
	require.ErrorAs(t, err, &trap)
	assert.Equal(t, before, state)

	err = vm.ProcessShardBlock(ctx, state, beacon, &types.ShardBlock{Env: 1})
	var unknown *types.UnknownEnvironmentError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint64(1), unknown.Env)
	assert.Equal(t, before, state)

	blocks := []types.ShardBlock{{Env: 0, Data: types.ShardBlockBody{Data: make([]byte, 4)}}, {Env: 5}}
	err = vm.ProcessShardBlocks(ctx, state, beacon, blocks)
	require.ErrorContains(t, err, "shard block 1")
}

func TestConcurrentExecution(t *testing.T) {
	vm := newVM(t)
	ctx := context.Background()
	code := counterScript()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	roots := make([]types.StateRoot, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := vm.ExecuteCode(ctx, code, counterRoot(uint32(i)), nil)
			errs[i] = err
			roots[i] = result.PostState
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, counterRoot(uint32(i)+1), roots[i])
	}
	assert.Equal(t, uint64(1), vm.GetMetrics().Elements)
}

func TestStoreCode(t *testing.T) {
	ctx := context.Background()
	vm, err := NewVM(ctx, types.DefaultVMConfig(), zerolog.Nop(), WithCache(cache.New(nil)))
	require.NoError(t, err)
	defer vm.Close(ctx)

	code := counterScript()
	checksum, err := vm.StoreCode(ctx, code)
	require.NoError(t, err)

	stored, err := vm.GetCode(checksum)
	require.NoError(t, err)
	assert.Equal(t, code, stored)

	vm.Pin(checksum)
	removed, err := vm.RemoveCode(ctx, checksum)
	require.NoError(t, err)
	assert.False(t, removed)

	vm.Unpin(checksum)
	removed, err = vm.RemoveCode(ctx, checksum)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = vm.GetCode(checksum)
	require.Error(t, err)

	for _, rejected := range [][]byte{newGuest().Bytes(), []byte("\x00asm garbage")} {
		_, err = vm.StoreCode(ctx, rejected)
		var loadErr *types.LoadError
		require.ErrorAs(t, err, &loadErr)

		_, err = vm.GetCode(cache.Checksum(rejected))
		require.Error(t, err)
	}
	assert.Equal(t, uint64(0), vm.GetMetrics().Elements)
}

func TestRemoveCodeDuringExecution(t *testing.T) {
	vm := newVM(t)
	ctx := context.Background()
	code := counterScript()
	checksum := cache.Checksum(code)

	var wg sync.WaitGroup
	errs := make(chan error, 8*20)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := vm.ExecuteCode(ctx, code, counterRoot(0), nil)
				errs <- err
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for removing := true; removing; {
		select {
		case <-done:
			removing = false
		default:
			_, err := vm.RemoveCode(ctx, checksum)
			require.NoError(t, err)
		}
	}
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestNewVMRejectsBadConfig(t *testing.T) {
	cfg := types.DefaultVMConfig()
	cfg.MemoryLimitPages = 70000
	_, err := NewVM(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
