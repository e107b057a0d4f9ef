// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/hookvm/config"
	"github.com/luxfi/hookvm/result"
	"github.com/luxfi/hookvm/sandbox/sandboxtest"
	"github.com/luxfi/hookvm/state"
)

// Import indices of the host functions, in the order the invocation binds
// them.
const (
	fnOutputDebug = iota
	fnSetState
	fnGetState
	fnAccept
	fnReject
	fnRollback
)

func hookImports() []sandboxtest.Import {
	return []sandboxtest.Import{
		{Name: "output_debug", NumParams: 2},
		{Name: "set_state", NumParams: 3},
		{Name: "get_state", NumParams: 3},
		{Name: "accept", NumParams: 3},
		{Name: "reject", NumParams: 3},
		{Name: "rollback", NumParams: 3},
	}
}

// writeThenExitGuest stages value under key, then exits through fn with the
// given code and reason.
func writeThenExitGuest(fn int, code int32, key ids.ID, value, reason []byte) []byte {
	data := append([]byte{}, key[:]...)
	data = append(data, value...)
	data = append(data, reason...)

	reasonPtr := 0
	if len(reason) > 0 {
		reasonPtr = ids.IDLen + len(value)
	}
	return sandboxtest.Module(hookImports(), data,
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(ids.IDLen),
		sandboxtest.I32Const(int32(len(value))),
		sandboxtest.Call(fnSetState),
		sandboxtest.Drop(),
		sandboxtest.I32Const(code),
		sandboxtest.I32Const(int32(reasonPtr)),
		sandboxtest.I32Const(int32(len(reason))),
		sandboxtest.Call(fn),
	)
}

// readEchoGuest reads key's value into scratch memory and accepts with the
// value as its reason, so the test can observe what the guest read.
func readEchoGuest(key ids.ID, valueLen int) []byte {
	return sandboxtest.Module(hookImports(), key[:],
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(64),
		sandboxtest.I32Const(128),
		sandboxtest.Call(fnGetState),
		sandboxtest.Drop(),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(64),
		sandboxtest.I32Const(int32(valueLen)),
		sandboxtest.Call(fnAccept),
	)
}

func newTestEngine(t *testing.T, cfg config.Config) *Engine {
	require := require.New(t)

	engine, err := New(cfg, log.NewNoOpLogger(), metric.NewNoOpRegistry())
	require.NoError(err)
	t.Cleanup(func() {
		require.NoError(engine.Close(context.Background()))
	})
	return engine
}

// seedHook builds a ledger holding a funded account and the given guest
// installed as its hook, the shape the installer leaves behind.
func seedHook(t *testing.T, code []byte) (*state.Ledger, ids.ShortID, *state.Hook) {
	require := require.New(t)

	ledger, err := state.NewLedger(memdb.New(), config.DefaultConfig(), log.NewNoOpLogger(), metric.NewNoOpRegistry())
	require.NoError(err)

	owner := ids.GenerateTestShortID()
	hk := &state.Hook{
		Owner:       owner,
		Code:        code,
		TriggerMask: 1,
		DataMaxSize: 128,
	}
	require.NoError(ledger.Insert(state.AccountKey(owner), &state.Account{
		Address: owner,
		Balance: 1_000_000_000,
	}))
	require.NoError(ledger.Insert(state.HookKey(owner), hk))
	require.NoError(ledger.DirAdd(owner, state.HookKey(owner)))

	return ledger, owner, hk
}

func TestEngineAccept(t *testing.T) {
	require := require.New(t)

	key := ids.GenerateTestID()
	ledger, owner, hk := seedHook(t, writeThenExitGuest(fnAccept, 7, key, []byte("value"), nil))
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.Success,
		ExitType: ExitAccept,
		ExitCode: 7,
	}, outcome)

	store := state.NewStore(ledger, log.NewNoOpLogger())
	value, err := store.GetState(owner, key)
	require.NoError(err)
	require.Equal([]byte("value"), value)
}

func TestEngineRejectPersists(t *testing.T) {
	require := require.New(t)

	key := ids.GenerateTestID()
	ledger, owner, hk := seedHook(t, writeThenExitGuest(fnReject, 3, key, []byte("value"), []byte("denied")))
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.NotAuthorized,
		ExitType: ExitReject,
		ExitCode: 3,
		Reason:   "denied",
	}, outcome)

	// A rejection still persists what the guest staged before it.
	store := state.NewStore(ledger, log.NewNoOpLogger())
	value, err := store.GetState(owner, key)
	require.NoError(err)
	require.Equal([]byte("value"), value)
}

func TestEngineRollbackDiscards(t *testing.T) {
	require := require.New(t)

	key := ids.GenerateTestID()
	ledger, owner, hk := seedHook(t, writeThenExitGuest(fnRollback, 9, key, []byte("value"), []byte("abort")))
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.NotAuthorized,
		ExitType: ExitRollback,
		ExitCode: 9,
		Reason:   "abort",
	}, outcome)

	store := state.NewStore(ledger, log.NewNoOpLogger())
	_, err := store.GetState(owner, key)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestEngineReturnWithoutExit(t *testing.T) {
	require := require.New(t)

	guest := sandboxtest.Module(hookImports(), nil,
		sandboxtest.I64Const(42),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.NotAuthorized,
		ExitType: ExitRollback,
		ExitCode: DefaultExitCode,
	}, outcome)
}

func TestEngineTrap(t *testing.T) {
	require := require.New(t)

	guest := sandboxtest.Module(hookImports(), nil,
		sandboxtest.Unreachable(),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.NotAuthorized,
		ExitType: ExitRollback,
		ExitCode: DefaultExitCode,
	}, outcome)
}

func TestEngineDeadline(t *testing.T) {
	require := require.New(t)

	key := ids.GenerateTestID()
	data := append([]byte{}, key[:]...)
	data = append(data, "value"...)
	guest := sandboxtest.Module(hookImports(), data,
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(ids.IDLen),
		sandboxtest.I32Const(5),
		sandboxtest.Call(fnSetState),
		sandboxtest.Drop(),
		sandboxtest.LoopForever(),
		sandboxtest.I64Const(0),
	)
	ledger, owner, hk := seedHook(t, guest)

	cfg := config.DefaultConfig()
	cfg.MaxExecutionTime = 50 * time.Millisecond
	engine := newTestEngine(t, cfg)

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.NotAuthorized,
		ExitType: ExitRollback,
		ExitCode: DefaultExitCode,
	}, outcome)

	// The write staged before the spin must not survive.
	store := state.NewStore(ledger, log.NewNoOpLogger())
	_, err := store.GetState(owner, key)
	require.ErrorIs(err, database.ErrNotFound)
}

func TestEngineMalformedCode(t *testing.T) {
	require := require.New(t)

	ledger, owner, hk := seedHook(t, []byte("not a wasm module"))
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.Malformed,
		ExitType: ExitRollback,
		ExitCode: DefaultExitCode,
	}, outcome)
}

func TestEngineMissingEntryPoint(t *testing.T) {
	require := require.New(t)

	guest := sandboxtest.ModuleExporting("start", hookImports(), nil,
		sandboxtest.I64Const(0),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.Malformed,
		ExitType: ExitRollback,
		ExitCode: DefaultExitCode,
	}, outcome)
}

func TestEngineReadYourWrite(t *testing.T) {
	require := require.New(t)

	// Write, read the write back, and accept with the read bytes as the
	// reason.
	key := ids.GenerateTestID()
	data := append([]byte{}, key[:]...)
	data = append(data, "fresh"...)
	guest := sandboxtest.Module(hookImports(), data,
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(ids.IDLen),
		sandboxtest.I32Const(5),
		sandboxtest.Call(fnSetState),
		sandboxtest.Drop(),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(64),
		sandboxtest.I32Const(128),
		sandboxtest.Call(fnGetState),
		sandboxtest.Drop(),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(64),
		sandboxtest.I32Const(5),
		sandboxtest.Call(fnAccept),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(result.Success, outcome.Result)
	require.Equal("fresh", outcome.Reason)
}

func TestEngineReadsExistingState(t *testing.T) {
	require := require.New(t)

	key := ids.GenerateTestID()
	ledger, owner, hk := seedHook(t, readEchoGuest(key, 6))
	store := state.NewStore(ledger, log.NewNoOpLogger())
	require.NoError(store.SetState(owner, key, []byte("seeded")))

	engine := newTestEngine(t, config.DefaultConfig())
	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(result.Success, outcome.Result)
	require.Equal("seeded", outcome.Reason)
}

func TestEngineStatusReachesGuest(t *testing.T) {
	require := require.New(t)

	// Read a key that does not exist and accept with the returned status as
	// the exit code.
	key := ids.GenerateTestID()
	guest := sandboxtest.Module(hookImports(), key[:],
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(64),
		sandboxtest.I32Const(128),
		sandboxtest.Call(fnGetState),
		sandboxtest.I32WrapI64(),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(0),
		sandboxtest.Call(fnAccept),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(result.Success, outcome.Result)
	require.Equal(StatusDoesntExist, outcome.ExitCode)
}

func TestEngineDebugOutput(t *testing.T) {
	require := require.New(t)

	// output_debug returns the number of bytes forwarded; echo it through
	// the exit code.
	guest := sandboxtest.Module(hookImports(), []byte("hello"),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(5),
		sandboxtest.Call(fnOutputDebug),
		sandboxtest.I32WrapI64(),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(0),
		sandboxtest.Call(fnAccept),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(result.Success, outcome.Result)
	require.Equal(int64(5), outcome.ExitCode)
}

func TestEngineMemorylessGuest(t *testing.T) {
	require := require.New(t)

	guest := sandboxtest.ModuleNoMemory(hookImports(),
		sandboxtest.I32Const(5),
		sandboxtest.I32Const(0),
		sandboxtest.I32Const(0),
		sandboxtest.Call(fnAccept),
	)
	ledger, owner, hk := seedHook(t, guest)
	engine := newTestEngine(t, config.DefaultConfig())

	outcome := engine.Apply(context.Background(), ledger, owner, hk)
	require.Equal(&Outcome{
		Result:   result.Success,
		ExitType: ExitAccept,
		ExitCode: 5,
	}, outcome)
}
