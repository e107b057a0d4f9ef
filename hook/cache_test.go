// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/hookvm/config"
	"github.com/luxfi/hookvm/state"
)

// newTestCache builds a cache over a store whose ledger holds a funded
// account with an installed hook.
func newTestCache(t *testing.T, balance uint64) (*Cache, *state.Store, ids.ShortID) {
	require := require.New(t)

	ledger, err := state.NewLedger(memdb.New(), config.DefaultConfig(), log.NewNoOpLogger(), metric.NewNoOpRegistry())
	require.NoError(err)
	owner := ids.GenerateTestShortID()

	require.NoError(ledger.Insert(state.AccountKey(owner), &state.Account{
		Address: owner,
		Balance: balance,
	}))
	require.NoError(ledger.Insert(state.HookKey(owner), &state.Hook{
		Owner:       owner,
		Code:        []byte{0x00},
		TriggerMask: 1,
		DataMaxSize: 128,
	}))
	require.NoError(ledger.DirAdd(owner, state.HookKey(owner)))

	store := state.NewStore(ledger, log.NewNoOpLogger())
	return NewCache(store, owner, 128), store, owner
}

func TestCacheReadThrough(t *testing.T) {
	require := require.New(t)

	cache, store, owner := newTestCache(t, 1_000_000_000)
	key := ids.GenerateTestID()

	require.NoError(store.SetState(owner, key, []byte("stored")))

	value, err := cache.Get(key)
	require.NoError(err)
	require.Equal([]byte("stored"), value)

	// The first read is cached; a write that bypasses the cache must not
	// show through.
	require.NoError(store.SetState(owner, key, []byte("changed")))
	value, err = cache.Get(key)
	require.NoError(err)
	require.Equal([]byte("stored"), value)
}

func TestCacheMissesAreNotCached(t *testing.T) {
	require := require.New(t)

	cache, store, owner := newTestCache(t, 1_000_000_000)
	key := ids.GenerateTestID()

	_, err := cache.Get(key)
	require.ErrorIs(err, database.ErrNotFound)

	// The entry appearing later must be visible: the miss was not recorded.
	require.NoError(store.SetState(owner, key, []byte("late")))
	value, err := cache.Get(key)
	require.NoError(err)
	require.Equal([]byte("late"), value)
}

func TestCacheSetValidation(t *testing.T) {
	require := require.New(t)

	cache, _, _ := newTestCache(t, 1_000_000_000)
	key := ids.GenerateTestID()

	err := cache.Set(key, nil)
	require.ErrorIs(err, errEmptyValue)

	err = cache.Set(key, make([]byte, 129))
	require.ErrorIs(err, state.ErrDataTooLarge)

	require.Zero(cache.Staged())
}

func TestCacheStagedOrder(t *testing.T) {
	require := require.New(t)

	cache, store, owner := newTestCache(t, 1_000_000_000)
	key0 := ids.GenerateTestID()
	key1 := ids.GenerateTestID()

	require.NoError(cache.Set(key0, []byte("a")))
	require.NoError(cache.Set(key1, []byte("b")))

	// Rewriting a staged key keeps its original position and stages nothing
	// new.
	require.NoError(cache.Set(key0, []byte("c")))
	require.Equal([]ids.ID{key0, key1}, cache.staged)
	require.Equal(2, cache.Staged())

	// Reads see the staged values before any commit.
	value, err := cache.Get(key0)
	require.NoError(err)
	require.Equal([]byte("c"), value)

	require.NoError(cache.Commit())

	value, err = store.GetState(owner, key0)
	require.NoError(err)
	require.Equal([]byte("c"), value)

	value, err = store.GetState(owner, key1)
	require.NoError(err)
	require.Equal([]byte("b"), value)
}

func TestCacheCommitAttemptsEverything(t *testing.T) {
	require := require.New(t)

	// One unit of reserve: five entries fit, the sixth cannot be paid for.
	cache, store, owner := newTestCache(t, 12_000_000)

	existing := ids.GenerateTestID()
	require.NoError(store.SetState(owner, existing, []byte("old")))
	for i := 0; i < 4; i++ {
		require.NoError(store.SetState(owner, ids.GenerateTestID(), []byte{byte(i)}))
	}

	// The fresh key needs a second reserve unit and will fail at commit;
	// the in-place rewrite of the existing key must still land.
	fresh := ids.GenerateTestID()
	require.NoError(cache.Set(fresh, []byte("unpayable")))
	require.NoError(cache.Set(existing, []byte("new")))

	err := cache.Commit()
	require.ErrorIs(err, state.ErrInsufficientReserve)

	_, err = store.GetState(owner, fresh)
	require.ErrorIs(err, database.ErrNotFound)

	value, err := store.GetState(owner, existing)
	require.NoError(err)
	require.Equal([]byte("new"), value)
}
