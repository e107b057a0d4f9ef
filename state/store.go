// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"slices"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	safemath "github.com/luxfi/math"
)

// stateBatchSize is the number of state entries one reserve unit covers. One
// unit prices stateBatchSize*DataMaxSize bytes, the most a full batch can
// hold.
const stateBatchSize = 5

// StateReserveUnits returns the owner-count units stateCount live entries
// cost.
func StateReserveUnits(stateCount uint64) uint64 {
	if stateCount == 0 {
		return 0
	}
	return (stateCount-1)/stateBatchSize + 1
}

// CodeReserveUnits returns the owner-count units a code blob costs: one unit
// per stateBatchSize*dataMaxSize bytes. dataMaxSize must be positive.
func CodeReserveUnits(codeLen int, dataMaxSize uint32) uint64 {
	if codeLen <= 0 {
		return 0
	}
	batchBytes := stateBatchSize * uint64(dataMaxSize)
	return (uint64(codeLen)-1)/batchBytes + 1
}

// GetAccount returns addr's account root, or database.ErrNotFound.
//
// The returned entry may be shared with the view's cache. Callers must treat
// it as read-only and copy before writing a modified version back.
func GetAccount(view View, addr ids.ShortID) (*Account, error) {
	entry, err := view.Peek(AccountKey(addr))
	if err != nil {
		return nil, err
	}
	account, ok := entry.(*Account)
	if !ok {
		return nil, fmt.Errorf("%w: entry for account %s has kind %s", ErrInternal, addr, entry.Kind())
	}
	return account, nil
}

// GetHook returns owner's installed hook, or database.ErrNotFound. The same
// read-only sharing contract as [GetAccount] applies.
func GetHook(view View, owner ids.ShortID) (*Hook, error) {
	entry, err := view.Peek(HookKey(owner))
	if err != nil {
		return nil, err
	}
	hook, ok := entry.(*Hook)
	if !ok {
		return nil, fmt.Errorf("%w: hook entry for %s has kind %s", ErrInternal, owner, entry.Kind())
	}
	return hook, nil
}

// Store persists hook state against a ledger view, keeping the owner
// directory, the per-hook counters and the account's owner-count charge in
// step with every entry it creates or removes.
type Store struct {
	view View
	log  log.Logger
}

func NewStore(view View, logger log.Logger) *Store {
	return &Store{
		view: view,
		log:  logger,
	}
}

// GetState returns the value owner stores under key, or
// database.ErrNotFound.
func (s *Store) GetState(owner ids.ShortID, key ids.ID) ([]byte, error) {
	stateKey := HookStateKey(owner, key)
	entry, err := s.view.Peek(stateKey)
	if err != nil {
		return nil, err
	}
	hookState, ok := entry.(*HookState)
	if !ok {
		return nil, fmt.Errorf("%w: entry at %s has kind %s, expected HookState", ErrInternal, stateKey, entry.Kind())
	}
	return hookState.Data, nil
}

// SetState writes value under (owner, key). An empty value deletes the entry;
// deleting an absent entry is a no-op success. The owner's account and hook
// must exist. Directory membership, StateCount, ReserveCount and the
// account's owner count move together: every precondition is checked before
// anything mutates.
func (s *Store) SetState(owner ids.ShortID, key ids.ID, value []byte) error {
	account, err := GetAccount(s.view, owner)
	if err != nil {
		return fmt.Errorf("%w: no account for %s: %s", ErrInternal, owner, err)
	}
	hook, err := GetHook(s.view, owner)
	if err != nil {
		return fmt.Errorf("%w: no hook for %s: %s", ErrInternal, owner, err)
	}

	if uint64(len(value)) > uint64(hook.DataMaxSize) {
		return fmt.Errorf("%w: %d bytes exceeds limit %d", ErrDataTooLarge, len(value), hook.DataMaxSize)
	}

	if len(value) == 0 {
		return s.deleteState(account, hook, key)
	}
	return s.putState(account, hook, key, value)
}

func (s *Store) deleteState(account *Account, hook *Hook, key ids.ID) error {
	owner := hook.Owner
	stateKey := HookStateKey(owner, key)

	if _, err := s.view.Peek(stateKey); err != nil {
		if err == database.ErrNotFound {
			// Removing a non-existent entry is defined as success.
			return nil
		}
		return err
	}

	if err := s.view.DirRemove(owner, stateKey); err != nil {
		return fmt.Errorf("%w: failed to remove %s from %s's directory: %s", ErrBadLedger, stateKey, owner, err)
	}
	if err := s.view.Erase(stateKey); err != nil {
		return err
	}

	newCount := hook.StateCount
	if newCount > 0 {
		newCount--
	}
	oldUnits := StateReserveUnits(hook.StateCount)
	newUnits := StateReserveUnits(newCount)
	if newUnits < oldUnits {
		// This removal emptied a batch; hand its unit back.
		updated := *account
		updated.OwnerCount, _ = safemath.Sub(account.OwnerCount, 1)
		if err := s.view.Update(AccountKey(owner), &updated); err != nil {
			return err
		}
	}

	updatedHook := *hook
	updatedHook.StateCount = newCount
	updatedHook.ReserveCount = newUnits
	return s.view.Update(HookKey(owner), &updatedHook)
}

func (s *Store) putState(account *Account, hook *Hook, key ids.ID, value []byte) error {
	owner := hook.Owner
	stateKey := HookStateKey(owner, key)

	newState := &HookState{
		Owner: owner,
		Key:   key,
		Data:  slices.Clone(value),
	}

	switch _, err := s.view.Peek(stateKey); err {
	case nil:
		// In-place replace; counts and directory untouched.
		return s.view.Update(stateKey, newState)
	case database.ErrNotFound:
	default:
		return err
	}

	newCount, err := safemath.Add(hook.StateCount, 1)
	if err != nil {
		return err
	}
	oldUnits := StateReserveUnits(hook.StateCount)
	newUnits := StateReserveUnits(newCount)

	newOwnerCount := account.OwnerCount
	if newUnits > oldUnits {
		// The previous batch is full; this entry needs a fresh unit.
		newOwnerCount, err = safemath.Add(account.OwnerCount, 1)
		if err != nil {
			return err
		}
		if reserve := s.view.AccountReserve(newOwnerCount); account.Balance < reserve {
			return fmt.Errorf("%w: account %s holds %d, needs %d", ErrInsufficientReserve, owner, account.Balance, reserve)
		}
	}

	// Directory first: a full directory must abort before any mutation.
	if err := s.view.DirAdd(owner, stateKey); err != nil {
		return err
	}
	if err := s.view.Insert(stateKey, newState); err != nil {
		return err
	}
	if newUnits > oldUnits {
		updated := *account
		updated.OwnerCount = newOwnerCount
		if err := s.view.Update(AccountKey(owner), &updated); err != nil {
			return err
		}
	}

	updatedHook := *hook
	updatedHook.StateCount = newCount
	updatedHook.ReserveCount = newUnits
	return s.view.Update(HookKey(owner), &updatedHook)
}

// DestroyAll erases every HookState entry owner's directory indexes, leaving
// entries of other kinds alone, and releases the owner-count units the purged
// entries were charged. It returns the number of entries purged. An empty or
// missing directory is a successful no-op.
func (s *Store) DestroyAll(owner ids.ShortID) (int, error) {
	// Collect targets before mutating: erasing while the iterator walks the
	// directory would pull its links out from under it.
	stateKeys, err := s.collectStateKeys(owner)
	if err != nil {
		return 0, err
	}

	for _, stateKey := range stateKeys {
		if err := s.view.DirRemove(owner, stateKey); err != nil {
			return 0, fmt.Errorf("%w: failed to remove %s from %s's directory: %s", ErrBadLedger, stateKey, owner, err)
		}
		if err := s.view.Erase(stateKey); err != nil {
			return 0, err
		}
	}

	purged := len(stateKeys)
	if purged == 0 {
		return 0, nil
	}

	release := StateReserveUnits(uint64(purged))
	account, err := GetAccount(s.view, owner)
	if err != nil {
		return 0, fmt.Errorf("%w: no account for %s: %s", ErrInternal, owner, err)
	}
	updated := *account
	updated.OwnerCount, err = safemath.Sub(account.OwnerCount, release)
	if err != nil {
		s.log.Warn("owner count below released units",
			"account", owner,
			"ownerCount", account.OwnerCount,
			"released", release,
		)
		updated.OwnerCount = 0
	}
	if err := s.view.Update(AccountKey(owner), &updated); err != nil {
		return 0, err
	}

	s.log.Debug("destroyed hook state",
		"account", owner,
		"purged", purged,
		"releasedUnits", release,
	)
	return purged, nil
}

func (s *Store) collectStateKeys(owner ids.ShortID) ([]ids.ID, error) {
	it := s.view.DirIterator(owner)
	defer it.Release()

	var stateKeys []ids.ID
	for it.Next() {
		key, err := ids.ToID(it.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: corrupt directory key for %s: %s", ErrInternal, owner, err)
		}
		entry, err := s.view.Peek(key)
		if err != nil {
			if err == database.ErrNotFound {
				return nil, fmt.Errorf("%w: directory of %s points at missing entry %s", ErrInternal, owner, key)
			}
			return nil, err
		}
		if entry.Kind() == KindHookState {
			stateKeys = append(stateKeys, key)
		}
	}
	return stateKeys, it.Error()
}
