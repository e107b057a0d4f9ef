// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/luxfi/database"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/hookvm/state"
	"github.com/luxfi/hookvm/txs"
)

var (
	_ txs.Visitor = (*Executor)(nil)

	errHooksDisabled = errors.New("hooks are disabled")
)

// Executor applies transactions against [View]. The view is expected to be
// an overlay the caller commits on success and discards on error, so the
// executor is free to mutate before a later step fails.
type Executor struct {
	*Backend
	View state.View
}

// SetHookTx installs, replaces or deletes [tx.Account]'s hook.
//
// The hook's code storage charges codeReserveUnits(code) owner-count units.
// On replace the old hook is removed first, the unit delta is checked
// against the account balance, and the new hook carries the old hook's
// state counts forward. Deleting leaves the hook's state entries (and
// their charge) in place; a follow-up SetHookTx with empty code purges
// them.
func (e *Executor) SetHookTx(tx *txs.SetHookTx) error {
	if !e.Config.HooksEnabled {
		return fmt.Errorf("%w: %s", state.ErrMalformed, errHooksDisabled)
	}
	if err := tx.SyntacticVerify(e.Config); err != nil {
		return fmt.Errorf("%w: %s", state.ErrMalformed, err)
	}

	owner := tx.Account
	account, err := state.GetAccount(e.View, owner)
	if err != nil {
		return fmt.Errorf("%w: no account for %s: %s", state.ErrInternal, owner, err)
	}

	oldHook, err := state.GetHook(e.View, owner)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		oldHook = nil
	default:
		return err
	}

	// Empty code with nothing installed purges leftover state entries.
	if len(tx.Code) == 0 && oldHook == nil {
		purged, err := state.NewStore(e.View, e.Log).DestroyAll(owner)
		if err != nil {
			return err
		}
		e.Log.Debug("purged hook state",
			"account", owner,
			"purged", purged,
		)
		return nil
	}

	hookKey := state.HookKey(owner)

	// Remove any existing hook before checking the reserve: the removal
	// may free the units the new code needs.
	var prevUnits uint64
	if oldHook != nil {
		prevUnits = state.CodeReserveUnits(len(oldHook.Code), oldHook.DataMaxSize)
		if err := e.View.DirRemove(owner, hookKey); err != nil {
			return fmt.Errorf("%w: failed to remove %s from %s's directory: %s", state.ErrBadLedger, hookKey, owner, err)
		}
		if err := e.View.Erase(hookKey); err != nil {
			return err
		}
	}

	newUnits := state.CodeReserveUnits(len(tx.Code), e.Config.MaxStateDataSize)
	ownerCount, err := safemath.Add(account.OwnerCount, newUnits)
	if err != nil {
		return fmt.Errorf("%w: owner count overflow for %s: %s", state.ErrInternal, owner, err)
	}
	ownerCount, err = safemath.Sub(ownerCount, prevUnits)
	if err != nil {
		e.Log.Warn("owner count below released units",
			"account", owner,
			"ownerCount", account.OwnerCount,
			"released", prevUnits,
		)
		ownerCount = 0
	}

	if reserve := e.View.AccountReserve(ownerCount); account.Balance < reserve {
		return fmt.Errorf("%w: account %s holds %d, needs %d", state.ErrInsufficientReserve, owner, account.Balance, reserve)
	}

	// Empty code deletes: the old hook is already removed.
	if len(tx.Code) == 0 {
		e.Log.Debug("deleted hook",
			"account", owner,
			"releasedUnits", prevUnits,
		)
		return e.setOwnerCount(account, ownerCount)
	}

	newHook := &state.Hook{
		Owner:        owner,
		Code:         slices.Clone(tx.Code),
		TriggerMask:  tx.TriggerMask,
		DataMaxSize:  e.Config.MaxStateDataSize,
		ReserveCount: 0,
		StateCount:   0,
	}
	if oldHook != nil {
		// State entries survive a replace; the counts follow them.
		newHook.StateCount = oldHook.StateCount
		newHook.ReserveCount = state.StateReserveUnits(oldHook.StateCount)
	}

	if err := e.View.Insert(hookKey, newHook); err != nil {
		return err
	}
	if err := e.View.DirAdd(owner, hookKey); err != nil {
		return err
	}
	if err := e.setOwnerCount(account, ownerCount); err != nil {
		return err
	}

	e.Log.Debug("installed hook",
		"account", owner,
		"codeSize", len(tx.Code),
		"codeUnits", newUnits,
		"replaced", oldHook != nil,
	)
	return nil
}

func (e *Executor) setOwnerCount(account *state.Account, ownerCount uint64) error {
	if account.OwnerCount == ownerCount {
		return nil
	}
	updated := *account
	updated.OwnerCount = ownerCount
	return e.View.Update(state.AccountKey(account.Address), &updated)
}
