// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hookvm wires the hook engine to a persistent ledger: accounts
// install hooks with SetHook transactions, and the VM fires a hook when a
// transaction of a type its trigger mask covers touches the owning
// account.
package hookvm

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils/wrappers"

	"github.com/luxfi/hookvm/config"
	"github.com/luxfi/hookvm/hook"
	"github.com/luxfi/hookvm/state"
	"github.com/luxfi/hookvm/txs"
	"github.com/luxfi/hookvm/txs/executor"
)

// VM runs the hook engine over a persistent ledger.
type VM struct {
	Config config.Config

	log        log.Logger
	registerer metric.Registry
	ledger     *state.Ledger
	engine     *hook.Engine
}

// Initialize opens the ledger over [db] and builds the execution engine.
func (vm *VM) Initialize(db database.Database) error {
	vm.registerer = metric.NewRegistry()

	ledger, err := state.NewLedger(db, vm.Config, vm.log, vm.registerer)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	engine, err := hook.New(vm.Config, vm.log, vm.registerer)
	if err != nil {
		_ = ledger.Close()
		return fmt.Errorf("failed to build hook engine: %w", err)
	}

	vm.ledger = ledger
	vm.engine = engine
	return nil
}

// Shutdown closes the engine and the ledger.
func (vm *VM) Shutdown(ctx context.Context) error {
	errs := wrappers.Errs{}
	if vm.engine != nil {
		errs.Add(vm.engine.Close(ctx))
	}
	if vm.ledger != nil {
		errs.Add(vm.ledger.Close())
	}
	return errs.Err
}

// State exposes the ledger for reads.
func (vm *VM) State() *state.Ledger {
	return vm.ledger
}

// EnsureAccount returns [addr]'s account, creating it with [balance] when
// it does not exist yet.
func (vm *VM) EnsureAccount(addr ids.ShortID, balance uint64) (*state.Account, error) {
	account, err := state.GetAccount(vm.ledger, addr)
	switch {
	case err == nil:
		return account, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	account = &state.Account{
		Address: addr,
		Balance: balance,
	}
	if err := vm.ledger.Insert(state.AccountKey(addr), account); err != nil {
		vm.ledger.Abort()
		return nil, err
	}
	if err := vm.ledger.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

// ApplyTx verifies and applies [tx]. The ledger overlay is committed on
// success and discarded on failure, so a failing transaction has no ledger
// effect.
func (vm *VM) ApplyTx(tx txs.UnsignedTx) error {
	exec := &executor.Executor{
		Backend: &executor.Backend{
			Config: vm.Config,
			Log:    vm.log,
		},
		View: vm.ledger,
	}
	if err := tx.Visit(exec); err != nil {
		vm.ledger.Abort()
		return err
	}
	return vm.ledger.Commit()
}

// Trigger fires [owner]'s hook for a transaction of [txType] and persists
// whatever the invocation committed. It returns nil when no hook is
// installed or the hook's trigger mask does not cover [txType].
func (vm *VM) Trigger(ctx context.Context, owner ids.ShortID, txType uint8) (*hook.Outcome, error) {
	hk, err := state.GetHook(vm.ledger, owner)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}

	if !hk.ShouldExecute(txType) {
		return nil, nil
	}

	outcome := vm.engine.Apply(ctx, vm.ledger, owner, hk)
	if err := vm.ledger.Commit(); err != nil {
		return nil, err
	}
	return outcome, nil
}
