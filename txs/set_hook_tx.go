// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/hookvm/config"
)

var (
	_ UnsignedTx = (*SetHookTx)(nil)

	errNilTx        = errors.New("nil tx")
	errEmptyAccount = errors.New("empty account address")
	errCodeTooLarge = errors.New("hook code too large")
)

// SetHookTx installs, replaces or deletes the hook owned by [Account].
// Empty code deletes the installed hook; empty code with no installed hook
// purges any leftover hook state.
type SetHookTx struct {
	// Account owns the hook.
	Account ids.ShortID `serialize:"true" json:"account"`
	// Code is the guest module to install. Empty means delete.
	Code []byte `serialize:"true" json:"code"`
	// TriggerMask selects the transaction types that fire the hook: bit i
	// covers transaction type i.
	TriggerMask uint64 `serialize:"true" json:"triggerMask"`
}

func (tx *SetHookTx) SyntacticVerify(cfg config.Config) error {
	switch {
	case tx == nil:
		return errNilTx
	case tx.Account == ids.ShortEmpty:
		return errEmptyAccount
	case uint64(len(tx.Code)) > uint64(cfg.MaxCodeSize):
		return fmt.Errorf("%w: %d > %d bytes", errCodeTooLarge, len(tx.Code), cfg.MaxCodeSize)
	}
	return nil
}

func (tx *SetHookTx) Visit(visitor Visitor) error {
	return visitor.SetHookTx(tx)
}
