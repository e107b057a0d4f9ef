// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/hookvm/config"
)

// UnsignedTx is an unsigned hookvm transaction.
type UnsignedTx interface {
	// SyntacticVerify validates the transaction's fields without touching
	// ledger state.
	SyntacticVerify(cfg config.Config) error

	// Visit dispatches on the transaction's concrete type.
	Visit(visitor Visitor) error
}

// Visitor implements one method per transaction type.
type Visitor interface {
	SetHookTx(tx *SetHookTx) error
}
