// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package executor applies transactions to the ledger. Its only
// transaction today is SetHook: install, replace or delete an account's
// hook, or purge leftover hook state.
package executor

import (
	"github.com/luxfi/log"

	"github.com/luxfi/hookvm/config"
)

type Backend struct {
	Config config.Config
	Log    log.Logger
}
