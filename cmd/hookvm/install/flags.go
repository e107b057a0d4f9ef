// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package install

import (
	"math"

	"github.com/spf13/pflag"

	"github.com/luxfi/ids"
)

const (
	DBKey          = "db"
	AddressKey     = "address"
	CodeKey        = "code"
	TriggerMaskKey = "trigger-mask"
	BalanceKey     = "balance"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(DBKey, "hookvm-db", "Directory to store the ledger in")
	flags.String(AddressKey, "", "Account to install the hook on (required)")
	flags.String(CodeKey, "", "Path to the compiled hook; omit to delete the installed hook")
	flags.Uint64(TriggerMaskKey, math.MaxUint64, "Transaction type bitmask the hook fires on")
	flags.Uint64(BalanceKey, math.MaxUint64, "Balance to fund the account with if it does not exist")
}

type Config struct {
	DB          string
	Address     ids.ShortID
	Code        string
	TriggerMask uint64
	Balance     uint64
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	db, err := flags.GetString(DBKey)
	if err != nil {
		return nil, err
	}

	addrStr, err := flags.GetString(AddressKey)
	if err != nil {
		return nil, err
	}

	addr, err := ids.ShortFromString(addrStr)
	if err != nil {
		return nil, err
	}

	code, err := flags.GetString(CodeKey)
	if err != nil {
		return nil, err
	}

	triggerMask, err := flags.GetUint64(TriggerMaskKey)
	if err != nil {
		return nil, err
	}

	balance, err := flags.GetUint64(BalanceKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		DB:          db,
		Address:     addr,
		Code:        code,
		TriggerMask: triggerMask,
		Balance:     balance,
	}, nil
}
