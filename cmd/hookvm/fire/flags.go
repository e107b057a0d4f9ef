// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fire

import (
	"github.com/spf13/pflag"

	"github.com/luxfi/ids"
)

const (
	DBKey      = "db"
	AddressKey = "address"
	TxTypeKey  = "tx-type"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(DBKey, "hookvm-db", "Directory to store the ledger in")
	flags.String(AddressKey, "", "Account whose hook to fire (required)")
	flags.Uint8(TxTypeKey, 0, "Transaction type to fire the hook with")
}

type Config struct {
	DB      string
	Address ids.ShortID
	TxType  uint8
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

	txType, err := flags.GetUint8(TxTypeKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		DB:      db,
		Address: addr,
		TxType:  txType,
	}, nil
}
