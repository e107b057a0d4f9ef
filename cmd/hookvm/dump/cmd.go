// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dump

import (
	"errors"
	"log"

	"github.com/spf13/cobra"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/hookvm"
	vmconfig "github.com/luxfi/hookvm/config"
	"github.com/luxfi/hookvm/state"
	"github.com/luxfi/ids"
	luxlog "github.com/luxfi/log"
	"github.com/luxfi/utils"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "dump",
		Short: "Prints an account, its hook, and its hook state",
		RunE:  dumpFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func dumpFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	db, err := badgerdb.New(config.DB, nil, "", nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("closing database: %s\n", err)
		}
	}()

	f := hookvm.Factory{Config: vmconfig.DefaultConfig()}
	vm, err := f.New(luxlog.NewLogger("hookvm"))
	if err != nil {
		return err
	}
	if err := vm.Initialize(db); err != nil {
		return err
	}
	defer func() {
		if err := vm.Shutdown(c.Context()); err != nil {
			log.Printf("shutting down: %s\n", err)
		}
	}()

	ledger := vm.State()
	account, err := state.GetAccount(ledger, config.Address)
	switch {
	case errors.Is(err, database.ErrNotFound):
		log.Printf("account %s does not exist\n", config.Address)
		return nil
	case err != nil:
		return err
	}
	log.Printf("account %s balance=%d ownerCount=%d reserve=%d\n",
		account.Address,
		account.Balance,
		account.OwnerCount,
		ledger.AccountReserve(account.OwnerCount),
	)

	it := ledger.DirIterator(config.Address)
	defer it.Release()

	var keys []ids.ID
	for it.Next() {
		key, err := ids.ToID(it.Key())
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	if err := it.Error(); err != nil {
		return err
	}
	utils.Sort(keys)

	for _, key := range keys {
		entry, err := ledger.Peek(key)
		if err != nil {
			return err
		}
		switch e := entry.(type) {
		case *state.Hook:
			log.Printf("hook codeSize=%d triggerMask=%#x stateCount=%d dataMaxSize=%d\n",
				len(e.Code),
				e.TriggerMask,
				e.StateCount,
				e.DataMaxSize,
			)
		case *state.HookState:
			log.Printf("state %s = %#x\n", e.Key, e.Data)
		default:
			log.Printf("%s entry %s\n", entry.Kind(), key)
		}
	}
	return nil
}
