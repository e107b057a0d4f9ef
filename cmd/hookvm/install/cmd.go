// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package install

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/hookvm"
	vmconfig "github.com/luxfi/hookvm/config"
	"github.com/luxfi/hookvm/result"
	"github.com/luxfi/hookvm/txs"
	luxlog "github.com/luxfi/log"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "install",
		Short: "Installs a hook on an account",
		RunE:  installFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func installFunc(c *cobra.Command, args []string) error {
	flags := c.Flags()
	config, err := ParseFlags(flags, args)
	if err != nil {
		return err
	}

	var code []byte
	if config.Code != "" {
		code, err = os.ReadFile(config.Code)
		if err != nil {
			return err
		}
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

	if _, err := vm.EnsureAccount(config.Address, config.Balance); err != nil {
		return err
	}

	err = vm.ApplyTx(&txs.SetHookTx{
		Account:     config.Address,
		Code:        code,
		TriggerMask: config.TriggerMask,
	})
	if err != nil {
		log.Printf("set hook failed with %s: %s\n", result.ForError(err), err)
		return err
	}

	if len(code) > 0 {
		log.Printf("installed %d byte hook on %s\n", len(code), config.Address)
	} else {
		log.Printf("removed hook on %s\n", config.Address)
	}
	return nil
}
