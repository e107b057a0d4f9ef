// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fire

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/hookvm"
	vmconfig "github.com/luxfi/hookvm/config"
	luxlog "github.com/luxfi/log"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "fire",
		Short: "Fires the hook installed on an account",
		RunE:  fireFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func fireFunc(c *cobra.Command, args []string) error {
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

	outcome, err := vm.Trigger(c.Context(), config.Address, config.TxType)
	if err != nil {
		return err
	}
	if outcome == nil {
		log.Printf("no hook fired on %s for transaction type %d\n", config.Address, config.TxType)
		return nil
	}

	log.Printf("hook finished: result=%s exit=%s code=%d\n", outcome.Result, outcome.ExitType, outcome.ExitCode)
	if outcome.Reason != "" {
		log.Printf("reason: %q\n", outcome.Reason)
	}
	return nil
}
