// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// The hookvm command manages hooks on a local ledger. It installs guest
// programs on accounts, fires them against transaction types, and dumps the
// state they persist.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/hookvm/cmd/hookvm/dump"
	"github.com/luxfi/hookvm/cmd/hookvm/fire"
	"github.com/luxfi/hookvm/cmd/hookvm/install"
)

func main() {
	root := &cobra.Command{
		Use:   "hookvm",
		Short: "Manages hooks on a local ledger",
	}
	root.AddCommand(
		install.Command(),
		fire.Command(),
		dump.Command(),
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
