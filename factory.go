// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hookvm

import (
	"github.com/luxfi/log"

	"github.com/luxfi/hookvm/config"
)

// Factory creates VM instances from a configuration.
type Factory struct {
	config.Config
}

// New returns a VM built from the factory's configuration.
func (f *Factory) New(logger log.Logger) (*VM, error) {
	if err := f.Config.Validate(); err != nil {
		return nil, err
	}
	return &VM{
		Config: f.Config,
		log:    logger,
	}, nil
}
