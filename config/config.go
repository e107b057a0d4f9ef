// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"time"
)

var (
	errZeroDataMaxSize  = errors.New("max state data size must be positive")
	errZeroReserve      = errors.New("incremental reserve must be positive")
	errNoExecutionLimit = errors.New("max execution time must be positive")
)

// Config contains all the foundational parameters of the hook engine
type Config struct {
	// Whether hook installation and execution are enabled
	HooksEnabled bool

	// Largest value, in bytes, a single hook state entry may hold. Stamped
	// into each hook at install time and fixed until the hook is replaced.
	MaxStateDataSize uint32

	// Largest hook bytecode accepted by the installer
	MaxCodeSize uint32

	// Reserve an account must hold with zero owned objects
	BaseReserve uint64

	// Additional reserve required per owner-count unit
	IncrementalReserve uint64

	// Maximum entries a single account's owner directory accepts.
	// Zero means unlimited.
	MaxOwnedEntries uint64

	// Wall-clock budget for one guest invocation
	MaxExecutionTime time.Duration

	// Number of guest linear memory pages (64 KiB each) an instance may grow to
	MaxGuestPages uint32

	// Number of ledger entries held in the read cache
	EntryCacheSize int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		HooksEnabled:       true,
		MaxStateDataSize:   128,
		MaxCodeSize:        64 * 1024,
		BaseReserve:        10_000_000,
		IncrementalReserve: 2_000_000,
		MaxOwnedEntries:    0,
		MaxExecutionTime:   250 * time.Millisecond,
		MaxGuestPages:      16,
		EntryCacheSize:     2048,
	}
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	switch {
	case c.MaxStateDataSize == 0:
		return errZeroDataMaxSize
	case c.IncrementalReserve == 0:
		return errZeroReserve
	case c.MaxExecutionTime <= 0:
		return errNoExecutionLimit
	}
	if c.MaxGuestPages == 0 {
		c.MaxGuestPages = 16
	}
	if c.EntryCacheSize <= 0 {
		c.EntryCacheSize = 2048
	}
	return nil
}
