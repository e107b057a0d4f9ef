// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectedErr error
	}{
		{
			name:   "default",
			modify: func(*Config) {},
		},
		{
			name:        "zero data max size",
			modify:      func(c *Config) { c.MaxStateDataSize = 0 },
			expectedErr: errZeroDataMaxSize,
		},
		{
			name:        "zero incremental reserve",
			modify:      func(c *Config) { c.IncrementalReserve = 0 },
			expectedErr: errZeroReserve,
		},
		{
			name:        "zero execution limit",
			modify:      func(c *Config) { c.MaxExecutionTime = 0 },
			expectedErr: errNoExecutionLimit,
		},
		{
			name:        "negative execution limit",
			modify:      func(c *Config) { c.MaxExecutionTime = -time.Second },
			expectedErr: errNoExecutionLimit,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestValidateFillsZeroedTunables(t *testing.T) {
	require := require.New(t)

	cfg := DefaultConfig()
	cfg.MaxGuestPages = 0
	cfg.EntryCacheSize = 0

	require.NoError(cfg.Validate())
	require.Equal(uint32(16), cfg.MaxGuestPages)
	require.Equal(2048, cfg.EntryCacheSize)
}
