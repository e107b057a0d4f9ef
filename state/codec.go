// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const CodecVersion = 0

// Codec serializes ledger entries. Entries are stored as the [Entry]
// interface so a single prefix space holds every kind.
var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&Account{}),
		lc.RegisterType(&Hook{}),
		lc.RegisterType(&HookState{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

func marshalEntry(entry Entry) ([]byte, error) {
	return Codec.Marshal(CodecVersion, &entry)
}

func unmarshalEntry(bytes []byte) (Entry, error) {
	var entry Entry
	if _, err := Codec.Unmarshal(bytes, &entry); err != nil {
		return nil, err
	}
	return entry, nil
}
