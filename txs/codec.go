// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const CodecVersion = 0

// Codec serializes transactions through the [UnsignedTx] interface.
var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&SetHookTx{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

// Parse returns the transaction described by [bytes].
func Parse(bytes []byte) (UnsignedTx, error) {
	var tx UnsignedTx
	if _, err := Codec.Unmarshal(bytes, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Bytes returns the serialized form of [tx].
func Bytes(tx UnsignedTx) ([]byte, error) {
	return Codec.Marshal(CodecVersion, &tx)
}
