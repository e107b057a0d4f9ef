// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"
)

// Key derivation tags. Each entry kind hashes into its own namespace so keys
// for different kinds never collide even for the same owner.
const (
	accountKeyTag byte = iota
	hookKeyTag
	hookStateKeyTag
)

// AccountKey returns the ledger key of addr's account root.
func AccountKey(addr ids.ShortID) ids.ID {
	return deriveKey(accountKeyTag, addr, nil)
}

// HookKey returns the ledger key of owner's hook. One hook exists per
// account, so the owner alone determines the key.
func HookKey(owner ids.ShortID) ids.ID {
	return deriveKey(hookKeyTag, owner, nil)
}

// HookStateKey returns the ledger key of the state entry owner stores under
// the 256-bit guest key.
func HookStateKey(owner ids.ShortID, key ids.ID) ids.ID {
	return deriveKey(hookStateKeyTag, owner, key[:])
}

func deriveKey(tag byte, owner ids.ShortID, extra []byte) ids.ID {
	preimage := make([]byte, 0, 1+len(owner)+len(extra))
	preimage = append(preimage, tag)
	preimage = append(preimage, owner[:]...)
	preimage = append(preimage, extra...)
	return hash.ComputeHash256Array(preimage)
}
