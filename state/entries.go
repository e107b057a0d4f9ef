// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/luxfi/ids"
)

// Kind identifies the concrete type of a ledger entry. Directory walks use it
// to decide which owned objects an operation may touch.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindAccount
	KindHook
	KindHookState
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "Account"
	case KindHook:
		return "Hook"
	case KindHookState:
		return "HookState"
	default:
		return "Unknown"
	}
}

// Entry is a keyed ledger object. Concrete entries are registered with the
// package codec and stored under the key their kind's derivation function
// produces.
type Entry interface {
	Kind() Kind
}

var (
	_ Entry = (*Account)(nil)
	_ Entry = (*Hook)(nil)
	_ Entry = (*HookState)(nil)
)

// Account is the root object of a ledger account. Its OwnerCount prices the
// reserve: every owned object batch charges one unit.
type Account struct {
	Address    ids.ShortID `serialize:"true" json:"address"`
	Balance    uint64      `serialize:"true" json:"balance"`
	OwnerCount uint64      `serialize:"true" json:"ownerCount"`
	Sequence   uint64      `serialize:"true" json:"sequence"`
}

func (*Account) Kind() Kind {
	return KindAccount
}

// Hook is an account's installed guest program. At most one exists per
// account. StateCount tracks live HookState entries; ReserveCount tracks the
// owner-count units those entries currently cost. DataMaxSize is fixed at
// install time and only changes when the hook is replaced.
type Hook struct {
	Owner        ids.ShortID `serialize:"true" json:"owner"`
	Code         []byte      `serialize:"true" json:"code"`
	TriggerMask  uint64      `serialize:"true" json:"triggerMask"`
	StateCount   uint64      `serialize:"true" json:"stateCount"`
	ReserveCount uint64      `serialize:"true" json:"reserveCount"`
	DataMaxSize  uint32      `serialize:"true" json:"dataMaxSize"`
}

func (*Hook) Kind() Kind {
	return KindHook
}

// ShouldExecute reports whether the hook fires for the given transaction
// type. Bit txType of the trigger mask must be set.
func (h *Hook) ShouldExecute(txType uint8) bool {
	return h.TriggerMask&(1<<uint64(txType)) != 0
}

// HookState is one persistent key-value record owned by a hook's account.
// It exists iff the last write was non-empty and not since cleared.
type HookState struct {
	Owner ids.ShortID `serialize:"true" json:"owner"`
	Key   ids.ID      `serialize:"true" json:"key"`
	Data  []byte      `serialize:"true" json:"data"`
}

func (*HookState) Kind() Kind {
	return KindHookState
}
