// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

var (
	// ErrDataTooLarge is returned when a state value exceeds the owning
	// hook's DataMaxSize.
	ErrDataTooLarge = errors.New("hook state data too large")
	// ErrInsufficientReserve is returned when an account's balance does not
	// cover the reserve after an owner-count charge.
	ErrInsufficientReserve = errors.New("insufficient reserve")
	// ErrDirectoryFull is returned when an owner directory rejects a new
	// entry.
	ErrDirectoryFull = errors.New("owner directory full")
	// ErrInternal is returned when an entry the operation relies on is
	// missing or unreadable. It marks a ledger expectation broken by
	// something other than the caller.
	ErrInternal = errors.New("internal ledger inconsistency")
	// ErrBadLedger is returned when a directory removal fails, leaving the
	// directory and the entry space out of step.
	ErrBadLedger = errors.New("bad ledger")
	// ErrMalformed is returned for syntactically invalid transactions and
	// unloadable hook code.
	ErrMalformed = errors.New("malformed")
)

// View is the mutable ledger surface the hook engine and the installer
// operate on. Implementations are not synchronized; the transaction-apply
// pipeline drives at most one operation at a time.
//
// Directory membership and the owner-count charges that price it must move
// together. Callers sequence their mutations so that any failure surfaces
// before either side changes.
type View interface {
	// Peek returns the entry stored under key, or database.ErrNotFound.
	Peek(key ids.ID) (Entry, error)

	// Insert stores a new entry under key. The key must be vacant.
	Insert(key ids.ID, entry Entry) error

	// Update replaces the entry stored under key. The key must be occupied.
	Update(key ids.ID, entry Entry) error

	// Erase removes the entry stored under key, if any.
	Erase(key ids.ID) error

	// DirAdd appends key to owner's directory. Returns ErrDirectoryFull when
	// the directory is at capacity.
	DirAdd(owner ids.ShortID, key ids.ID) error

	// DirRemove removes key from owner's directory. Returns
	// database.ErrNotFound when the key is not a member.
	DirRemove(owner ids.ShortID, key ids.ID) error

	// DirIterator iterates owner's directory. Iterator keys are the owned
	// entry keys; the caller must Release it.
	DirIterator(owner ids.ShortID) database.Iterator

	// AccountReserve returns the balance an account must hold with
	// ownerCount owned object units.
	AccountReserve(ownerCount uint64) uint64
}
