// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package result

import (
	"errors"

	"github.com/luxfi/database"

	"github.com/luxfi/hookvm/state"
)

// Code is the disposition the transaction engine receives for a hook
// operation. The set is closed: every failure an operation can produce maps
// onto exactly one code.
type Code uint8

const (
	// Success means the operation applied and its mutations are in the view.
	Success Code = iota
	// NotAuthorized means the hook declined the transaction. Mutations staged
	// before a reject are still in the view.
	NotAuthorized
	// Malformed covers unparseable bytecode and syntactically invalid
	// transactions.
	Malformed
	// InsufficientReserve means the account balance does not cover the
	// owner-count charge the operation would add.
	InsufficientReserve
	// DirectoryFull means the owner directory rejected a new entry.
	DirectoryFull
	// DataTooLarge means a state value exceeded the hook's DataMaxSize.
	DataTooLarge
	// Internal means a ledger entry the operation depends on is missing.
	Internal
	// BadLedger means a directory removal failed; the ledger is inconsistent.
	BadLedger
)

// String returns the string representation of the code
func (c Code) String() string {
	switch c {
	case Success:
		return "Success"
	case NotAuthorized:
		return "NotAuthorized"
	case Malformed:
		return "Malformed"
	case InsufficientReserve:
		return "InsufficientReserve"
	case DirectoryFull:
		return "DirectoryFull"
	case DataTooLarge:
		return "DataTooLarge"
	case Internal:
		return "Internal"
	case BadLedger:
		return "BadLedger"
	default:
		return "Internal"
	}
}

// ForError maps an operation error onto its transaction-facing code. A nil
// error is [Success]; an unrecognized error is [Internal].
func ForError(err error) Code {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, state.ErrDataTooLarge):
		return DataTooLarge
	case errors.Is(err, state.ErrInsufficientReserve):
		return InsufficientReserve
	case errors.Is(err, state.ErrDirectoryFull):
		return DirectoryFull
	case errors.Is(err, state.ErrBadLedger):
		return BadLedger
	case errors.Is(err, state.ErrMalformed):
		return Malformed
	case errors.Is(err, database.ErrNotFound):
		return Internal
	default:
		return Internal
	}
}
