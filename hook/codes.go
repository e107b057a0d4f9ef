// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

// ExitType records how a guest ended its invocation.
type ExitType uint8

const (
	// ExitRollback discards every staged write. It is the default when
	// the guest returns, traps, or runs out of execution budget without
	// calling an exit function.
	ExitRollback ExitType = iota
	// ExitAccept commits staged writes and authorizes the transaction.
	ExitAccept
	// ExitReject commits staged writes but does not authorize the
	// transaction.
	ExitReject
)

func (t ExitType) String() string {
	switch t {
	case ExitRollback:
		return "rollback"
	case ExitAccept:
		return "accept"
	case ExitReject:
		return "reject"
	default:
		return "unknown"
	}
}

// DefaultExitCode is reported when the guest never called an exit
// function.
const DefaultExitCode int64 = -1

// Status codes returned to the guest by host functions. Negative values
// are failures and sit outside the range of valid lengths, so a guest can
// distinguish them from a byte count.
const (
	StatusSuccess       int64 = 0
	StatusOutOfBounds   int64 = -1
	StatusInternalError int64 = -2
	StatusTooBig        int64 = -3
	StatusTooSmall      int64 = -4
	StatusDoesntExist   int64 = -5
)
