// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

import (
	"context"
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/hookvm/sandbox"
	"github.com/luxfi/hookvm/state"
)

// maxDebugMessageLen bounds how much guest memory output_debug forwards to
// the log.
const maxDebugMessageLen = 1024

// inBounds reports whether [ptr, ptr+length) lies within guest memory.
func inBounds(mem sandbox.Memory, ptr, length uint32) bool {
	return uint64(ptr)+uint64(length) <= uint64(mem.Size())
}

// outputDebug copies up to maxDebugMessageLen bytes from guest memory to
// the log and returns the number of bytes consumed.
func (inv *invocation) outputDebug(_ context.Context, mem sandbox.Memory, args []uint32) int64 {
	ptr, length := args[0], args[1]
	length = min(length, maxDebugMessageLen)
	data, err := mem.Read(ptr, length)
	if err != nil {
		return StatusOutOfBounds
	}

	inv.log.Debug("hook debug output",
		"account", inv.owner,
		"message", string(data),
	)
	return int64(length)
}

// setState stages a state write. The guest passes a 32-byte key and the
// value to associate with it; the write lands in the ledger only if the
// guest later accepts or rejects.
func (inv *invocation) setState(_ context.Context, mem sandbox.Memory, args []uint32) int64 {
	keyPtr, dataPtr, dataLen := args[0], args[1], args[2]
	if !inBounds(mem, keyPtr, ids.IDLen) || !inBounds(mem, dataPtr, dataLen) {
		return StatusOutOfBounds
	}
	if dataLen == 0 {
		return StatusTooSmall
	}
	if dataLen > inv.maxValueSize {
		return StatusTooBig
	}

	keyBytes, err := mem.Read(keyPtr, ids.IDLen)
	if err != nil {
		return StatusOutOfBounds
	}
	key, err := ids.ToID(keyBytes)
	if err != nil {
		return StatusInternalError
	}
	data, err := mem.Read(dataPtr, dataLen)
	if err != nil {
		return StatusOutOfBounds
	}

	if err := inv.cache.Set(key, data); err != nil {
		switch {
		case errors.Is(err, errEmptyValue):
			return StatusTooSmall
		case errors.Is(err, state.ErrDataTooLarge):
			return StatusTooBig
		default:
			return StatusInternalError
		}
	}
	return int64(dataLen)
}

// getState resolves a state read against the cache, falling through to the
// store, and copies min(value size, out_len) bytes into guest memory. The
// return value is the number of bytes copied.
func (inv *invocation) getState(_ context.Context, mem sandbox.Memory, args []uint32) int64 {
	keyPtr, outPtr, outLen := args[0], args[1], args[2]
	if !inBounds(mem, keyPtr, ids.IDLen) || !inBounds(mem, outPtr, outLen) {
		return StatusOutOfBounds
	}

	keyBytes, err := mem.Read(keyPtr, ids.IDLen)
	if err != nil {
		return StatusOutOfBounds
	}
	key, err := ids.ToID(keyBytes)
	if err != nil {
		return StatusInternalError
	}

	value, err := inv.cache.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return StatusDoesntExist
	case err != nil:
		return StatusInternalError
	}

	n := min(uint32(len(value)), outLen)
	if err := mem.Write(outPtr, value[:n]); err != nil {
		return StatusOutOfBounds
	}
	return int64(n)
}

// exit records the guest's disposition and unwinds the guest call stack.
// It only returns if the reason text is out of bounds, in which case the
// guest keeps running and no disposition is recorded. A zero reason_ptr
// means no reason.
func (inv *invocation) exit(mem sandbox.Memory, exitType ExitType, args []uint32) int64 {
	code := int64(int32(args[0]))
	reasonPtr, reasonLen := args[1], args[2]

	var reason []byte
	if reasonPtr != 0 && reasonLen > 0 {
		if !inBounds(mem, reasonPtr, reasonLen) {
			return StatusOutOfBounds
		}
		var err error
		reason, err = mem.Read(reasonPtr, reasonLen)
		if err != nil {
			return StatusOutOfBounds
		}
	}

	inv.exitType = exitType
	inv.exitCode = code
	inv.reason = string(reason)
	sandbox.Raise()
	return StatusSuccess // unreachable
}
