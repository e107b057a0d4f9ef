// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sandbox isolates untrusted guest bytecode behind a narrow runtime
// surface: instantiate, call, bounds-checked memory access, teardown. The
// hook engine never sees raw guest pointers and the guest never sees host
// memory.
package sandbox

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/sys"
)

var (
	// ErrOutOfBounds is returned for any guest memory access whose
	// (pointer, length) range does not fit the instance's linear memory.
	ErrOutOfBounds = errors.New("guest memory access out of bounds")

	// ErrGuestAbort is returned by [Instance.Call] when a host function
	// ended the call through [Raise]. It marks an intentional early exit,
	// not an execution fault.
	ErrGuestAbort = errors.New("guest aborted")

	// ErrInvalidCode is returned when guest bytecode cannot be compiled or
	// instantiated.
	ErrInvalidCode = errors.New("invalid guest code")

	// ErrNotExported is returned when the requested entry point is missing.
	ErrNotExported = errors.New("function not exported")
)

// HostFunc binds one named function into the guest's import namespace. Every
// parameter is a wasm i32 and the single result is an i64, matching the
// guest-facing API. Bindings are built fresh for each instantiation; there is
// no process-wide registry.
type HostFunc struct {
	Name      string
	NumParams int
	Fn        func(ctx context.Context, mem Memory, args []uint32) int64
}

// Memory is the single bounds-checked accessor for a guest's linear memory.
// Every (pointer, length) pair is validated, overflow-safe, before any byte
// moves.
type Memory interface {
	// Read copies length bytes starting at ptr out of guest memory. The
	// returned slice is the caller's; it never aliases guest memory.
	Read(ptr, length uint32) ([]byte, error)

	// Write copies data into guest memory starting at ptr.
	Write(ptr uint32, data []byte) error

	// Size returns the current byte size of the guest's linear memory.
	Size() uint32
}

// Instance is one loaded guest program. Instances are single-use: one Call,
// then Close. Close must run on every exit path.
type Instance interface {
	// Call invokes the exported function entry with a single integer
	// argument and returns its integer result. A guest that exited through
	// [Raise] yields ErrGuestAbort; any other error is a genuine execution
	// fault.
	Call(ctx context.Context, entry string, arg uint64) (uint64, error)

	// Memory returns the instance's linear memory accessor.
	Memory() Memory

	// Close tears the instance down and releases everything it holds.
	Close(ctx context.Context) error
}

// Runtime turns bytecode into instances.
type Runtime interface {
	// Instantiate compiles and instantiates code with the given host
	// bindings. Unloadable code yields ErrInvalidCode.
	Instantiate(ctx context.Context, code []byte, hostFns []HostFunc) (Instance, error)

	// Close releases the runtime's shared resources.
	Close(ctx context.Context) error
}

// abortExitCode tags the exit raised by [Raise] so the runtime can tell a
// deliberate host-side abort from anything else. Guests have no import that
// exits, so the code cannot be forged.
const abortExitCode uint32 = 0x1c

// Raise aborts the guest call in progress. It must only be called from
// inside a host function while the guest is executing; the runtime unwinds
// the guest stack and the surrounding [Instance.Call] returns
// [ErrGuestAbort].
func Raise() {
	panic(sys.NewExitError(abortExitCode))
}
