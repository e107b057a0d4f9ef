// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/hookvm/sandbox"
	"github.com/luxfi/hookvm/state"
)

// invocation is the host-side context of a single guest run: the owner
// account, the staging cache, and the exit disposition recorded by the
// guest's accept/reject/rollback call.
type invocation struct {
	store        *state.Store
	cache        *Cache
	owner        ids.ShortID
	maxValueSize uint32
	log          log.Logger

	exitType ExitType
	exitCode int64
	reason   string
}

func newInvocation(view state.View, owner ids.ShortID, maxValueSize uint32, logger log.Logger) *invocation {
	store := state.NewStore(view, logger)
	return &invocation{
		store:        store,
		cache:        NewCache(store, owner, maxValueSize),
		owner:        owner,
		maxValueSize: maxValueSize,
		log:          logger,
		exitType:     ExitRollback,
		exitCode:     DefaultExitCode,
	}
}

// hostFunctions returns the bindings exported to the guest under the
// sandbox's host module. They close over this invocation, so each
// instantiation gets its own set.
func (inv *invocation) hostFunctions() []sandbox.HostFunc {
	return []sandbox.HostFunc{
		{Name: "output_debug", NumParams: 2, Fn: inv.outputDebug},
		{Name: "set_state", NumParams: 3, Fn: inv.setState},
		{Name: "get_state", NumParams: 3, Fn: inv.getState},
		{Name: "accept", NumParams: 3, Fn: inv.exitFunc(ExitAccept)},
		{Name: "reject", NumParams: 3, Fn: inv.exitFunc(ExitReject)},
		{Name: "rollback", NumParams: 3, Fn: inv.exitFunc(ExitRollback)},
	}
}

func (inv *invocation) exitFunc(exitType ExitType) func(context.Context, sandbox.Memory, []uint32) int64 {
	return func(_ context.Context, mem sandbox.Memory, args []uint32) int64 {
		return inv.exit(mem, exitType, args)
	}
}
