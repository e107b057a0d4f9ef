// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hook runs installed hooks: untrusted guest modules invoked during
// transaction processing, with staged access to their account's state.
package hook

import (
	"context"
	"errors"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/hookvm/config"
	"github.com/luxfi/hookvm/result"
	"github.com/luxfi/hookvm/sandbox"
	"github.com/luxfi/hookvm/state"
)

// EntryPoint is the exported function every hook module must provide. It
// takes one integer argument, reserved and currently always zero.
const EntryPoint = "hook"

const entryPointArg uint64 = 0

// Outcome is the conclusion of one hook invocation.
type Outcome struct {
	// Result is the disposition handed to the transaction pipeline.
	Result result.Code
	// ExitType, ExitCode and Reason echo the guest's exit call. When the
	// guest never exited they hold the rollback defaults.
	ExitType ExitType
	ExitCode int64
	Reason   string
}

// Engine drives hook invocations: instantiate the guest in a fresh
// sandbox, run its entry point, interpret how it exited, then commit or
// discard its staged writes. The sandbox instance is torn down on every
// exit path.
type Engine struct {
	cfg     config.Config
	log     log.Logger
	runtime sandbox.Runtime
	metrics *metrics
}

func New(cfg config.Config, logger log.Logger, registerer metric.Registerer) (*Engine, error) {
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		log:     logger,
		runtime: sandbox.NewRuntime(cfg.MaxGuestPages),
		metrics: m,
	}, nil
}

// Close releases the compiled-code cache shared across invocations.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Apply runs [hk] on behalf of [owner] against [view]. Staged state writes
// are committed when the guest accepts or rejects and discarded when it
// rolls back. The returned outcome is never nil.
func (e *Engine) Apply(ctx context.Context, view state.View, owner ids.ShortID, hk *state.Hook) *Outcome {
	e.metrics.numInvocations.Inc()

	maxValueSize := hk.DataMaxSize
	if maxValueSize == 0 {
		maxValueSize = e.cfg.MaxStateDataSize
	}
	inv := newInvocation(view, owner, maxValueSize, e.log)

	runCtx := ctx
	if e.cfg.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.MaxExecutionTime)
		defer cancel()
	}

	instance, err := e.runtime.Instantiate(runCtx, hk.Code, inv.hostFunctions())
	if err != nil {
		if outOfTime(err) {
			e.metrics.numTimeouts.Inc()
			e.log.Debug("hook ran out of execution budget",
				"account", owner,
				"phase", "instantiate",
			)
			return e.conclude(inv)
		}
		e.metrics.numMalformed.Inc()
		e.log.Debug("hook instantiation failed",
			"account", owner,
			"error", err,
		)
		return &Outcome{
			Result:   result.Malformed,
			ExitType: ExitRollback,
			ExitCode: DefaultExitCode,
		}
	}
	defer func() {
		if err := instance.Close(ctx); err != nil {
			e.log.Warn("failed to tear down hook instance",
				"account", owner,
				"error", err,
			)
		}
	}()

	// The entry point's numeric return carries no meaning; only the exit
	// recorded through accept/reject/rollback does.
	_, err = instance.Call(runCtx, EntryPoint, entryPointArg)
	switch {
	case err == nil:
		// Returned without exiting; the rollback default stands.
	case errors.Is(err, sandbox.ErrGuestAbort):
		// An exit function recorded the disposition and unwound the
		// guest.
	case errors.Is(err, sandbox.ErrNotExported):
		e.metrics.numMalformed.Inc()
		e.log.Debug("hook does not export the entry point",
			"account", owner,
			"entry", EntryPoint,
		)
		return &Outcome{
			Result:   result.Malformed,
			ExitType: ExitRollback,
			ExitCode: DefaultExitCode,
		}
	case outOfTime(err):
		e.metrics.numTimeouts.Inc()
		e.log.Debug("hook ran out of execution budget",
			"account", owner,
			"phase", "run",
		)
	default:
		e.metrics.numTraps.Inc()
		e.log.Debug("hook trapped",
			"account", owner,
			"error", err,
		)
	}

	return e.conclude(inv)
}

// conclude maps the recorded exit to a result, committing or discarding the
// cache accordingly.
func (e *Engine) conclude(inv *invocation) *Outcome {
	outcome := &Outcome{
		ExitType: inv.exitType,
		ExitCode: inv.exitCode,
		Reason:   inv.reason,
	}
	switch inv.exitType {
	case ExitAccept:
		outcome.Result = result.Success
		e.metrics.numAccepted.Inc()
		e.commit(inv)
	case ExitReject:
		// Writes staged before the rejection are still persisted.
		outcome.Result = result.NotAuthorized
		e.metrics.numRejected.Inc()
		e.commit(inv)
	default:
		outcome.Result = result.NotAuthorized
		e.metrics.numRolledBack.Inc()
	}
	return outcome
}

func (e *Engine) commit(inv *invocation) {
	staged := inv.cache.Staged()
	if err := inv.cache.Commit(); err != nil {
		e.metrics.numCommitFailures.Inc()
		e.log.Error("failed to commit staged hook state",
			"account", inv.owner,
			"staged", staged,
			"error", err,
		)
		return
	}
	if staged > 0 {
		e.log.Debug("committed staged hook state",
			"account", inv.owner,
			"staged", staged,
		)
	}
}

func outOfTime(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
