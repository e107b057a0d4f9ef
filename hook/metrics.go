// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hook

import (
	"github.com/luxfi/metric"
)

type metrics struct {
	numInvocations,
	numAccepted,
	numRejected,
	numRolledBack,
	numMalformed,
	numTraps,
	numTimeouts,
	numCommitFailures metric.Counter
}

func newMetrics(registerer metric.Registerer) (*metrics, error) {
	m := &metrics{
		numInvocations: metric.NewCounter(metric.CounterOpts{
			Name: "hook_invocations",
			Help: "number of hook invocations started",
		}),
		numAccepted: metric.NewCounter(metric.CounterOpts{
			Name: "hook_accepts",
			Help: "number of invocations that exited with accept",
		}),
		numRejected: metric.NewCounter(metric.CounterOpts{
			Name: "hook_rejects",
			Help: "number of invocations that exited with reject",
		}),
		numRolledBack: metric.NewCounter(metric.CounterOpts{
			Name: "hook_rollbacks",
			Help: "number of invocations that rolled back, explicitly or by default",
		}),
		numMalformed: metric.NewCounter(metric.CounterOpts{
			Name: "hook_malformed",
			Help: "number of invocations that failed before running",
		}),
		numTraps: metric.NewCounter(metric.CounterOpts{
			Name: "hook_traps",
			Help: "number of invocations that faulted inside the sandbox",
		}),
		numTimeouts: metric.NewCounter(metric.CounterOpts{
			Name: "hook_timeouts",
			Help: "number of invocations that exceeded the execution budget",
		}),
		numCommitFailures: metric.NewCounter(metric.CounterOpts{
			Name: "hook_commit_failures",
			Help: "number of staged state commits that failed",
		}),
	}
	return m, nil
}
