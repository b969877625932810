// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline

import (
	"sync/atomic"
)

// Stats - job counts since the orchestrator was created
type Stats struct {
	Running   uint64 `json:"running"`
	Committed uint64 `json:"committed"`
	Degraded  uint64 `json:"degraded"`
	Failed    uint64 `json:"failed"`
}

type counters struct {
	running   atomic.Uint64
	committed atomic.Uint64
	degraded  atomic.Uint64
	failed    atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Running:   c.running.Load(),
		Committed: c.committed.Load(),
		Degraded:  c.degraded.Load(),
		Failed:    c.failed.Load(),
	}
}
