// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package batch

import (
	"github.com/bitmark-inc/assetcommit/progress"
)

// ItemEvent - a job's progress event, or its final outcome, tagged
// with the job's place in the batch
type ItemEvent struct {
	BatchID  string            `json:"batchId"`
	Position int               `json:"position"`
	AssetID  string            `json:"assetId"`
	Event    *progress.Event   `json:"event,omitempty"`
	Outcome  *progress.Outcome `json:"outcome,omitempty"`
}

// Sink - receives item events from all the jobs of a batch
//
// called concurrently from the workers
type Sink interface {
	EmitItem(ItemEvent)
}

// SinkFunc - adapt a function to a Sink
type SinkFunc func(ItemEvent)

// EmitItem - the Sink interface
func (f SinkFunc) EmitItem(e ItemEvent) {
	f(e)
}

// Discard - a sink that drops everything
var Discard Sink = SinkFunc(func(ItemEvent) {})
