// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progress

import (
	"time"

	"github.com/bitmark-inc/assetcommit/fault"
)

// Reporter - emits the events of one job
type Reporter struct {
	jobID string
	sink  Sink
	now   func() time.Time
	stage Stage
}

// NewReporter - reporter for a job; a nil sink discards and a nil
// clock uses time.Now
func NewReporter(jobID string, sink Sink, now func() time.Time) *Reporter {
	if nil == sink {
		sink = Discard
	}
	if nil == now {
		now = time.Now
	}
	return &Reporter{
		jobID: jobID,
		sink:  sink,
		now:   now,
	}
}

// JobID - the job being reported
func (r *Reporter) JobID() string {
	return r.jobID
}

// Stage - the stage most recently entered
func (r *Reporter) Stage() Stage {
	return r.stage
}

// Enter - move to a stage and emit its event
func (r *Reporter) Enter(stage Stage, message string) {
	r.stage = stage
	r.sink.Emit(NewEvent(r.jobID, stage, message, r.now()))
}

// Fail - emit the Failed event for an error in the current stage and
// return the matching outcome
func (r *Reporter) Fail(err error) Outcome {
	failed := r.stage
	kind := fault.KindOf(err)
	r.Enter(Failed, kind.String()+": "+err.Error())
	return Outcome{
		JobID:       r.jobID,
		Stage:       Failed,
		FailedStage: failed,
		Reason:      kind,
		Message:     err.Error(),
		Err:         err,
	}
}

// Commit - emit the Committed event and return a success outcome
func (r *Reporter) Commit(message string) Outcome {
	r.Enter(Committed, message)
	return Outcome{
		JobID:   r.jobID,
		Stage:   Committed,
		Message: message,
	}
}
