// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/progress"
)

// StageError - a fault and the stage it happened in
type StageError struct {
	Stage progress.Stage
	Err   error
}

func (e StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e StageError) Unwrap() error { return e.Err }

// Job - one draft's progress through a single commit attempt
//
// owned by the goroutine running the commit and discarded once its
// outcome has been returned
type Job struct {
	ID          string
	AssetID     string
	Owner       string
	Actor       string
	Action      asset.Action
	Stage       progress.Stage
	Fingerprint string
	LedgerTxRef ledger.TxRef
	Version     uint64
	Errors      []StageError
	StartedAt   time.Time

	reporter  *progress.Reporter
	previous  *index.Record
	content   cid.Cid
	holding   bool
	fresh     bool
	submitted bool
	unchanged bool
}

func (j *Job) enter(stage progress.Stage, message string) {
	j.Stage = stage
	j.reporter.Enter(stage, message)
}

// remember a fault without ending the job, a retried stage may
// still succeed
func (j *Job) record(err error) {
	j.Errors = append(j.Errors, StageError{Stage: j.Stage, Err: err})
}

func (j *Job) fail(err error) progress.Outcome {
	j.record(err)
	outcome := j.reporter.Fail(err)
	j.Stage = progress.Failed
	j.fill(&outcome)
	return outcome
}

func (j *Job) commit(warning error) progress.Outcome {
	message := fmt.Sprintf("%s %s  version: %d", j.Action, j.AssetID, j.Version)
	if j.unchanged {
		message += "  critical metadata unchanged"
	}
	if nil != warning {
		j.record(warning)
		message += "  warning: " + warning.Error()
	}
	outcome := j.reporter.Commit(message)
	j.Stage = progress.Committed
	j.fill(&outcome)
	if nil != warning {
		outcome.Warning = warning.Error()
	}
	return outcome
}

func (j *Job) fill(outcome *progress.Outcome) {
	outcome.AssetID = j.AssetID
	outcome.Action = j.Action
	outcome.Fingerprint = j.Fingerprint
	outcome.LedgerTxRef = j.LedgerTxRef
	outcome.Version = j.Version
	outcome.Unchanged = j.unchanged
}
