// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progress

import (
	"time"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
)

// Event - one stage transition of a job
type Event struct {
	JobID           string    `json:"jobId"`
	Stage           Stage     `json:"stage"`
	PercentComplete int       `json:"percentComplete"`
	Message         string    `json:"message"`
	Time            time.Time `json:"time"`
}

// NewEvent - event with the percentage filled in from the stage
func NewEvent(jobID string, stage Stage, message string, now time.Time) Event {
	return Event{
		JobID:           jobID,
		Stage:           stage,
		PercentComplete: Percent(stage),
		Message:         message,
		Time:            now,
	}
}

// Outcome - terminal result of a job
//
// Reason is only set for failures; Warning is only set for a degraded
// success where the ledger confirmed but the index write did not
type Outcome struct {
	JobID       string       `json:"jobId"`
	AssetID     string       `json:"assetId,omitempty"`
	Action      asset.Action `json:"action,omitempty"`
	Stage       Stage        `json:"stage"`
	FailedStage Stage        `json:"failedStage,omitempty"`
	Reason      fault.Kind   `json:"reason,omitempty"`
	Message     string       `json:"message"`
	Err         error        `json:"-"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	LedgerTxRef ledger.TxRef `json:"ledgerTxRef,omitempty"`
	Version     uint64       `json:"version,omitempty"`
	Unchanged   bool         `json:"unchanged,omitempty"`
	Warning     string       `json:"warning,omitempty"`
}

// Succeeded - job reached Committed, possibly degraded
func (o Outcome) Succeeded() bool {
	return Committed == o.Stage
}

// Degraded - committed with an indexing warning
func (o Outcome) Degraded() bool {
	return Committed == o.Stage && "" != o.Warning
}
