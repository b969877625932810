// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package batch

import (
	"encoding/json"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/progress"
)

// Item - one draft of a batch
//
// Position counts from one in request order
type Item struct {
	Position int              `json:"position"`
	AssetID  string           `json:"assetId"`
	Outcome  progress.Outcome `json:"outcome"`
}

// Counts - aggregate of a finished batch; degraded items are also
// counted as succeeded
type Counts struct {
	Succeeded int `json:"succeeded"`
	Degraded  int `json:"degraded"`
	Failed    int `json:"failed"`
}

// Summary - report of a finished batch, items in request order
type Summary struct {
	BatchID string
	Total   int
	Counts  Counts
	Items   []Item
}

// Failure - a failed position and its reason
type Failure struct {
	Position int        `json:"position"`
	AssetID  string     `json:"assetId"`
	Stage    string     `json:"stage"`
	Reason   fault.Kind `json:"reason"`
	Message  string     `json:"message"`
}

func (s *Summary) count() {
	s.Counts = Counts{}
	for i := range s.Items {
		o := &s.Items[i].Outcome
		switch {
		case o.Degraded():
			s.Counts.Succeeded += 1
			s.Counts.Degraded += 1
		case o.Succeeded():
			s.Counts.Succeeded += 1
		default:
			s.Counts.Failed += 1
		}
	}
}

// Succeeded - positions that committed
func (s *Summary) Succeeded() []int {
	positions := make([]int, 0, s.Counts.Succeeded)
	for _, item := range s.Items {
		if item.Outcome.Succeeded() {
			positions = append(positions, item.Position)
		}
	}
	return positions
}

// Failed - positions that did not commit with the reason for each
func (s *Summary) Failed() []Failure {
	failures := make([]Failure, 0, s.Counts.Failed)
	for _, item := range s.Items {
		if item.Outcome.Succeeded() {
			continue
		}
		failures = append(failures, Failure{
			Position: item.Position,
			AssetID:  item.AssetID,
			Stage:    item.Outcome.FailedStage.String(),
			Reason:   item.Outcome.Reason,
			Message:  item.Outcome.Message,
		})
	}
	return failures
}

// MarshalJSON - the summary with its position lists
func (s *Summary) MarshalJSON() ([]byte, error) {
	type report struct {
		BatchID   string    `json:"batchId"`
		Total     int       `json:"total"`
		Counts    Counts    `json:"counts"`
		Succeeded []int     `json:"succeeded"`
		Failed    []Failure `json:"failed"`
		Items     []Item    `json:"items"`
	}
	return json.Marshal(report{
		BatchID:   s.BatchID,
		Total:     s.Total,
		Counts:    s.Counts,
		Succeeded: s.Succeeded(),
		Failed:    s.Failed(),
		Items:     s.Items,
	})
}
