// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package progress - typed progress events and outcomes of commit jobs
//
// events flow one way, from a job to whatever sink the caller
// supplied; nothing in here calls back into the caller
package progress

import (
	"fmt"
)

// Stage - position of a job in the commit sequence
type Stage int

// all stages in the order they are entered
const (
	StageNone Stage = iota
	Validating
	StoringContent
	AwaitingAuthorization
	SigningTransaction
	AwaitingConfirmation
	Indexing
	Committed
	Failed
)

var stageNames = map[Stage]string{
	StageNone:             "",
	Validating:            "Validating",
	StoringContent:        "StoringContent",
	AwaitingAuthorization: "AwaitingAuthorization",
	SigningTransaction:    "SigningTransaction",
	AwaitingConfirmation:  "AwaitingConfirmation",
	Indexing:              "Indexing",
	Committed:             "Committed",
	Failed:                "Failed",
}

var stagePercent = map[Stage]int{
	Validating:            0,
	StoringContent:        10,
	AwaitingAuthorization: 30,
	SigningTransaction:    40,
	AwaitingConfirmation:  60,
	Indexing:              80,
	Committed:             100,
	Failed:                100,
}

// String - stage name
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// MarshalText - stages are reported by name
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText - parse a stage name
func (s *Stage) UnmarshalText(text []byte) error {
	for stage, name := range stageNames {
		if name == string(text) {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage: %q", text)
}

// Terminal - no further transitions follow
func (s Stage) Terminal() bool {
	return Committed == s || Failed == s
}

// Percent - completion shown to a user when the stage is entered
func Percent(s Stage) int {
	return stagePercent[s]
}
