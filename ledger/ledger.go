// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"context"
	"time"
)

//go:generate mockgen -destination=../mocks/ledger.go -package=mocks github.com/bitmark-inc/assetcommit/ledger Ledger

// Ledger - external call contract of the ledger
type Ledger interface {
	// current delegation from owner to delegate, nil if never granted
	ReadDelegation(ctx context.Context, owner string, delegate string) (*Grant, error)

	// the fingerprint currently anchored for an asset, empty if none
	Anchor(ctx context.Context, assetID string) (string, error)

	// the nonce the account must use for its next transaction
	NextNonce(ctx context.Context, account string) (uint64, error)

	Submit(ctx context.Context, tx *SignedTransaction) (TxRef, error)
	AwaitConfirmation(ctx context.Context, ref TxRef) (Status, error)
}

// TxRef - ledger transaction reference (hex transaction hash)
type TxRef string

// String - for logging
func (ref TxRef) String() string {
	return string(ref)
}

// Status - state of a submitted transaction
type Status int

// all possible states
const (
	Pending Status = iota
	Confirmed
	Reverted
	Dropped
)

// String - for logging and JSON-RPC
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Reverted:
		return "reverted"
	case Dropped:
		return "dropped"
	default:
		return "*unknown*"
	}
}

// ParseStatus - inverse of String
func ParseStatus(s string) (Status, bool) {
	for _, status := range []Status{Pending, Confirmed, Reverted, Dropped} {
		if status.String() == s {
			return status, true
		}
	}
	return Pending, false
}

// Terminal - no further change is possible
func (s Status) Terminal() bool {
	return Pending != s
}

// Grant - the delegation relation (owner, delegate)
type Grant struct {
	Owner        string       `json:"owner"`
	Delegate     string       `json:"delegate"`
	Active       bool         `json:"active"`
	Capabilities Capabilities `json:"capabilities"`
	GrantedAt    time.Time    `json:"grantedAt"`
}

// Allows - true if the grant is active and carries the capability
func (g *Grant) Allows(c Capabilities) bool {
	if nil == g || !g.Active {
		return false
	}
	return g.Capabilities.Has(c)
}
