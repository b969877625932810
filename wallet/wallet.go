// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet - the controlling wallet that signs ledger
// transactions on behalf of the connected account
package wallet

import (
	"context"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
)

//go:generate mockgen -destination=../mocks/wallet.go -package=mocks github.com/bitmark-inc/assetcommit/wallet Signer

// Signer - external call contract of a wallet
type Signer interface {
	// may block for as long as a human takes to decide
	RequestSignature(ctx context.Context, tx *ledger.UnsignedTransaction) (*ledger.SignedTransaction, error)

	CurrentAccount() (string, bool)
	CurrentNetwork() string
}

// Session - the signer's account and network as seen at the start of
// one commit attempt
//
// concurrent jobs each carry their own copy so a wallet switching
// accounts part way through cannot change who a running job acts as
type Session struct {
	Account string `json:"account"`
	Network string `json:"network"`
}

// Snapshot - capture the current state of a signer
func Snapshot(s Signer) Session {
	account, ok := s.CurrentAccount()
	if !ok {
		account = ""
	}
	return Session{
		Account: ledger.NormalizeAddress(account),
		Network: s.CurrentNetwork(),
	}
}

// Connected - a session has an account
func (s Session) Connected() bool {
	return "" != s.Account
}

// Disconnected - signer used when no wallet is connected
type Disconnected struct{}

var _ Signer = Disconnected{}

// RequestSignature - always unavailable
func (Disconnected) RequestSignature(ctx context.Context, tx *ledger.UnsignedTransaction) (*ledger.SignedTransaction, error) {
	return nil, fault.ErrNoAccount
}

// CurrentAccount - none
func (Disconnected) CurrentAccount() (string, bool) {
	return "", false
}

// CurrentNetwork - none
func (Disconnected) CurrentNetwork() string {
	return ""
}
