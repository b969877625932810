// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"sync"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/logger"
)

// Approver - decides whether a transaction may be signed
//
// a nil error approves; a refusal should be a SignatureRejectedError
type Approver interface {
	Confirm(ctx context.Context, tx *ledger.UnsignedTransaction) error
}

// AutoApprove - approves everything, for unattended daemons and tests
type AutoApprove struct{}

// Confirm - always yes unless the context is already done
func (AutoApprove) Confirm(ctx context.Context, tx *ledger.UnsignedTransaction) error {
	if nil != ctx.Err() {
		return fault.ErrSignatureCancelled
	}
	return nil
}

// KeySigner - signs with an unlocked key after asking its approver
type KeySigner struct {
	sync.RWMutex
	log      *logger.L
	key      *Key
	approver Approver
}

var _ Signer = (*KeySigner)(nil)

// NewKeySigner - signer for a key; a nil key starts disconnected
func NewKeySigner(log *logger.L, key *Key, approver Approver) *KeySigner {
	return &KeySigner{
		log:      log,
		key:      key,
		approver: approver,
	}
}

// Connect - switch to a different key, nil disconnects
func (s *KeySigner) Connect(key *Key) {
	s.Lock()
	s.key = key
	s.Unlock()
	if nil == key {
		s.log.Info("disconnected")
	} else {
		s.log.Infof("connected: %s  network: %s", key.Address, key.Network)
	}
}

// CurrentAccount - address of the connected key
func (s *KeySigner) CurrentAccount() (string, bool) {
	s.RLock()
	defer s.RUnlock()
	if nil == s.key {
		return "", false
	}
	return s.key.Address, true
}

// CurrentNetwork - network of the connected key
func (s *KeySigner) CurrentNetwork() string {
	s.RLock()
	defer s.RUnlock()
	if nil == s.key {
		return ""
	}
	return s.key.Network
}

// RequestSignature - ask for approval then sign
func (s *KeySigner) RequestSignature(ctx context.Context, tx *ledger.UnsignedTransaction) (*ledger.SignedTransaction, error) {
	s.RLock()
	key := s.key
	s.RUnlock()

	if nil == key {
		return nil, fault.ErrNoAccount
	}
	if !ledger.SameAddress(tx.From, key.Address) {
		return nil, fault.ErrSignerMismatch
	}
	if tx.Chain != key.Network {
		return nil, fault.ErrWrongNetwork
	}

	if err := s.approver.Confirm(ctx, tx); nil != err {
		s.log.Infof("not signed: %s  nonce: %d  error: %s", tx.Intent.Operation, tx.Nonce, err)
		return nil, err
	}

	signed, err := tx.Sign(key.PrivateKey)
	if nil != err {
		return nil, err
	}
	s.log.Debugf("signed: %s  nonce: %d", tx.Intent.Operation, tx.Nonce)
	return signed, nil
}
