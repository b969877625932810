// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package local

import (
	"context"
	"time"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/logger"
)

// ServiceName - name the service is registered under
const ServiceName = "Ledger"

// Service - net/rpc front end so that other daemons can use this
// ledger through ledger/rpcclient
type Service struct {
	log    *logger.L
	ledger *Ledger
}

// NewService - wrap a ledger for net/rpc registration
func NewService(log *logger.L, l *Ledger) *Service {
	return &Service{
		log:    log,
		ledger: l,
	}
}

// DelegationArguments - arguments for ReadDelegation
type DelegationArguments struct {
	Owner    string `json:"owner"`
	Delegate string `json:"delegate"`
}

// DelegationReply - result of ReadDelegation
type DelegationReply struct {
	Grant *ledger.Grant `json:"grant"`
}

// ReadDelegation - RPC to read a grant
func (s *Service) ReadDelegation(arguments *DelegationArguments, reply *DelegationReply) error {
	if !ledger.ValidAddress(arguments.Owner) || !ledger.ValidAddress(arguments.Delegate) {
		return fault.ErrInvalidAddress
	}
	g, err := s.ledger.ReadDelegation(context.Background(), arguments.Owner, arguments.Delegate)
	if nil != err {
		return err
	}
	reply.Grant = g
	return nil
}

// AnchorArguments - arguments for Anchor
type AnchorArguments struct {
	AssetID string `json:"assetId"`
}

// AnchorReply - result of Anchor
type AnchorReply struct {
	Fingerprint string `json:"fingerprint"`
}

// Anchor - RPC to read an anchored fingerprint
func (s *Service) Anchor(arguments *AnchorArguments, reply *AnchorReply) error {
	f, err := s.ledger.Anchor(context.Background(), arguments.AssetID)
	if nil != err {
		return err
	}
	reply.Fingerprint = f
	return nil
}

// NonceArguments - arguments for NextNonce
type NonceArguments struct {
	Account string `json:"account"`
}

// NonceReply - result of NextNonce
type NonceReply struct {
	Nonce uint64 `json:"nonce"`
}

// NextNonce - RPC to fetch the next nonce for an account
func (s *Service) NextNonce(arguments *NonceArguments, reply *NonceReply) error {
	if !ledger.ValidAddress(arguments.Account) {
		return fault.ErrInvalidAddress
	}
	n, err := s.ledger.NextNonce(context.Background(), arguments.Account)
	if nil != err {
		return err
	}
	reply.Nonce = n
	return nil
}

// SubmitArguments - arguments for Submit
type SubmitArguments struct {
	Transaction *ledger.SignedTransaction `json:"transaction"`
}

// SubmitReply - result of Submit
type SubmitReply struct {
	TxRef ledger.TxRef `json:"txRef"`
}

// Submit - RPC to submit a signed transaction
func (s *Service) Submit(arguments *SubmitArguments, reply *SubmitReply) error {
	if nil == arguments.Transaction {
		return fault.ErrTransactionSubmit
	}
	ref, err := s.ledger.Submit(context.Background(), arguments.Transaction)
	if nil != err {
		s.log.Warnf("submit rejected: %s", err)
		return err
	}
	reply.TxRef = ref
	return nil
}

// StatusArguments - arguments for Status
type StatusArguments struct {
	TxRef ledger.TxRef `json:"txRef"`
}

// StatusReply - result of Status
type StatusReply struct {
	Status string `json:"status"`
}

// Status - RPC to fetch a transaction status
//
// a pending transaction is given up to one block time to confirm
// before the reply is sent, so clients can poll without spinning
func (s *Service) Status(arguments *StatusArguments, reply *StatusReply) error {
	wait := 2 * s.ledger.blockTime
	if wait <= 0 {
		wait = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	status, err := s.ledger.AwaitConfirmation(ctx, arguments.TxRef)
	if nil != err && nil == ctx.Err() {
		return err
	}
	reply.Status = status.String()
	return nil
}
