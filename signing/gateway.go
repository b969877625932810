// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signing - turns ledger intents into signed, submitted
// transactions and waits for their confirmation
//
// a wallet can only show one signing prompt at a time, so the gateway
// lets one request through at a time across every job sharing it
package signing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

// Handle - a submitted transaction
type Handle struct {
	TxRef       ledger.TxRef
	Transaction *ledger.SignedTransaction
	Fee         *Fee
}

// Gateway - signs and submits for any number of concurrent jobs
type Gateway struct {
	sync.Mutex // held while a signature is being obtained and submitted

	log       *logger.L
	chain     string
	ledger    ledger.Ledger
	estimator Estimator

	// last nonce submitted per account
	nonces map[string]uint64
}

// New - create a gateway for one chain; estimator may be nil
func New(log *logger.L, chainName string, l ledger.Ledger, estimator Estimator) *Gateway {
	return &Gateway{
		log:       log,
		chain:     chainName,
		ledger:    l,
		estimator: estimator,
		nonces:    make(map[string]uint64),
	}
}

// Chain - the network this gateway submits to
func (g *Gateway) Chain() string {
	return g.chain
}

// Prepare - the unsigned transaction for an intent
func (g *Gateway) Prepare(session wallet.Session, intent ledger.Intent, nonce uint64) *ledger.UnsignedTransaction {
	return &ledger.UnsignedTransaction{
		Chain:  session.Network,
		From:   session.Account,
		Nonce:  nonce,
		Intent: intent,
	}
}

// Check - the signer is still the session's account on this chain
//
// returns a WalletUnavailableError describing the remedy otherwise
func (g *Gateway) Check(signer wallet.Signer, session wallet.Session) error {
	if !session.Connected() {
		return fault.ErrNoAccount
	}
	if session.Network != g.chain {
		return fault.ErrWrongNetwork
	}
	account, ok := signer.CurrentAccount()
	if !ok {
		return fault.ErrNoAccount
	}
	if !ledger.SameAddress(account, session.Account) {
		return fault.ErrSignerMismatch
	}
	if signer.CurrentNetwork() != session.Network {
		return fault.ErrWrongNetwork
	}
	return nil
}

// SignAndSubmit - obtain the signer's signature for intent and submit it
//
// outcomes: a Handle; a SignatureRejectedError when the signer declined
// or the request was cancelled; a WalletUnavailableError when no
// suitable signer is connected; a LedgerError when submission failed
func (g *Gateway) SignAndSubmit(ctx context.Context, signer wallet.Signer, session wallet.Session, intent ledger.Intent) (*Handle, error) {
	if err := g.Check(signer, session); nil != err {
		return nil, err
	}

	g.Lock()
	defer g.Unlock()

	// waited behind another job's prompt and the caller gave up
	if nil != ctx.Err() {
		return nil, fault.ErrSignatureCancelled
	}

	nonce, err := g.nextNonce(ctx, session.Account)
	if nil != err {
		return nil, err
	}
	tx := g.Prepare(session, intent, nonce)

	fee := g.estimate(ctx, tx)

	signed, err := signer.RequestSignature(ctx, tx)
	if nil != err {
		return nil, signerError(ctx, err)
	}
	if err := signed.Verify(); nil != err {
		return nil, err
	}
	if !ledger.SameAddress(signed.Transaction.From, session.Account) || signed.Transaction.Nonce != nonce {
		return nil, fault.ErrSignerMismatch
	}

	ref, err := g.ledger.Submit(ctx, signed)
	if nil != err {
		if fault.IsErrLedger(err) && errors.Is(err, fault.ErrNonceReused) {
			delete(g.nonces, session.Account)
		}
		g.log.Warnf("submit: %s  nonce: %d  error: %s", intent.Operation, nonce, err)
		return nil, ledgerError(err, fault.ErrTransactionSubmit)
	}
	g.nonces[session.Account] = nonce

	g.log.Infof("submitted: %s  %s  asset: %q  nonce: %d", ref, intent.Operation, intent.AssetID, nonce)
	return &Handle{
		TxRef:       ref,
		Transaction: signed,
		Fee:         fee,
	}, nil
}

// Await - wait for a terminal status; a nil error means confirmed
//
// a zero timeout waits as long as ctx allows
func (g *Gateway) Await(ctx context.Context, handle *Handle, timeout time.Duration) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	status, err := g.ledger.AwaitConfirmation(waitCtx, handle.TxRef)
	if nil != err {
		if nil != waitCtx.Err() {
			return fault.Wrap(fault.ErrConfirmationTimeout, "%s", handle.TxRef)
		}
		return ledgerError(err, fault.ErrLedgerUnavailable)
	}

	switch status {
	case ledger.Confirmed:
		g.log.Infof("confirmed: %s", handle.TxRef)
		return nil
	case ledger.Reverted:
		return fault.Wrap(fault.ErrTransactionReverted, "%s", handle.TxRef)
	case ledger.Dropped:
		return fault.Wrap(fault.ErrTransactionDropped, "%s", handle.TxRef)
	default:
		return fault.Wrap(fault.ErrConfirmationTimeout, "%s  status: %s", handle.TxRef, status)
	}
}

// the ledger's next nonce, unless a submission it has not seen yet
// has already used it
func (g *Gateway) nextNonce(ctx context.Context, account string) (uint64, error) {
	nonce, err := g.ledger.NextNonce(ctx, account)
	if nil != err {
		return 0, ledgerError(err, fault.ErrLedgerUnavailable)
	}
	if last, ok := g.nonces[account]; ok && last >= nonce {
		nonce = last + 1
	}
	return nonce, nil
}

// advisory only: failures are logged and ignored
func (g *Gateway) estimate(ctx context.Context, tx *ledger.UnsignedTransaction) *Fee {
	if nil == g.estimator {
		return nil
	}
	fee, err := g.estimator.EstimateFee(ctx, tx)
	if nil != err {
		g.log.Warnf("fee estimate: %s", err)
		return nil
	}
	g.log.Debugf("fee estimate: %s", fee)
	return &fee
}

// the signer's refusal keeps its class; a cancelled prompt is a rejection
func signerError(ctx context.Context, err error) error {
	switch fault.KindOf(err) {
	case fault.KindSignatureRejected, fault.KindWalletUnavailable:
		return err
	}
	if nil != ctx.Err() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fault.ErrSignatureCancelled
	}
	return fault.Internal("SigningTransaction", err)
}

// ledger faults keep their class, anything else becomes class
func ledgerError(err error, class fault.LedgerError) error {
	if fault.IsErrLedger(err) {
		return err
	}
	return fault.Wrap(class, "%s", err)
}
