// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package delegation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/wallet"
)

// RequestDelegation - grant (enable) or revoke capabilities for a
// delegate, signed by the session's account as owner
//
// after confirmation the grant is read back from the ledger so the
// cache holds what the ledger holds
func (a *Authorizer) RequestDelegation(ctx context.Context, signer wallet.Signer, session wallet.Session, delegate string, capabilities ledger.Capabilities, enable bool, sink progress.Sink) progress.Outcome {
	r := progress.NewReporter(uuid.New().String(), sink, nil)

	r.Enter(progress.Validating, fmt.Sprintf("delegate: %s  capabilities: %s  enable: %t", delegate, capabilities, enable))
	if err := validateRequest(session, delegate, capabilities, enable); nil != err {
		return r.Fail(err)
	}
	owner := session.Account
	delegate = ledger.NormalizeAddress(delegate)

	intent := ledger.DelegationIntent(delegate, capabilities, enable)

	r.Enter(progress.SigningTransaction, "waiting for signature")
	handle, err := a.gateway.SignAndSubmit(ctx, signer, session, intent)
	if nil != err {
		return r.Fail(err)
	}

	r.Enter(progress.AwaitingConfirmation, "submitted: "+handle.TxRef.String())
	err = a.gateway.Await(ctx, handle, a.confirmationTimeout)

	// the ledger may have changed even if the wait failed
	a.Invalidate(owner, delegate)
	if nil != err {
		return r.Fail(err)
	}

	grant, err := a.Reconcile(ctx, owner, delegate)
	if nil != err {
		a.log.Warnf("reconcile after confirmation: %s → %s  error: %s", owner, delegate, err)
	} else if enable && !grant.Allows(capabilities) {
		a.log.Errorf("confirmed grant not visible: %s → %s", owner, delegate)
	}

	a.log.Infof("delegation: %s → %s  %s  enable: %t  tx: %s", owner, delegate, capabilities, enable, handle.TxRef)
	outcome := r.Commit("confirmed: " + handle.TxRef.String())
	outcome.LedgerTxRef = handle.TxRef
	return outcome
}

func validateRequest(session wallet.Session, delegate string, capabilities ledger.Capabilities, enable bool) error {
	if !session.Connected() {
		return fault.ErrNoAccount
	}
	if !ledger.ValidAddress(delegate) {
		return fault.ErrInvalidAddress
	}
	if ledger.SameAddress(delegate, session.Account) {
		return fault.ErrDelegateIsOwner
	}
	if enable && 0 == capabilities {
		return fault.ErrCapabilitiesRequired
	}
	if 0 != capabilities && !capabilities.Valid() {
		return fault.ErrCapabilityInvalid
	}
	return nil
}
