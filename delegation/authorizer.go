// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package delegation - decides whether an account may write to the
// ledger on behalf of an asset owner, and drives grant and revoke
//
// the ledger is the source of truth; answers are cached for a short
// time per owner and delegate, and a cached refusal is always checked
// against the ledger once more before it is returned
package delegation

import (
	"context"
	"time"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/signing"
	"github.com/bitmark-inc/logger"
)

// Authorizer - delegation checks and the grant/revoke flow
type Authorizer struct {
	log                 *logger.L
	ledger              ledger.Ledger
	gateway             *signing.Gateway
	cache               *grantCache
	confirmationTimeout time.Duration
}

// New - authorizer caching ledger answers for ttl
func New(log *logger.L, l ledger.Ledger, gateway *signing.Gateway, ttl time.Duration, confirmationTimeout time.Duration) *Authorizer {
	return &Authorizer{
		log:                 log,
		ledger:              l,
		gateway:             gateway,
		cache:               newGrantCache(ttl),
		confirmationTimeout: confirmationTimeout,
	}
}

// Authorize - may delegate write for owner with capability
//
// the owner is always authorised; a refusal is an AuthorizationError
// and a failed ledger read is a LedgerError
func (a *Authorizer) Authorize(ctx context.Context, owner string, delegate string, capability ledger.Capabilities) error {
	if ledger.SameAddress(owner, delegate) {
		return nil
	}
	owner = ledger.NormalizeAddress(owner)
	delegate = ledger.NormalizeAddress(delegate)

	grant, found := a.cache.get(owner, delegate)
	if found && grant.Allows(capability) {
		return nil
	}
	if found {
		a.log.Debugf("cached refusal: %s → %s  %s: reading ledger", owner, delegate, capability)
	}

	grant, err := a.Reconcile(ctx, owner, delegate)
	if nil != err {
		return err
	}
	if grant.Allows(capability) {
		return nil
	}

	a.log.Infof("refused: %s → %s  %s", owner, delegate, capability)
	return fault.AuthorizationError{
		Owner:      owner,
		Delegate:   delegate,
		Capability: capability.String(),
	}
}

// Reconcile - read the grant from the ledger and replace the cached entry
func (a *Authorizer) Reconcile(ctx context.Context, owner string, delegate string) (*ledger.Grant, error) {
	owner = ledger.NormalizeAddress(owner)
	delegate = ledger.NormalizeAddress(delegate)
	grant, err := a.ledger.ReadDelegation(ctx, owner, delegate)
	if nil != err {
		if fault.IsErrLedger(err) || fault.IsErrValidation(err) {
			return nil, err
		}
		return nil, fault.Wrap(fault.ErrLedgerUnavailable, "read delegation: %s", err)
	}
	a.cache.set(owner, delegate, grant)
	return grant, nil
}

// Observe - record a delegation change seen outside this authorizer
func (a *Authorizer) Observe(grant *ledger.Grant) {
	if nil == grant {
		return
	}
	a.log.Debugf("observed: %s → %s  active: %t  %s", grant.Owner, grant.Delegate, grant.Active, grant.Capabilities)
	a.cache.set(grant.Owner, grant.Delegate, grant)
}

// Invalidate - forget the cached answer for a pair
func (a *Authorizer) Invalidate(owner string, delegate string) {
	a.cache.delete(owner, delegate)
}

// Flush - forget every cached answer
func (a *Authorizer) Flush() {
	a.cache.clear()
}
