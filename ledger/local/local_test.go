// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package local_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/fixtures"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/ledger/local"
	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	rc := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(rc)
}

func newLedger() *local.Ledger {
	return local.NewMemory(logger.New(fixtures.LogCategory), chain.Local, 0)
}

func submit(t *testing.T, l *local.Ledger, key ed25519.PrivateKey, from string, intent ledger.Intent) ledger.TxRef {
	ctx := context.Background()
	nonce, err := l.NextNonce(ctx, from)
	assert.Nil(t, err, "next nonce")
	tx := &ledger.UnsignedTransaction{
		Chain:  chain.Local,
		From:   from,
		Nonce:  nonce,
		Intent: intent,
	}
	stx, err := tx.Sign(key)
	assert.Nil(t, err, "sign")
	ref, err := l.Submit(ctx, stx)
	assert.Nil(t, err, "submit")
	return ref
}

func TestOwnerAnchors(t *testing.T) {
	l := newLedger()
	defer l.Close()
	ctx := context.Background()

	ref := submit(t, l, fixtures.OwnerPrivateKey, fixtures.Owner, ledger.AnchorIntent("a1", fixtures.Owner, "fp1"))

	status, err := l.Status(ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Pending, status, "should be pending before confirmation")

	f, err := l.Anchor(ctx, "a1")
	assert.Nil(t, err)
	assert.Equal(t, "", f, "anchored before confirmation")

	status, err = l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Confirmed, status)

	f, err = l.Anchor(ctx, "a1")
	assert.Nil(t, err)
	assert.Equal(t, "fp1", f, "wrong anchor")

	// awaiting again is stable
	status, err = l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Confirmed, status)
}

func TestDelegateNeedsGrant(t *testing.T) {
	l := newLedger()
	defer l.Close()
	ctx := context.Background()

	ref := submit(t, l, fixtures.DelegatePrivateKey, fixtures.Delegate, ledger.AnchorIntent("a1", fixtures.Owner, "fp1"))
	status, err := l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Reverted, status, "delegate without grant not reverted")

	// owner grants update
	ref = submit(t, l, fixtures.OwnerPrivateKey, fixtures.Owner, ledger.DelegationIntent(fixtures.Delegate, ledger.CapabilityUpdate, true))
	status, err = l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Confirmed, status)

	g, err := l.ReadDelegation(ctx, fixtures.Owner, fixtures.Delegate)
	assert.Nil(t, err)
	assert.True(t, g.Allows(ledger.CapabilityUpdate), "grant not active")
	assert.False(t, g.Allows(ledger.CapabilityDelete), "unexpected capability")

	ref = submit(t, l, fixtures.DelegatePrivateKey, fixtures.Delegate, ledger.AnchorIntent("a1", fixtures.Owner, "fp1"))
	status, err = l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Confirmed, status, "delegate with grant reverted")

	// deleting needs the delete capability
	ref = submit(t, l, fixtures.DelegatePrivateKey, fixtures.Delegate, ledger.AnchorIntent("a1", fixtures.Owner, ""))
	status, err = l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Reverted, status, "delete without capability")

	// revoke
	ref = submit(t, l, fixtures.OwnerPrivateKey, fixtures.Owner, ledger.DelegationIntent(fixtures.Delegate, ledger.CapabilityUpdate, false))
	_, err = l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	g, err = l.ReadDelegation(ctx, fixtures.Owner, fixtures.Delegate)
	assert.Nil(t, err)
	assert.False(t, g.Active, "revoke did not apply")
}

func TestAnchorOwnedByAnother(t *testing.T) {
	l := newLedger()
	defer l.Close()
	ctx := context.Background()

	ref := submit(t, l, fixtures.OwnerPrivateKey, fixtures.Owner, ledger.AnchorIntent("a1", fixtures.Owner, "fp1"))
	_, _ = l.AwaitConfirmation(ctx, ref)

	ref = submit(t, l, fixtures.OtherPrivateKey, fixtures.Other, ledger.AnchorIntent("a1", fixtures.Other, "fp2"))
	status, err := l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Reverted, status, "took over another owner's asset")
}

func TestSubmitRejects(t *testing.T) {
	l := newLedger()
	defer l.Close()
	ctx := context.Background()

	tx := &ledger.UnsignedTransaction{
		Chain:  chain.Local,
		From:   fixtures.Owner,
		Nonce:  1,
		Intent: ledger.AnchorIntent("a1", fixtures.Owner, "fp1"),
	}
	stx, err := tx.Sign(fixtures.OwnerPrivateKey)
	assert.Nil(t, err)

	_, err = l.Submit(ctx, stx)
	assert.Nil(t, err, "first submit")

	_, err = l.Submit(ctx, stx)
	assert.True(t, fault.IsErrLedger(err), "nonce reuse not rejected: %v", err)

	tx.Chain = chain.Testing
	tx.Nonce = 2
	stx, _ = tx.Sign(fixtures.OwnerPrivateKey)
	_, err = l.Submit(ctx, stx)
	assert.True(t, fault.IsErrLedger(err), "wrong chain not rejected: %v", err)

	tx.Chain = chain.Local
	stx, _ = tx.Sign(fixtures.OtherPrivateKey)
	_, err = l.Submit(ctx, stx)
	assert.Equal(t, fault.ErrInvalidSignature, err, "forged sender accepted")

	_, err = l.Status("nothing")
	assert.Equal(t, fault.ErrTransactionNotFound, err)
}

func TestDrop(t *testing.T) {
	l := newLedger()
	defer l.Close()
	ctx := context.Background()

	ref := submit(t, l, fixtures.OwnerPrivateKey, fixtures.Owner, ledger.AnchorIntent("a1", fixtures.Owner, "fp1"))
	assert.Nil(t, l.Drop(ref))

	status, err := l.AwaitConfirmation(ctx, ref)
	assert.Nil(t, err)
	assert.Equal(t, ledger.Dropped, status)

	f, _ := l.Anchor(ctx, "a1")
	assert.Equal(t, "", f, "dropped transaction applied")
}

func TestAwaitCancelled(t *testing.T) {
	l := local.NewMemory(logger.New(fixtures.LogCategory), chain.Local, time.Hour)
	defer l.Close()

	ref := submit(t, l, fixtures.OwnerPrivateKey, fixtures.Owner, ledger.AnchorIntent("a1", fixtures.Owner, "fp1"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	status, err := l.AwaitConfirmation(ctx, ref)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Equal(t, ledger.Pending, status)
}
