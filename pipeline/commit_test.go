// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/contentstore"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/fixtures"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/wallet"
)

func TestOwnerCommits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, nil)

	var events []progress.Event
	o := h.commit(owner, draft("a1", fixtures.Owner, "Doc"), &events)
	require.Equal(t, progress.Committed, o.Stage, "failed: %s", o.Message)
	assert.False(t, o.Degraded())
	assert.Equal(t, "a1", o.AssetID)
	assert.Equal(t, asset.Create, o.Action)
	assert.Equal(t, uint64(1), o.Version)
	assert.NotEqual(t, ledger.TxRef(""), o.LedgerTxRef)

	assert.Equal(t, []progress.Stage{
		progress.Validating,
		progress.StoringContent,
		progress.AwaitingAuthorization,
		progress.SigningTransaction,
		progress.AwaitingConfirmation,
		progress.Indexing,
		progress.Committed,
	}, stages(events))
	for i, e := range events {
		assert.Equal(t, o.JobID, e.JobID, "%d: job id", i)
		if i > 0 {
			assert.Greater(t, e.PercentComplete, events[i-1].PercentComplete, "%d: percent", i)
		}
	}
	assert.Equal(t, 100, events[len(events)-1].PercentComplete)

	// all three systems of record agree
	critical, err := asset.Canonical(asset.Metadata{"name": "Doc"})
	require.Nil(t, err)
	fingerprint, err := contentstore.Fingerprint(critical)
	require.Nil(t, err)
	assert.Equal(t, fingerprint.String(), o.Fingerprint)

	data, err := h.store.Fetch(ctx, fingerprint)
	assert.Nil(t, err)
	assert.Equal(t, critical, data)

	anchored, err := h.ledger.Anchor(ctx, "a1")
	assert.Nil(t, err)
	assert.Equal(t, o.Fingerprint, anchored)

	record, err := h.index.GetAsset(ctx, "a1")
	require.Nil(t, err)
	require.NotNil(t, record)
	assert.Equal(t, fixtures.Owner, record.Owner)
	assert.Equal(t, o.Fingerprint, record.Fingerprint)
	assert.Equal(t, o.LedgerTxRef, record.LedgerTxRef)
	assert.Equal(t, uint64(1), record.Version)

	log, err := h.index.TransactionLog(ctx, "a1")
	require.Nil(t, err)
	require.Equal(t, 1, len(log))
	assert.Equal(t, asset.Create, log[0].Action)
	assert.Equal(t, fixtures.Owner, log[0].Actor)
	assert.Equal(t, "", log[0].Warning)

	assert.Equal(t, uint64(1), h.orchestrator.Stats().Committed)
}

func TestGeneratedAssetID(t *testing.T) {
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, nil)

	o := h.commit(owner, draft("", fixtures.Owner, "Untitled"), nil)
	require.True(t, o.Succeeded(), "failed: %s", o.Message)
	assert.Nil(t, asset.ValidateID(o.AssetID), "generated id: %q", o.AssetID)
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, nil)

	texts := []string{
		`{"name":"Doc","size":{"w":1,"h":2},"tags":["x","y"]}`,
		`{"tags":["x","y"],"size":{"h":2,"w":1},"name":"Doc"}`,
	}
	fingerprints := make([]string, 0, len(texts))
	for i, text := range texts {
		var m asset.Metadata
		require.Nil(t, json.Unmarshal([]byte(text), &m))
		d := asset.Draft{
			AssetID:  []string{"a1", "a2"}[i],
			Owner:    fixtures.Owner,
			Critical: m,
		}
		o := h.commit(owner, d, nil)
		require.True(t, o.Succeeded(), "%d: failed: %s", i, o.Message)
		fingerprints = append(fingerprints, o.Fingerprint)
	}
	assert.Equal(t, fingerprints[0], fingerprints[1])
	assert.Equal(t, 1, h.store.Len(), "content stored twice")
}

func TestValidationFailures(t *testing.T) {
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, nil)

	items := []struct {
		draft asset.Draft
		err   error
	}{
		{draft("bad id", fixtures.Owner, "Doc"), fault.ErrAssetIDInvalid},
		{draft("a1", "nobody", "Doc"), fault.ErrInvalidAddress},
		{draft("a1", fixtures.Owner, "  "), fault.ErrDisplayNameRequired},
		{asset.Draft{AssetID: "a1", Owner: fixtures.Owner}, fault.ErrDisplayNameRequired},
	}
	for i, item := range items {
		var events []progress.Event
		o := h.commit(owner, item.draft, &events)
		assert.Equal(t, progress.Failed, o.Stage, "%d", i)
		assert.Equal(t, progress.Validating, o.FailedStage, "%d", i)
		assert.Equal(t, fault.KindValidation, o.Reason, "%d", i)
		assert.Equal(t, item.err, o.Err, "%d", i)
		assert.Equal(t, []progress.Stage{progress.Validating, progress.Failed}, stages(events), "%d", i)
	}
	assert.Equal(t, 0, h.store.Writes())
	noTransactions(t, h.ledger, fixtures.Owner)
	assert.Equal(t, uint64(len(items)), h.orchestrator.Stats().Failed)
}

func TestWalletUnavailable(t *testing.T) {
	h := newHarness(t, options{})

	o := h.commit(wallet.Disconnected{}, draft("a1", fixtures.Owner, "Doc"), nil)
	assert.Equal(t, progress.Validating, o.FailedStage)
	assert.Equal(t, fault.KindWalletUnavailable, o.Reason)
	assert.Equal(t, 0, h.store.Writes())
}

func TestDelegateWithoutGrant(t *testing.T) {
	h := newHarness(t, options{})
	delegate := newSigner(t, fixtures.DelegatePrivateKey, nil)

	var events []progress.Event
	o := h.commit(delegate, draft("a1", fixtures.Owner, "Doc"), &events)
	assert.Equal(t, progress.Failed, o.Stage)
	assert.Equal(t, progress.AwaitingAuthorization, o.FailedStage)
	assert.Equal(t, fault.KindAuthorization, o.Reason)

	var authErr fault.AuthorizationError
	require.ErrorAs(t, o.Err, &authErr)
	assert.Equal(t, fixtures.Owner, authErr.Owner)
	assert.Equal(t, fixtures.Delegate, authErr.Delegate)
	assert.Equal(t, "update", authErr.Capability)

	assert.Equal(t, []progress.Stage{
		progress.Validating,
		progress.AwaitingAuthorization,
		progress.Failed,
	}, stages(events))
	assert.Equal(t, 0, h.store.Writes(), "content store was written")
	noTransactions(t, h.ledger, fixtures.Delegate)
}

func TestDelegateWithGrant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, nil)
	delegate := newSigner(t, fixtures.DelegatePrivateKey, nil)

	g := h.authorizer.RequestDelegation(ctx, owner, wallet.Snapshot(owner), fixtures.Delegate, ledger.CapabilityUpdate, true, nil)
	require.True(t, g.Succeeded(), "grant: %s", g.Message)

	o := h.commit(delegate, draft("a1", fixtures.Owner, "Doc"), nil)
	require.True(t, o.Succeeded(), "failed: %s", o.Message)

	record, err := h.index.GetAsset(ctx, "a1")
	require.Nil(t, err)
	assert.Equal(t, fixtures.Owner, record.Owner)

	log, err := h.index.TransactionLog(ctx, "a1")
	require.Nil(t, err)
	require.Equal(t, 1, len(log))
	assert.Equal(t, fixtures.Delegate, log[0].Actor)

	// update capability does not cover deletion
	d := h.orchestrator.Delete(ctx, wallet.Snapshot(delegate), delegate, "a1", nil)
	assert.Equal(t, progress.AwaitingAuthorization, d.FailedStage)
	assert.Equal(t, fault.KindAuthorization, d.Reason)

	record, err = h.index.GetAsset(ctx, "a1")
	require.Nil(t, err)
	assert.False(t, record.Deleted, "refused delete applied")
}

func TestOwnerAddressCaseIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, nil)

	shouted := "0x" + strings.ToUpper(fixtures.Owner[2:])
	o := h.commit(owner, draft("a1", shouted, "Doc"), nil)
	require.True(t, o.Succeeded(), "owner refused: %s  %s", o.Reason, o.Message)

	record, err := h.index.GetAsset(ctx, "a1")
	require.Nil(t, err)
	assert.Equal(t, fixtures.Owner, record.Owner, "owner not normalised")

	// the same owner in another case is still the owner
	o = h.commit(owner, draft("a1", shouted, "Doc v2"), nil)
	require.True(t, o.Succeeded(), "update refused: %s  %s", o.Reason, o.Message)
	assert.Equal(t, uint64(2), o.Version)
}

func TestSignatureRejectedLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, options{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, approverFunc(func(context.Context, *ledger.UnsignedTransaction) error {
		return fault.ErrSignatureDeclined
	}))

	var events []progress.Event
	o := h.commit(owner, draft("a1", fixtures.Owner, "Doc"), &events)
	assert.Equal(t, progress.Failed, o.Stage)
	assert.Equal(t, progress.SigningTransaction, o.FailedStage)
	assert.Equal(t, fault.KindSignatureRejected, o.Reason)
	assert.True(t, fault.Retryable(o.Err))
	assert.Contains(t, stages(events), progress.StoringContent)

	assert.Equal(t, 1, h.store.Writes(), "content was not stored first")
	assert.Equal(t, 0, h.store.Len(), "content outlived the attempt")
	noTransactions(t, h.ledger, fixtures.Owner)

	record, err := h.index.GetAsset(ctx, "a1")
	assert.Nil(t, err)
	assert.Nil(t, record, "rejected asset was indexed")
}

func TestRejectionKeepsSharedContent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, options{})
	reject := false
	owner := newSigner(t, fixtures.OwnerPrivateKey, approverFunc(func(context.Context, *ledger.UnsignedTransaction) error {
		if reject {
			return fault.ErrSignatureDeclined
		}
		return nil
	}))

	first := h.commit(owner, draft("a1", fixtures.Owner, "Same"), nil)
	require.True(t, first.Succeeded())

	reject = true
	o := h.commit(owner, draft("a2", fixtures.Owner, "Same"), nil)
	assert.Equal(t, fault.KindSignatureRejected, o.Reason)

	id, err := contentstore.Parse(first.Fingerprint)
	require.Nil(t, err)
	present, err := h.store.Has(ctx, id)
	assert.Nil(t, err)
	assert.True(t, present, "content of a committed asset was removed")
}

func TestSignatureCancelled(t *testing.T) {
	h := newHarness(t, options{})
	asked := make(chan struct{})
	owner := newSigner(t, fixtures.OwnerPrivateKey, approverFunc(func(ctx context.Context, tx *ledger.UnsignedTransaction) error {
		close(asked)
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan progress.Outcome)
	go func() {
		done <- h.orchestrator.Commit(ctx, wallet.Snapshot(owner), owner, draft("a1", fixtures.Owner, "Doc"), nil)
	}()

	<-asked
	cancel()
	o := <-done

	assert.Equal(t, progress.SigningTransaction, o.FailedStage)
	assert.Equal(t, fault.KindSignatureRejected, o.Reason)
	assert.Equal(t, fault.ErrSignatureCancelled, o.Err)
	assert.Equal(t, 0, h.store.Len())
	noTransactions(t, h.ledger, fixtures.Owner)
}
