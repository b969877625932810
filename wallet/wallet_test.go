// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/fixtures"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	rc := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(rc)
}

func ownerKey(t *testing.T) *wallet.Key {
	k, err := wallet.KeyFromSeed(chain.Local, fixtures.OwnerPrivateKey.Seed())
	require.Nil(t, err, "key from seed")
	return k
}

func anchorTx(from string) *ledger.UnsignedTransaction {
	return &ledger.UnsignedTransaction{
		Chain:  chain.Local,
		From:   from,
		Nonce:  1,
		Intent: ledger.AnchorIntent("a1", from, "fp"),
	}
}

func TestKeyfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	k, err := wallet.GenerateKeyfile(path, chain.Testing, "correct horse")
	require.Nil(t, err, "generate")
	assert.True(t, ledger.ValidAddress(k.Address), "bad address: %s", k.Address)

	info, err := os.Stat(path)
	require.Nil(t, err, "stat")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "keyfile readable by others")

	loaded, err := wallet.LoadKeyfile(path, "correct horse")
	require.Nil(t, err, "load")
	assert.Equal(t, k.Address, loaded.Address)
	assert.Equal(t, chain.Testing, loaded.Network)
	assert.Equal(t, k.PrivateKey, loaded.PrivateKey)

	_, err = wallet.LoadKeyfile(path, "wrong horse")
	assert.Equal(t, fault.ErrWrongPassword, err)
}

func TestKeyfileRejectsShortPassword(t *testing.T) {
	_, err := ownerKey(t).Encrypt("short")
	assert.Equal(t, fault.ErrWrongPassword, err)
}

func TestKeyFromSeed(t *testing.T) {
	k := ownerKey(t)
	assert.Equal(t, fixtures.Owner, k.Address)

	_, err := wallet.KeyFromSeed("nowhere", fixtures.OwnerPrivateKey.Seed())
	assert.Equal(t, fault.ErrWrongNetwork, err)
}

func TestSnapshot(t *testing.T) {
	s := wallet.NewKeySigner(logger.New(fixtures.LogCategory), ownerKey(t), wallet.AutoApprove{})
	session := wallet.Snapshot(s)
	assert.Equal(t, wallet.Session{Account: fixtures.Owner, Network: chain.Local}, session)
	assert.True(t, session.Connected())

	// a later switch does not change an earlier snapshot
	s.Connect(nil)
	assert.Equal(t, fixtures.Owner, session.Account)
	assert.False(t, wallet.Snapshot(s).Connected())
	assert.False(t, wallet.Snapshot(wallet.Disconnected{}).Connected())
}

func TestKeySigner(t *testing.T) {
	ctx := context.Background()
	s := wallet.NewKeySigner(logger.New(fixtures.LogCategory), ownerKey(t), wallet.AutoApprove{})

	signed, err := s.RequestSignature(ctx, anchorTx(fixtures.Owner))
	require.Nil(t, err, "sign")
	assert.Nil(t, signed.Verify(), "signature does not verify")

	_, err = s.RequestSignature(ctx, anchorTx(fixtures.Other))
	assert.Equal(t, fault.ErrSignerMismatch, err)

	tx := anchorTx(fixtures.Owner)
	tx.Chain = chain.Bitmark
	_, err = s.RequestSignature(ctx, tx)
	assert.Equal(t, fault.ErrWrongNetwork, err)

	s.Connect(nil)
	_, err = s.RequestSignature(ctx, anchorTx(fixtures.Owner))
	assert.Equal(t, fault.ErrNoAccount, err)
}

func TestDisconnected(t *testing.T) {
	_, err := wallet.Disconnected{}.RequestSignature(context.Background(), anchorTx(fixtures.Owner))
	assert.True(t, fault.IsErrWalletUnavailable(err))
}

func TestPromptApprove(t *testing.T) {
	p := wallet.NewPrompt(logger.New(fixtures.LogCategory))
	s := wallet.NewKeySigner(logger.New(fixtures.LogCategory), ownerKey(t), p)

	done := make(chan error, 1)
	go func() {
		_, err := s.RequestSignature(context.Background(), anchorTx(fixtures.Owner))
		done <- err
	}()

	id := waitForPending(t, p)
	assert.Nil(t, p.Approve(id), "approve")
	assert.Nil(t, <-done, "approved request failed")
	assert.Equal(t, 0, len(p.Pending()), "request still pending")
	assert.Equal(t, fault.ErrPromptNotFound, p.Approve(id), "approved twice")
}

func TestPromptReject(t *testing.T) {
	p := wallet.NewPrompt(logger.New(fixtures.LogCategory))

	done := make(chan error, 1)
	go func() {
		done <- p.Confirm(context.Background(), anchorTx(fixtures.Owner))
	}()

	id := waitForPending(t, p)
	assert.Nil(t, p.Reject(id), "reject")
	err := <-done
	assert.Equal(t, fault.ErrSignatureDeclined, err)
	assert.True(t, fault.IsErrSignatureRejected(err))
}

func TestPromptCancel(t *testing.T) {
	p := wallet.NewPrompt(logger.New(fixtures.LogCategory))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Confirm(ctx, anchorTx(fixtures.Owner))
	}()

	waitForPending(t, p)
	cancel()
	assert.Equal(t, fault.ErrSignatureCancelled, <-done)
	assert.Equal(t, 0, len(p.Pending()), "cancelled request left queued")
}

func TestPromptExpire(t *testing.T) {
	p := wallet.NewPrompt(logger.New(fixtures.LogCategory))

	done := make(chan error, 1)
	go func() {
		done <- p.Confirm(context.Background(), anchorTx(fixtures.Owner))
	}()

	waitForPending(t, p)
	assert.Equal(t, 0, p.Expire(time.Now(), time.Hour), "fresh request expired")
	assert.Equal(t, 1, p.Expire(time.Now().Add(2*time.Hour), time.Hour), "old request kept")
	assert.Equal(t, fault.ErrSignatureCancelled, <-done)
}

func waitForPending(t *testing.T, p *wallet.Prompt) string {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if pending := p.Pending(); 1 == len(pending) {
			return pending[0].ID
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("request never queued")
	return ""
}
