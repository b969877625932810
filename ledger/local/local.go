// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package local - an embedded single node ledger for the local and
// testing chains
//
// Transactions are verified on submit and applied when they are
// confirmed; a transaction that breaks a ledger rule at that point
// (a delegate without the right capability, an asset anchored by
// another owner) is reverted, exactly as a contract call would be.
package local

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/logger"
)

// key prefixes
const (
	anchorPrefix     = 'A'
	delegationPrefix = 'D'
	noncePrefix      = 'N'
	statusPrefix     = 'S'
)

// anchored asset record
type anchor struct {
	Owner       string       `json:"owner"`
	Fingerprint string       `json:"fingerprint"`
	TxRef       ledger.TxRef `json:"txRef"`
}

// Ledger - the embedded ledger
type Ledger struct {
	sync.Mutex
	log       *logger.L
	chain     string
	db        *leveldb.DB
	blockTime time.Duration
	pending   map[ledger.TxRef]*ledger.SignedTransaction
	now       func() time.Time
}

var _ ledger.Ledger = (*Ledger)(nil)

// Open - ledger stored in a leveldb directory
func Open(log *logger.L, chainName string, path string, blockTime time.Duration) (*Ledger, error) {
	db, err := leveldb.OpenFile(path, nil)
	if nil != err {
		return nil, err
	}
	return newLedger(log, chainName, db, blockTime), nil
}

// NewMemory - ledger held only in memory, for tests
func NewMemory(log *logger.L, chainName string, blockTime time.Duration) *Ledger {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	fault.PanicIfError("local ledger memory storage", err)
	return newLedger(log, chainName, db, blockTime)
}

func newLedger(log *logger.L, chainName string, db *leveldb.DB, blockTime time.Duration) *Ledger {
	return &Ledger{
		log:       log,
		chain:     chainName,
		db:        db,
		blockTime: blockTime,
		pending:   make(map[ledger.TxRef]*ledger.SignedTransaction),
		now:       time.Now,
	}
}

// Close - release the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// ReadDelegation - current grant, nil if never granted
func (l *Ledger) ReadDelegation(ctx context.Context, owner string, delegate string) (*ledger.Grant, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	l.Lock()
	defer l.Unlock()
	return l.getGrant(owner, delegate)
}

// Anchor - fingerprint currently associated with an asset
func (l *Ledger) Anchor(ctx context.Context, assetID string) (string, error) {
	if err := ctx.Err(); nil != err {
		return "", err
	}
	l.Lock()
	defer l.Unlock()
	a, err := l.getAnchor(assetID)
	if nil != err || nil == a {
		return "", err
	}
	return a.Fingerprint, nil
}

// NextNonce - one more than the last nonce seen from the account
func (l *Ledger) NextNonce(ctx context.Context, account string) (uint64, error) {
	if err := ctx.Err(); nil != err {
		return 0, err
	}
	l.Lock()
	defer l.Unlock()
	last, err := l.getNonce(account)
	return last + 1, err
}

// Submit - verify and queue a transaction
func (l *Ledger) Submit(ctx context.Context, tx *ledger.SignedTransaction) (ledger.TxRef, error) {
	if err := ctx.Err(); nil != err {
		return "", err
	}
	if tx.Transaction.Chain != l.chain {
		return "", fault.Wrap(fault.ErrTransactionSubmit, "chain: %q expected: %q", tx.Transaction.Chain, l.chain)
	}
	if err := tx.Verify(); nil != err {
		return "", err
	}
	ref, err := tx.Ref()
	if nil != err {
		return "", err
	}

	l.Lock()
	defer l.Unlock()

	from := tx.Transaction.From
	last, err := l.getNonce(from)
	if nil != err {
		return "", err
	}
	if tx.Transaction.Nonce <= last {
		return "", fault.Wrap(fault.ErrNonceReused, "nonce: %d last: %d", tx.Transaction.Nonce, last)
	}

	batch := new(leveldb.Batch)
	putNonce(batch, from, tx.Transaction.Nonce)
	batch.Put(key(statusPrefix, string(ref)), []byte{byte(ledger.Pending)})
	if err := l.db.Write(batch, nil); nil != err {
		return "", err
	}
	l.pending[ref] = tx

	l.log.Infof("submitted: %s  %s from: %s nonce: %d", ref, tx.Transaction.Intent.Operation, from, tx.Transaction.Nonce)
	return ref, nil
}

// AwaitConfirmation - wait one block time then apply the transaction
func (l *Ledger) AwaitConfirmation(ctx context.Context, ref ledger.TxRef) (ledger.Status, error) {
	status, err := l.Status(ref)
	if nil != err || status.Terminal() {
		return status, err
	}

	if l.blockTime > 0 {
		timer := time.NewTimer(l.blockTime)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ledger.Pending, ctx.Err()
		case <-timer.C:
		}
	}

	return l.confirm(ref)
}

// Status - current status without waiting
func (l *Ledger) Status(ref ledger.TxRef) (ledger.Status, error) {
	l.Lock()
	defer l.Unlock()
	return l.getStatus(ref)
}

// Drop - discard a pending transaction as if it never made a block
func (l *Ledger) Drop(ref ledger.TxRef) error {
	l.Lock()
	defer l.Unlock()

	status, err := l.getStatus(ref)
	if nil != err {
		return err
	}
	if status.Terminal() {
		return nil
	}
	delete(l.pending, ref)
	l.log.Warnf("dropped: %s", ref)
	return l.db.Put(key(statusPrefix, string(ref)), []byte{byte(ledger.Dropped)}, nil)
}

// apply a pending transaction
func (l *Ledger) confirm(ref ledger.TxRef) (ledger.Status, error) {
	l.Lock()
	defer l.Unlock()

	status, err := l.getStatus(ref)
	if nil != err || status.Terminal() {
		return status, err
	}

	tx, ok := l.pending[ref]
	if !ok {
		// pending status survived a restart but the transaction did not
		status = ledger.Dropped
		return status, l.db.Put(key(statusPrefix, string(ref)), []byte{byte(status)}, nil)
	}
	delete(l.pending, ref)

	batch := new(leveldb.Batch)
	status, err = l.apply(batch, ref, tx)
	if nil != err {
		return ledger.Pending, err
	}
	batch.Put(key(statusPrefix, string(ref)), []byte{byte(status)})
	if err := l.db.Write(batch, nil); nil != err {
		return ledger.Pending, err
	}

	l.log.Infof("%s: %s", status, ref)
	return status, nil
}

// the ledger rules
func (l *Ledger) apply(batch *leveldb.Batch, ref ledger.TxRef, tx *ledger.SignedTransaction) (ledger.Status, error) {
	from := tx.Transaction.From
	intent := tx.Transaction.Intent

	switch intent.Operation {

	case ledger.AnchorAsset:
		existing, err := l.getAnchor(intent.AssetID)
		if nil != err {
			return ledger.Pending, err
		}
		if nil != existing && !ledger.SameAddress(existing.Owner, intent.Owner) {
			l.log.Warnf("revert: %s asset: %s owned by: %s", ref, intent.AssetID, existing.Owner)
			return ledger.Reverted, nil
		}
		if !ledger.SameAddress(from, intent.Owner) {
			grant, err := l.getGrant(intent.Owner, from)
			if nil != err {
				return ledger.Pending, err
			}
			if !grant.Allows(intent.Capability()) {
				l.log.Warnf("revert: %s sender: %s lacks: %s", ref, from, intent.Capability())
				return ledger.Reverted, nil
			}
		}
		a := anchor{
			Owner:       ledger.NormalizeAddress(intent.Owner),
			Fingerprint: intent.Fingerprint,
			TxRef:       ref,
		}
		buffer, err := json.Marshal(a)
		if nil != err {
			return ledger.Pending, err
		}
		batch.Put(key(anchorPrefix, intent.AssetID), buffer)

	case ledger.SetDelegation:
		if ledger.SameAddress(from, intent.Delegate) {
			return ledger.Reverted, nil
		}
		g := ledger.Grant{
			Owner:        ledger.NormalizeAddress(from),
			Delegate:     ledger.NormalizeAddress(intent.Delegate),
			Active:       intent.Enable,
			Capabilities: intent.Capabilities,
			GrantedAt:    l.now().UTC(),
		}
		if !intent.Enable {
			g.Capabilities = 0
		}
		buffer, err := json.Marshal(g)
		if nil != err {
			return ledger.Pending, err
		}
		batch.Put(grantKey(from, intent.Delegate), buffer)

	default:
		return ledger.Reverted, nil
	}
	return ledger.Confirmed, nil
}

func (l *Ledger) getStatus(ref ledger.TxRef) (ledger.Status, error) {
	value, err := l.db.Get(key(statusPrefix, string(ref)), nil)
	if leveldb.ErrNotFound == err {
		return ledger.Pending, fault.ErrTransactionNotFound
	}
	if nil != err {
		return ledger.Pending, err
	}
	return ledger.Status(value[0]), nil
}

func (l *Ledger) getGrant(owner string, delegate string) (*ledger.Grant, error) {
	value, err := l.db.Get(grantKey(owner, delegate), nil)
	if leveldb.ErrNotFound == err {
		return nil, nil
	}
	if nil != err {
		return nil, err
	}
	var g ledger.Grant
	if err := json.Unmarshal(value, &g); nil != err {
		return nil, err
	}
	return &g, nil
}

func (l *Ledger) getAnchor(assetID string) (*anchor, error) {
	value, err := l.db.Get(key(anchorPrefix, assetID), nil)
	if leveldb.ErrNotFound == err {
		return nil, nil
	}
	if nil != err {
		return nil, err
	}
	var a anchor
	if err := json.Unmarshal(value, &a); nil != err {
		return nil, err
	}
	return &a, nil
}

func (l *Ledger) getNonce(from string) (uint64, error) {
	value, err := l.db.Get(key(noncePrefix, ledger.NormalizeAddress(from)), nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	}
	if nil != err {
		return 0, err
	}
	return binary.BigEndian.Uint64(value), nil
}

func putNonce(batch *leveldb.Batch, from string, nonce uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], nonce)
	batch.Put(key(noncePrefix, ledger.NormalizeAddress(from)), b[:])
}

// prepend the prefix onto the key
func key(prefix byte, s string) []byte {
	k := make([]byte, 1, len(s)+1)
	k[0] = prefix
	return append(k, s...)
}

func grantKey(owner string, delegate string) []byte {
	return key(delegationPrefix, ledger.NormalizeAddress(owner)+"\x00"+ledger.NormalizeAddress(delegate))
}
