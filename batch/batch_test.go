// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package batch_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/contentstore/memory"
	"github.com/bitmark-inc/assetcommit/delegation"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/fixtures"
	indexdb "github.com/bitmark-inc/assetcommit/index/leveldb"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/ledger/local"
	"github.com/bitmark-inc/assetcommit/pipeline"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/retry"
	"github.com/bitmark-inc/assetcommit/signing"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	rc := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(rc)
}

// records calls and the most jobs seen running at once
type fakeCommitter struct {
	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
	fail    map[string]error
}

func (f *fakeCommitter) Commit(ctx context.Context, session wallet.Session, signer wallet.Signer, d asset.Draft, sink progress.Sink) progress.Outcome {
	f.calls.Add(1)
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(f.delay)

	r := progress.NewReporter("job-"+d.AssetID, sink, nil)
	r.Enter(progress.Validating, d.AssetID)
	if err, ok := f.fail[d.AssetID]; ok {
		o := r.Fail(err)
		o.AssetID = d.AssetID
		return o
	}
	o := r.Commit("ok")
	o.AssetID = d.AssetID
	return o
}

func drafts(n int) []asset.Draft {
	d := make([]asset.Draft, n)
	for i := range d {
		d[i] = asset.Draft{
			AssetID:  fmt.Sprintf("a%d", i+1),
			Owner:    fixtures.Owner,
			Critical: asset.Metadata{"name": fmt.Sprintf("item %d", i+1)},
		}
	}
	return d
}

func TestRejectedUpFront(t *testing.T) {
	f := &fakeCommitter{}
	c := batch.New(logger.New(fixtures.LogCategory), f, 3, 2)

	duplicated := drafts(3)
	duplicated[2].AssetID = "a1"

	items := []struct {
		drafts []asset.Draft
		err    error
	}{
		{nil, fault.ErrBatchEmpty},
		{drafts(4), fault.ErrBatchTooLarge},
		{duplicated, fault.ErrBatchDuplicateAssetID},
	}
	for i, item := range items {
		summary, err := c.Commit(context.Background(), wallet.Session{}, nil, item.drafts, nil)
		assert.Nil(t, summary, "%d", i)
		assert.True(t, errors.Is(err, item.err), "%d: wrong error: %v", i, err)
		assert.True(t, fault.IsErrValidation(err), "%d", i)
	}
	assert.Equal(t, int32(0), f.calls.Load(), "jobs were created")
}

func TestDefaultLimit(t *testing.T) {
	c := batch.New(logger.New(fixtures.LogCategory), &fakeCommitter{}, 0, 0)
	assert.Equal(t, batch.DefaultLimit, c.Limit())
	assert.Nil(t, c.Check(drafts(batch.DefaultLimit)))
	assert.True(t, errors.Is(c.Check(drafts(batch.DefaultLimit+1)), fault.ErrBatchTooLarge))
}

func TestBoundedWorkers(t *testing.T) {
	f := &fakeCommitter{delay: 20 * time.Millisecond}
	c := batch.New(logger.New(fixtures.LogCategory), f, 10, 2)

	summary, err := c.Commit(context.Background(), wallet.Session{}, nil, drafts(6), nil)
	require.Nil(t, err)
	assert.Equal(t, 6, summary.Counts.Succeeded)
	assert.Equal(t, int32(6), f.calls.Load())
	assert.LessOrEqual(t, f.peak.Load(), int32(2), "too many jobs at once")
}

func TestSiblingsIsolated(t *testing.T) {
	f := &fakeCommitter{
		fail: map[string]error{"a3": fault.ErrContentStoreUnavailable},
	}
	c := batch.New(logger.New(fixtures.LogCategory), f, 10, 3)

	var lock sync.Mutex
	events := make(map[int][]progress.Stage)
	outcomes := 0
	sink := batch.SinkFunc(func(e batch.ItemEvent) {
		lock.Lock()
		defer lock.Unlock()
		if nil != e.Outcome {
			outcomes += 1
			return
		}
		assert.Equal(t, fmt.Sprintf("a%d", e.Position), e.AssetID)
		events[e.Position] = append(events[e.Position], e.Event.Stage)
	})

	summary, err := c.Commit(context.Background(), wallet.Session{}, nil, drafts(5), sink)
	require.Nil(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, batch.Counts{Succeeded: 4, Failed: 1}, summary.Counts)
	assert.Equal(t, []int{1, 2, 4, 5}, summary.Succeeded())

	failed := summary.Failed()
	require.Equal(t, 1, len(failed))
	assert.Equal(t, 3, failed[0].Position)
	assert.Equal(t, fault.KindStorage, failed[0].Reason)

	assert.Equal(t, 5, outcomes)
	assert.Equal(t, []progress.Stage{progress.Validating, progress.Failed}, events[3])
	assert.Equal(t, []progress.Stage{progress.Validating, progress.Committed}, events[1])
}

func TestGeneratedIDs(t *testing.T) {
	f := &fakeCommitter{}
	c := batch.New(logger.New(fixtures.LogCategory), f, 10, 2)

	d := drafts(2)
	d[0].AssetID = ""
	d[1].AssetID = ""
	summary, err := c.Commit(context.Background(), wallet.Session{}, nil, d, nil)
	require.Nil(t, err)
	assert.NotEqual(t, "", summary.Items[0].AssetID)
	assert.NotEqual(t, summary.Items[0].AssetID, summary.Items[1].AssetID)
	assert.Equal(t, summary.Items[0].AssetID, summary.Items[0].Outcome.AssetID)
	assert.Equal(t, "", d[0].AssetID, "caller's drafts modified")
}

func TestSummaryJSON(t *testing.T) {
	f := &fakeCommitter{
		fail: map[string]error{"a2": fault.ErrSignatureDeclined},
	}
	c := batch.New(logger.New(fixtures.LogCategory), f, 10, 1)
	summary, err := c.Commit(context.Background(), wallet.Session{}, nil, drafts(2), nil)
	require.Nil(t, err)

	data, err := json.Marshal(summary)
	require.Nil(t, err)

	var report struct {
		BatchID   string `json:"batchId"`
		Succeeded []int  `json:"succeeded"`
		Failed    []struct {
			Position int    `json:"position"`
			Reason   string `json:"reason"`
		} `json:"failed"`
	}
	require.Nil(t, json.Unmarshal(data, &report))
	assert.Equal(t, summary.BatchID, report.BatchID)
	assert.Equal(t, []int{1}, report.Succeeded)
	require.Equal(t, 1, len(report.Failed))
	assert.Equal(t, 2, report.Failed[0].Position)
	assert.Equal(t, "SignatureRejectedError", report.Failed[0].Reason)
}

// the whole stack: three drafts, the wallet refuses the second
func TestWalletRejectsOneOfThree(t *testing.T) {
	ctx := context.Background()
	log := logger.New(fixtures.LogCategory)

	l := local.NewMemory(log, chain.Local, 0)
	defer l.Close()
	ix, err := indexdb.NewMemory(log)
	require.Nil(t, err)
	defer ix.Close()
	store := memory.New()

	gateway := signing.New(log, chain.Local, l, nil)
	o, err := pipeline.New(pipeline.Config{
		Log:           log,
		Store:         store,
		Ledger:        l,
		Index:         ix,
		Gateway:       gateway,
		Authorizer:    delegation.New(log, l, gateway, time.Minute, time.Second),
		StoragePolicy: retry.Zero(1),
		LedgerPolicy:  retry.Zero(1),
	})
	require.Nil(t, err)

	key, err := wallet.KeyFromSeed(chain.Local, fixtures.OwnerPrivateKey.Seed())
	require.Nil(t, err)
	signer := wallet.NewKeySigner(log, key, rejectAsset("a2"))

	c := batch.New(log, o, batch.DefaultLimit, 3)
	summary, err := c.Commit(ctx, wallet.Snapshot(signer), signer, drafts(3), nil)
	require.Nil(t, err)

	assert.Equal(t, []int{1, 3}, summary.Succeeded())
	failed := summary.Failed()
	require.Equal(t, 1, len(failed))
	assert.Equal(t, 2, failed[0].Position)
	assert.Equal(t, fault.KindSignatureRejected, failed[0].Reason)
	assert.Equal(t, progress.SigningTransaction.String(), failed[0].Stage)

	for _, id := range []string{"a1", "a3"} {
		record, err := ix.GetAsset(ctx, id)
		require.Nil(t, err)
		assert.NotNil(t, record, "%s not indexed", id)
	}
	record, err := ix.GetAsset(ctx, "a2")
	assert.Nil(t, err)
	assert.Nil(t, record)
	assert.Equal(t, 2, store.Len())
}

func TestStorageFailureInOneItem(t *testing.T) {
	log := logger.New(fixtures.LogCategory)

	l := local.NewMemory(log, chain.Local, 0)
	defer l.Close()
	ix, err := indexdb.NewMemory(log)
	require.Nil(t, err)
	defer ix.Close()
	store := memory.New()
	store.FailNext(1)

	gateway := signing.New(log, chain.Local, l, nil)
	o, err := pipeline.New(pipeline.Config{
		Log:           log,
		Store:         store,
		Ledger:        l,
		Index:         ix,
		Gateway:       gateway,
		Authorizer:    delegation.New(log, l, gateway, time.Minute, time.Second),
		StoragePolicy: retry.Zero(1),
		LedgerPolicy:  retry.Zero(1),
	})
	require.Nil(t, err)

	key, err := wallet.KeyFromSeed(chain.Local, fixtures.OwnerPrivateKey.Seed())
	require.Nil(t, err)
	signer := wallet.NewKeySigner(log, key, wallet.AutoApprove{})

	n := 4
	summary, err := batch.New(log, o, batch.DefaultLimit, 2).Commit(context.Background(), wallet.Snapshot(signer), signer, drafts(n), nil)
	require.Nil(t, err)
	assert.Equal(t, 1, summary.Counts.Failed)
	assert.Equal(t, n-1, summary.Counts.Succeeded)
	require.Equal(t, 1, len(summary.Failed()))
	assert.Equal(t, fault.KindStorage, summary.Failed()[0].Reason)
}

type rejectAsset string

func (r rejectAsset) Confirm(ctx context.Context, tx *ledger.UnsignedTransaction) error {
	if string(r) == tx.Intent.AssetID {
		return fault.ErrSignatureDeclined
	}
	return nil
}
