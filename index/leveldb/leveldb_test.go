// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/fixtures"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/index/leveldb"
	"github.com/bitmark-inc/logger"
)

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	rc := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(rc)
}

func TestAssetRecord(t *testing.T) {
	ctx := context.Background()
	ix, err := leveldb.NewMemory(logger.New(fixtures.LogCategory))
	assert.Nil(t, err, "open")
	defer ix.Close()

	r, err := ix.GetAsset(ctx, "a1")
	assert.Nil(t, err, "get absent")
	assert.Nil(t, r, "absent record returned")

	record := index.Record{
		AssetID:     "a1",
		Owner:       fixtures.Owner,
		Fingerprint: "bafkfp",
		LedgerTxRef: "ref1",
		Critical:    asset.Metadata{"name": "Doc"},
		NonCritical: asset.Metadata{"colour": "red"},
		Version:     1,
		UpdatedAt:   time.Unix(1600000000, 0).UTC(),
	}
	assert.Nil(t, ix.UpsertAsset(ctx, record), "upsert")

	r, err = ix.GetAsset(ctx, "a1")
	assert.Nil(t, err, "get")
	assert.Equal(t, &record, r, "record changed")
	assert.True(t, r.Anchored(), "record not anchored")

	record.Version = 2
	record.NonCritical = nil
	assert.Nil(t, ix.UpsertAsset(ctx, record), "second upsert")
	r, _ = ix.GetAsset(ctx, "a1")
	assert.Equal(t, uint64(2), r.Version, "record not replaced")
	assert.Nil(t, r.NonCritical, "old metadata kept")
}

func TestTransactionLog(t *testing.T) {
	ctx := context.Background()
	ix, err := leveldb.NewMemory(logger.New(fixtures.LogCategory))
	assert.Nil(t, err, "open")
	defer ix.Close()

	// a1 and a10 share a prefix; their logs must stay apart
	for _, id := range []string{"a1", "a10", "a1"} {
		err := ix.AppendTransactionLogEntry(ctx, index.LogEntry{
			Sequence: 99,
			AssetID:  id,
			Action:   asset.Create,
			Actor:    fixtures.Owner,
		})
		assert.Nil(t, err, "append: %s", id)
	}

	entries, err := ix.TransactionLog(ctx, "a1")
	assert.Nil(t, err, "log")
	assert.Equal(t, 2, len(entries), "wrong entry count")
	for i, e := range entries {
		assert.Equal(t, uint64(i+1), e.Sequence, "sequence not assigned")
		assert.Equal(t, "a1", e.AssetID, "entry from another asset")
	}

	entries, err = ix.TransactionLog(ctx, "absent")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(entries))
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.leveldb")
	log := logger.New(fixtures.LogCategory)

	ix, err := leveldb.Open(log, path)
	assert.Nil(t, err, "open")
	assert.Nil(t, ix.AppendTransactionLogEntry(ctx, index.LogEntry{AssetID: "a1", Action: asset.Create}))
	assert.Nil(t, ix.Close())

	ix, err = leveldb.Open(log, path)
	assert.Nil(t, err, "reopen")
	defer ix.Close()
	assert.Nil(t, ix.AppendTransactionLogEntry(ctx, index.LogEntry{AssetID: "a1", Action: asset.Update}))

	entries, err := ix.TransactionLog(ctx, "a1")
	assert.Nil(t, err)
	assert.Equal(t, 2, len(entries), "log lost on reopen")
	assert.Equal(t, asset.Update, entries[1].Action)
	assert.Equal(t, uint64(2), entries[1].Sequence)
}
