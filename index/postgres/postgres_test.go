// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/fixtures"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/index/postgres"
	"github.com/bitmark-inc/logger"
)

// set to a disposable database to run the server tests
const dsnVariable = "ASSETCOMMIT_TEST_DSN"

func TestMain(m *testing.M) {
	fixtures.SetupTestLogger()
	rc := m.Run()
	fixtures.TeardownTestLogger()
	os.Exit(rc)
}

func TestConnectRejectsBadDSN(t *testing.T) {
	_, err := postgres.Connect(context.Background(), logger.New(fixtures.LogCategory), "::not a dsn::")
	assert.NotNil(t, err)
}

func TestServer(t *testing.T) {
	dsn := os.Getenv(dsnVariable)
	if "" == dsn {
		t.Skipf("%s not set", dsnVariable)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ix, err := postgres.Connect(ctx, logger.New(fixtures.LogCategory), dsn)
	require.Nil(t, err, "connect")
	defer ix.Close()
	require.Nil(t, ix.Migrate(ctx), "migrate")

	// unique per run so a shared database can be reused
	assetID := "pg-" + uuid.New().String()

	r, err := ix.GetAsset(ctx, assetID)
	assert.Nil(t, err)
	assert.Nil(t, r, "absent record returned")

	record := index.Record{
		AssetID:     assetID,
		Owner:       fixtures.Owner,
		Fingerprint: "bafkfp",
		LedgerTxRef: "ref1",
		Critical:    asset.Metadata{"name": "Doc"},
		Version:     1,
		UpdatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.Nil(t, ix.UpsertAsset(ctx, record), "upsert")
	record.Version = 2
	record.NonCritical = asset.Metadata{"colour": "red"}
	require.Nil(t, ix.UpsertAsset(ctx, record), "second upsert")

	r, err = ix.GetAsset(ctx, assetID)
	require.Nil(t, err, "get")
	assert.Equal(t, uint64(2), r.Version)
	assert.Equal(t, "red", r.NonCritical["colour"])
	assert.Equal(t, "Doc", r.Critical["name"])

	for _, action := range []asset.Action{asset.Create, asset.Update} {
		err := ix.AppendTransactionLogEntry(ctx, index.LogEntry{
			AssetID:   assetID,
			Action:    action,
			Actor:     fixtures.Owner,
			Timestamp: time.Now(),
		})
		require.Nil(t, err, "append %s", action)
	}
	entries, err := ix.TransactionLog(ctx, assetID)
	require.Nil(t, err, "log")
	require.Equal(t, 2, len(entries))
	assert.Equal(t, uint64(1), entries[0].Sequence)
	assert.Equal(t, asset.Update, entries[1].Action)
}
