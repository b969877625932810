// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package index - the application database holding committed asset
// records and their append only transaction log
package index

import (
	"context"
	"time"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/ledger"
)

//go:generate mockgen -destination=../mocks/index.go -package=mocks github.com/bitmark-inc/assetcommit/index Index

// Index - external call contract of the database
type Index interface {
	UpsertAsset(ctx context.Context, record Record) error

	// the sequence number in the entry is ignored and assigned by the index
	AppendTransactionLogEntry(ctx context.Context, entry LogEntry) error

	// nil record if the asset was never indexed
	GetAsset(ctx context.Context, assetID string) (*Record, error)

	// entries oldest first
	TransactionLog(ctx context.Context, assetID string) ([]LogEntry, error)
}

// Record - current state of an asset
type Record struct {
	AssetID     string         `json:"assetId"`
	Owner       string         `json:"ownerAddress"`
	Fingerprint string         `json:"fingerprint"`
	LedgerTxRef ledger.TxRef   `json:"ledgerTxRef"`
	Critical    asset.Metadata `json:"criticalMetadata"`
	NonCritical asset.Metadata `json:"nonCriticalMetadata,omitempty"`
	Version     uint64         `json:"version"`
	Deleted     bool           `json:"deleted,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Anchored - the record carries a ledger reference for its fingerprint
func (r *Record) Anchored() bool {
	return nil != r && "" != r.LedgerTxRef && "" != r.Fingerprint
}

// LogEntry - one immutable change to an asset
type LogEntry struct {
	Sequence    uint64       `json:"sequence"`
	AssetID     string       `json:"assetId"`
	Action      asset.Action `json:"action"`
	Actor       string       `json:"actor"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	LedgerTxRef ledger.TxRef `json:"ledgerTxRef,omitempty"`
	Version     uint64       `json:"version"`
	Warning     string       `json:"warning,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}
