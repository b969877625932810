// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package postgres - index on a PostgreSQL server
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/logger"
)

// pool limits
const (
	maxConnections    = 10
	minConnections    = 1
	connectionLife    = 30 * time.Minute
	healthCheckPeriod = 30 * time.Second
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS assets (
  asset_id       text PRIMARY KEY,
  owner_address  text NOT NULL,
  fingerprint    text NOT NULL,
  ledger_tx_ref  text NOT NULL,
  critical       jsonb NOT NULL,
  non_critical   jsonb,
  version        bigint NOT NULL,
  deleted        boolean NOT NULL DEFAULT false,
  updated_at     timestamptz NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS asset_log_sequences (
  asset_id  text PRIMARY KEY,
  last      bigint NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS asset_log (
  asset_id       text NOT NULL,
  sequence       bigint NOT NULL,
  action         text NOT NULL,
  actor          text NOT NULL,
  fingerprint    text NOT NULL,
  ledger_tx_ref  text NOT NULL,
  version        bigint NOT NULL,
  warning        text NOT NULL,
  created_at     timestamptz NOT NULL,
  PRIMARY KEY (asset_id, sequence)
)`,
}

// Index - PostgreSQL backed index
type Index struct {
	log *logger.L
	db  *pgxpool.Pool
}

var _ index.Index = (*Index)(nil)

// Connect - open a connection pool for dsn
func Connect(ctx context.Context, log *logger.L, dsn string) (*Index, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if nil != err {
		return nil, err
	}
	cfg.MaxConns = maxConnections
	cfg.MinConns = minConnections
	cfg.MaxConnLifetime = connectionLife
	cfg.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if nil != err {
		return nil, err
	}
	return New(log, pool), nil
}

// New - index over an existing pool
func New(log *logger.L, pool *pgxpool.Pool) *Index {
	return &Index{
		log: log,
		db:  pool,
	}
}

// Close - release the pool
func (ix *Index) Close() {
	ix.db.Close()
}

// Migrate - create the tables if they do not exist
func (ix *Index) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := ix.db.Exec(ctx, statement); nil != err {
			return err
		}
	}
	ix.log.Info("schema ready")
	return nil
}

// UpsertAsset - insert or replace the record of an asset
func (ix *Index) UpsertAsset(ctx context.Context, r index.Record) error {
	critical, err := json.Marshal(r.Critical)
	if nil != err {
		return err
	}
	var nonCritical interface{}
	if nil != r.NonCritical {
		b, err := json.Marshal(r.NonCritical)
		if nil != err {
			return err
		}
		nonCritical = string(b)
	}

	_, err = ix.db.Exec(ctx, `
INSERT INTO assets(asset_id,owner_address,fingerprint,ledger_tx_ref,critical,non_critical,version,deleted,updated_at)
VALUES($1,$2,$3,$4,$5::jsonb,$6::jsonb,$7,$8,$9)
ON CONFLICT (asset_id) DO UPDATE SET
  owner_address=EXCLUDED.owner_address,
  fingerprint=EXCLUDED.fingerprint,
  ledger_tx_ref=EXCLUDED.ledger_tx_ref,
  critical=EXCLUDED.critical,
  non_critical=EXCLUDED.non_critical,
  version=EXCLUDED.version,
  deleted=EXCLUDED.deleted,
  updated_at=EXCLUDED.updated_at
`, r.AssetID, r.Owner, r.Fingerprint, string(r.LedgerTxRef), string(critical), nonCritical, int64(r.Version), r.Deleted, r.UpdatedAt)
	if nil != err {
		return err
	}
	ix.log.Debugf("upsert: %s  version: %d", r.AssetID, r.Version)
	return nil
}

// AppendTransactionLogEntry - add an entry with the next sequence for its asset
func (ix *Index) AppendTransactionLogEntry(ctx context.Context, e index.LogEntry) error {
	tx, err := ix.db.Begin(ctx)
	if nil != err {
		return err
	}
	defer tx.Rollback(ctx)

	var sequence int64
	err = tx.QueryRow(ctx, `
INSERT INTO asset_log_sequences(asset_id,last)
VALUES($1,1)
ON CONFLICT (asset_id) DO UPDATE SET last=asset_log_sequences.last+1
RETURNING last
`, e.AssetID).Scan(&sequence)
	if nil != err {
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO asset_log(asset_id,sequence,action,actor,fingerprint,ledger_tx_ref,version,warning,created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, e.AssetID, sequence, string(e.Action), e.Actor, e.Fingerprint, string(e.LedgerTxRef), int64(e.Version), e.Warning, e.Timestamp)
	if nil != err {
		return err
	}
	if err := tx.Commit(ctx); nil != err {
		return err
	}
	ix.log.Debugf("log: %s  %s  sequence: %d", e.AssetID, e.Action, sequence)
	return nil
}

// GetAsset - current record, nil if absent
func (ix *Index) GetAsset(ctx context.Context, assetID string) (*index.Record, error) {
	var (
		r           index.Record
		txRef       string
		critical    []byte
		nonCritical []byte
		version     int64
	)
	err := ix.db.QueryRow(ctx, `
SELECT asset_id,owner_address,fingerprint,ledger_tx_ref,critical,non_critical,version,deleted,updated_at
FROM assets
WHERE asset_id=$1
`, assetID).Scan(&r.AssetID, &r.Owner, &r.Fingerprint, &txRef, &critical, &nonCritical, &version, &r.Deleted, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if nil != err {
		return nil, err
	}

	r.LedgerTxRef = ledger.TxRef(txRef)
	r.Version = uint64(version)
	if err := json.Unmarshal(critical, &r.Critical); nil != err {
		return nil, err
	}
	if nil != nonCritical {
		if err := json.Unmarshal(nonCritical, &r.NonCritical); nil != err {
			return nil, err
		}
	}
	return &r, nil
}

// TransactionLog - all entries for an asset in sequence order
func (ix *Index) TransactionLog(ctx context.Context, assetID string) ([]index.LogEntry, error) {
	rows, err := ix.db.Query(ctx, `
SELECT asset_id,sequence,action,actor,fingerprint,ledger_tx_ref,version,warning,created_at
FROM asset_log
WHERE asset_id=$1
ORDER BY sequence
`, assetID)
	if nil != err {
		return nil, err
	}
	defer rows.Close()

	entries := []index.LogEntry{}
	for rows.Next() {
		var (
			e        index.LogEntry
			sequence int64
			action   string
			txRef    string
			version  int64
		)
		err := rows.Scan(&e.AssetID, &sequence, &action, &e.Actor, &e.Fingerprint, &txRef, &version, &e.Warning, &e.Timestamp)
		if nil != err {
			return nil, err
		}
		e.Sequence = uint64(sequence)
		e.Action = asset.Action(action)
		e.LedgerTxRef = ledger.TxRef(txRef)
		e.Version = uint64(version)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
