// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/logger"
)

// note all must be exported (i.e. initial capital) or initialisation will panic
type pools struct {
	Assets       *pool `prefix:"A"`
	NextSequence *pool `prefix:"N"`
	Log          *pool `prefix:"L"`
}

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const currentVersion = 0x100

var errTruncated = errors.New("truncated record")

// Index - LevelDB backed index
type Index struct {
	sync.Mutex
	log  *logger.L
	db   *leveldb.DB
	pool pools
}

var _ index.Index = (*Index)(nil)

// Open - open or create the database
func Open(log *logger.L, path string) (*Index, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(path, opt)
	if nil != err {
		return nil, err
	}
	return setup(log, db)
}

// NewMemory - a database that is lost on Close
func NewMemory(log *logger.L) (*Index, error) {
	db, err := leveldb.Open(ldb_storage.NewMemStorage(), nil)
	if nil != err {
		return nil, err
	}
	return setup(log, db)
}

func setup(log *logger.L, db *leveldb.DB) (*Index, error) {
	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	version, err := getVersion(db)
	if nil != err {
		return nil, err
	}

	// ensure no database downgrade
	if version > currentVersion {
		log.Criticalf("index database version: %d > current version: %d", version, currentVersion)
		return nil, fmt.Errorf("index database version: %d > current version: %d", version, currentVersion)
	}
	if 0 == version {
		if err := putVersion(db, currentVersion); nil != err {
			return nil, err
		}
	}

	ix := &Index{
		log: log,
		db:  db,
	}

	// this will be a struct type
	poolType := reflect.TypeOf(ix.pool)

	// get write access by using pointer + Elem()
	poolValue := reflect.ValueOf(&ix.pool).Elem()

	// scan each field
	for i := 0; i < poolType.NumField(); i += 1 {
		fieldInfo := poolType.Field(i)

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			return nil, fmt.Errorf("pool: %v has invalid prefix: %q", fieldInfo, prefixTag)
		}

		p := &pool{
			prefix: prefixTag[0],
			db:     db,
		}
		poolValue.Field(i).Set(reflect.ValueOf(p))
	}

	ok = true // prevent db close
	return ix, nil
}

// Close - close the database
func (ix *Index) Close() error {
	ix.Lock()
	defer ix.Unlock()
	return ix.db.Close()
}

// UpsertAsset - replace the current record of an asset
func (ix *Index) UpsertAsset(ctx context.Context, record index.Record) error {
	if err := ctx.Err(); nil != err {
		return err
	}
	data, err := json.Marshal(record)
	if nil != err {
		return err
	}

	batch := new(leveldb.Batch)
	ix.pool.Assets.put(batch, []byte(record.AssetID), data)

	ix.Lock()
	defer ix.Unlock()
	if err := ix.db.Write(batch, nil); nil != err {
		return err
	}
	ix.log.Debugf("upsert: %s  version: %d", record.AssetID, record.Version)
	return nil
}

// AppendTransactionLogEntry - add an entry with the next sequence for its asset
func (ix *Index) AppendTransactionLogEntry(ctx context.Context, entry index.LogEntry) error {
	if err := ctx.Err(); nil != err {
		return err
	}

	ix.Lock()
	defer ix.Unlock()

	last, err := ix.pool.NextSequence.getN([]byte(entry.AssetID))
	if nil != err {
		return err
	}
	entry.Sequence = last + 1

	data, err := json.Marshal(entry)
	if nil != err {
		return err
	}

	batch := new(leveldb.Batch)
	ix.pool.NextSequence.putN(batch, []byte(entry.AssetID), entry.Sequence)
	ix.pool.Log.put(batch, logKey(entry.AssetID, entry.Sequence), data)
	if err := ix.db.Write(batch, nil); nil != err {
		return err
	}
	ix.log.Debugf("log: %s  %s  sequence: %d", entry.AssetID, entry.Action, entry.Sequence)
	return nil
}

// GetAsset - current record, nil if absent
func (ix *Index) GetAsset(ctx context.Context, assetID string) (*index.Record, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	data, err := ix.pool.Assets.get([]byte(assetID))
	if nil != err || nil == data {
		return nil, err
	}
	var record index.Record
	if err := json.Unmarshal(data, &record); nil != err {
		return nil, err
	}
	return &record, nil
}

// TransactionLog - all entries for an asset in sequence order
func (ix *Index) TransactionLog(ctx context.Context, assetID string) ([]index.LogEntry, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	elements, err := ix.pool.Log.scan(append([]byte(assetID), 0x00))
	if nil != err {
		return nil, err
	}
	entries := make([]index.LogEntry, 0, len(elements))
	for _, e := range elements {
		var entry index.LogEntry
		if err := json.Unmarshal(e.Value, &entry); nil != err {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// asset id ++ 0x00 ++ big endian count, so a scan is in sequence order
func logKey(assetID string, sequence uint64) []byte {
	key := make([]byte, len(assetID)+1+8)
	copy(key, assetID)
	binary.BigEndian.PutUint64(key[len(assetID)+1:], sequence)
	return key
}

func getVersion(db *leveldb.DB) (int, error) {
	versionValue, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	} else if nil != err {
		return 0, err
	}
	if 4 != len(versionValue) {
		return 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(versionValue))
	}
	return int(binary.BigEndian.Uint32(versionValue)), nil
}

func putVersion(db *leveldb.DB, version int) error {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, uint32(version))
	return db.Put(versionKey, value, nil)
}
