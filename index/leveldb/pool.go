// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"
)

// pool - one prefix of the database
type pool struct {
	prefix byte
	db     *leveldb.DB
}

// element - key and value with the prefix removed
type element struct {
	Key   []byte
	Value []byte
}

func (p *pool) prefixKey(key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = p.prefix
	return append(prefixedKey, key...)
}

// put - into a batch, written by the caller
func (p *pool) put(batch *leveldb.Batch, key []byte, value []byte) {
	batch.Put(p.prefixKey(key), value)
}

// get - nil value if the key is absent
func (p *pool) get(key []byte) ([]byte, error) {
	value, err := p.db.Get(p.prefixKey(key), nil)
	if leveldb.ErrNotFound == err {
		return nil, nil
	}
	return value, err
}

// getN - read a count, zero if absent
func (p *pool) getN(key []byte) (uint64, error) {
	buffer, err := p.get(key)
	if nil != err || nil == buffer {
		return 0, err
	}
	if len(buffer) < 8 {
		return 0, errTruncated
	}
	return binary.BigEndian.Uint64(buffer[:8]), nil
}

func (p *pool) putN(batch *leveldb.Batch, key []byte, n uint64) {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, n)
	p.put(batch, key, buffer)
}

// scan - every element whose key starts with the given bytes, in key order
func (p *pool) scan(start []byte) ([]element, error) {
	r := ldb_util.BytesPrefix(p.prefixKey(start))
	iter := p.db.NewIterator(r, nil)

	results := []element{}
	for iter.Next() {

		// contents of the returned slice must not be modified, and are
		// only valid until the next call to Next
		key := iter.Key()
		value := iter.Value()

		dataKey := make([]byte, len(key)-1) // strip the prefix
		copy(dataKey, key[1:])              // ...

		dataValue := make([]byte, len(value))
		copy(dataValue, value)

		results = append(results, element{
			Key:   dataKey,
			Value: dataValue,
		})
	}
	iter.Release()
	return results, iter.Error()
}
