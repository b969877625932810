// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package memory - map backed content store
//
// used by the local chain and by tests; transient outages can be
// injected with FailNext
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/bitmark-inc/assetcommit/contentstore"
	"github.com/bitmark-inc/assetcommit/fault"
)

// Store - in memory content store
type Store struct {
	sync.RWMutex
	objects  map[cid.Cid][]byte
	failures int
	writes   int
}

var (
	_ contentstore.Store   = (*Store)(nil)
	_ contentstore.Remover = (*Store)(nil)
)

// New - empty store
func New() *Store {
	return &Store{
		objects: make(map[cid.Cid][]byte),
	}
}

// FailNext - the next n calls to Store report the store as unavailable
func (s *Store) FailNext(n int) {
	s.Lock()
	s.failures = n
	s.Unlock()
}

// Writes - number of successful Store calls
func (s *Store) Writes() int {
	s.RLock()
	defer s.RUnlock()
	return s.writes
}

// Len - number of distinct objects held
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.objects)
}

// Store - save a copy of data
func (s *Store) Store(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); nil != err {
		return cid.Undef, err
	}
	id, err := contentstore.Fingerprint(data)
	if nil != err {
		return cid.Undef, err
	}

	s.Lock()
	defer s.Unlock()

	if s.failures > 0 {
		s.failures -= 1
		return cid.Undef, fault.ErrContentStoreUnavailable
	}
	if existing, ok := s.objects[id]; ok && !bytes.Equal(existing, data) {
		return cid.Undef, fault.ErrContentImmutable
	}
	s.objects[id] = append([]byte(nil), data...)
	s.writes += 1
	return id, nil
}

// Fetch - copy of the stored bytes
func (s *Store) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()
	data, ok := s.objects[id]
	if !ok {
		return nil, fault.ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

// Has - check if an object is present
func (s *Store) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if err := ctx.Err(); nil != err {
		return false, err
	}
	s.RLock()
	defer s.RUnlock()
	_, ok := s.objects[id]
	return ok, nil
}

// Remove - drop an object
func (s *Store) Remove(ctx context.Context, id cid.Cid) error {
	if err := ctx.Err(); nil != err {
		return err
	}
	s.Lock()
	delete(s.objects, id)
	s.Unlock()
	return nil
}
