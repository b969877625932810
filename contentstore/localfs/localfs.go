// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package localfs - content store on the local filesystem
//
// each object is a read only file named by its fingerprint and
// sharded into sub-directories by the first two characters
package localfs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"github.com/bitmark-inc/assetcommit/contentstore"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/logger"
)

// Store - filesystem content store
type Store struct {
	log  *logger.L
	root string
}

var (
	_ contentstore.Store   = (*Store)(nil)
	_ contentstore.Remover = (*Store)(nil)
)

// New - store rooted at root, the directory is created if needed
func New(log *logger.L, root string) (*Store, error) {
	if "" == root {
		return nil, fault.Wrap(fault.ErrContentStoreUnavailable, "localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); nil != err {
		return nil, err
	}
	return &Store{
		log:  log,
		root: root,
	}, nil
}

// Store - write an object, an existing identical object is success
func (s *Store) Store(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); nil != err {
		return cid.Undef, err
	}
	id, err := contentstore.Fingerprint(data)
	if nil != err {
		return cid.Undef, err
	}

	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); nil != err {
		return cid.Undef, unavailable("mkdir", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if nil != err {
		if !os.IsExist(err) {
			return cid.Undef, unavailable("create", err)
		}
		existing, err := s.read(id)
		if nil != err || !bytes.Equal(existing, data) {
			return cid.Undef, fault.ErrContentImmutable
		}
		s.log.Debugf("exists: %s", id)
		return id, nil
	}

	_, err = f.Write(data)
	if nil == err {
		err = f.Sync()
	}
	if closeErr := f.Close(); nil == err {
		err = closeErr
	}
	if nil != err {
		_ = os.Remove(path)
		return cid.Undef, unavailable("write", err)
	}

	s.log.Debugf("stored: %s  %d bytes", id, len(data))
	return id, nil
}

// Fetch - read an object and check it against its fingerprint
func (s *Store) Fetch(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	if !id.Defined() {
		return nil, fault.ErrContentNotFound
	}
	data, err := s.read(id)
	if nil != err {
		return nil, err
	}
	if !contentstore.Verify(id, data) {
		s.log.Errorf("corrupt object: %s", id)
		return nil, fault.ErrContentImmutable
	}
	return data, nil
}

// Has - check if an object is present
func (s *Store) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if err := ctx.Err(); nil != err {
		return false, err
	}
	if !id.Defined() {
		return false, nil
	}
	_, err := os.Stat(s.pathFor(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if nil != err {
		return false, unavailable("stat", err)
	}
	return true, nil
}

// Remove - delete an object file
func (s *Store) Remove(ctx context.Context, id cid.Cid) error {
	if err := ctx.Err(); nil != err {
		return err
	}
	if !id.Defined() {
		return nil
	}
	err := os.Remove(s.pathFor(id))
	if nil != err && !os.IsNotExist(err) {
		return unavailable("remove", err)
	}
	s.log.Debugf("removed: %s", id)
	return nil
}

func (s *Store) read(id cid.Cid) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if os.IsNotExist(err) {
		return nil, fault.ErrContentNotFound
	}
	if nil != err {
		return nil, unavailable("read", err)
	}
	return data, nil
}

func (s *Store) pathFor(id cid.Cid) string {
	name := id.String()
	if len(name) < 2 {
		return filepath.Join(s.root, name)
	}
	return filepath.Join(s.root, name[:2], name)
}

func unavailable(operation string, err error) error {
	return fault.Wrap(fault.ErrContentStoreUnavailable, "%s: %s", operation, err)
}
