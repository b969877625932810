// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package contentstore - content addressed storage of serialised
// critical metadata
//
// objects are immutable and keyed by their fingerprint, a CIDv1 with
// the raw codec over a sha2-256 multihash, so storing the same bytes
// twice is harmless
package contentstore

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

//go:generate mockgen -destination=../mocks/contentstore.go -package=mocks github.com/bitmark-inc/assetcommit/contentstore Store

// Store - external call contract of a content store
type Store interface {
	// store bytes and return their fingerprint; idempotent
	Store(ctx context.Context, data []byte) (cid.Cid, error)

	Fetch(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}

// Remover - a store that can release an object nothing references yet
//
// removing an absent object is not an error
type Remover interface {
	Remove(ctx context.Context, id cid.Cid) error
}

// Fingerprint - the content identifier of some bytes
func Fingerprint(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if nil != err {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Parse - decode a fingerprint from its string form
func Parse(s string) (cid.Cid, error) {
	return cid.Decode(s)
}

// Verify - check that data matches the fingerprint
func Verify(id cid.Cid, data []byte) bool {
	got, err := id.Prefix().Sum(data)
	if nil != err {
		return false
	}
	return got.Equals(id)
}
