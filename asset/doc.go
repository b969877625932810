// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package asset - user authored asset drafts
//
// A draft has two metadata partitions.  Only the critical partition
// is fingerprinted and anchored on the ledger, so its serialised form
// must be canonical: the same content always gives the same bytes
// whatever order the keys were inserted in.  Changing any critical
// value produces a new version of the asset.
package asset
