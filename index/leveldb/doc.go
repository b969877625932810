// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb - index on an embedded LevelDB database
//
// the database is split into pools, each defined by a prefix byte
// obtained from the prefix tag in the struct defining the pools
//
// Notes:
// 1. each separate pool has a single byte prefix
// 2. ++       = concatenation of byte data
// 3. count    = successive index value as big endian uint64 (8 bytes)
// 4. asset id = the caller's asset id, which never contains 0x00
//
// Assets:
//
//   A ++ asset id              - current asset record
//                                data: JSON record
//
// Transaction log:
//
//   N ++ asset id              - last count used for the asset's log
//                                data: count
//   L ++ asset id ++ 0x00 ++ count
//                              - log entry
//                                data: JSON log entry
//
// Version:
//
//   0x00 ++ "VERSION"          - database layout version
//                                data: big endian uint32
package leveldb
