// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger - the contract with the ledger that anchors asset
// fingerprints and records delegation grants
//
// The ledger is the source of truth for delegation.  Transactions are
// built from an Intent (a named operation with typed arguments),
// packed into a deterministic byte sequence, signed by a wallet and
// submitted; the returned TxRef is then awaited until the ledger
// reports a terminal Status.
//
// Two implementations are provided: ledger/local, an embedded single
// node ledger for the local and testing chains, and ledger/rpcclient,
// a JSON-RPC client for a remote node.
package ledger
