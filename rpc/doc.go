// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc - the HTTP API of the daemon
//
// requests that run a job (commit, delete, batch, delegation) answer
// with newline delimited JSON: one line per progress event followed by
// a single final line holding the outcome or the batch summary.
// Errors found before a job starts are ordinary JSON error replies.
//
//	POST   /v1/assets                    commit a draft
//	GET    /v1/assets/{id}               indexed record and its log
//	DELETE /v1/assets/{id}               delete (tombstone) an asset
//	POST   /v1/batches                   commit a list of drafts
//	POST   /v1/delegations               grant or revoke a delegate
//	GET    /v1/signatures                pending signature requests
//	POST   /v1/signatures/{id}/approve   sign a pending request
//	POST   /v1/signatures/{id}/reject    decline a pending request
//	GET    /v1/status                    account, network and counters
package rpc
