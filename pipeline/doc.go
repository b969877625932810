// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pipeline - the commit orchestrator
//
// A commit job takes one asset draft through the stages
//
//   Validating → StoringContent → AwaitingAuthorization →
//   SigningTransaction → AwaitingConfirmation → Indexing → Committed
//
// and stops at the first stage that cannot complete, reporting the
// stage and the class of the fault. Every transition is emitted to the
// job's progress sink.
//
// The three systems of record are written in a fixed order: the
// content store, then the ledger, then the index. Nothing before the
// ledger write is visible once a job fails: content newly stored by a
// job that never submitted a transaction is removed again when the
// store supports it. After ledger confirmation the job can no longer
// fail; an index write that does not succeed turns the result into a
// degraded success carrying an IndexingWarning.
package pipeline
