// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances
//
// Provides a single instance of errors to allow easy comparison.
// Each class of error is a separate type so that the commit pipeline
// and its callers can branch on the kind of failure without string
// matching:
//
//   ValidationError         caller input fault, never retried
//   StorageError            content store failed after retries
//   AuthorizationError      a delegation grant is required first
//   SignatureRejectedError  the signer declined (or cancelled)
//   WalletUnavailableError  no signer, wrong account or wrong network
//   LedgerError             submit failed, reverted, dropped or timed out
//   IndexingWarning         index write failed after ledger confirmation
//   InternalError           anything a stage did not understand
package fault
