// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// Kind - the class of an error as seen by callers of the pipeline
type Kind int

// all possible kinds
const (
	KindNone Kind = iota
	KindValidation
	KindStorage
	KindAuthorization
	KindSignatureRejected
	KindWalletUnavailable
	KindLedger
	KindIndexing
	KindInternal
)

var kindNames = map[Kind]string{
	KindNone:              "",
	KindValidation:        "ValidationError",
	KindStorage:           "StorageError",
	KindAuthorization:     "AuthorizationError",
	KindSignatureRejected: "SignatureRejectedError",
	KindWalletUnavailable: "WalletUnavailableError",
	KindLedger:            "LedgerError",
	KindIndexing:          "IndexingWarning",
	KindInternal:          "InternalError",
}

// String - name of the kind, as reported to callers
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "*Unknown*"
}

// MarshalText - kinds are reported by name
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText - parse a kind name
func (k *Kind) UnmarshalText(s []byte) error {
	for kind, name := range kindNames {
		if name == string(s) {
			*k = kind
			return nil
		}
	}
	*k = KindInternal
	return nil
}

// KindOf - classify an error
//
// the order matters: an internal error wrapping a ledger error is
// still internal
func KindOf(err error) Kind {
	switch {
	case nil == err:
		return KindNone
	case IsErrInternal(err):
		return KindInternal
	case IsErrValidation(err):
		return KindValidation
	case IsErrStorage(err):
		return KindStorage
	case IsErrAuthorization(err):
		return KindAuthorization
	case IsErrSignatureRejected(err):
		return KindSignatureRejected
	case IsErrWalletUnavailable(err):
		return KindWalletUnavailable
	case IsErrLedger(err):
		return KindLedger
	case IsErrIndexing(err):
		return KindIndexing
	default:
		return KindInternal
	}
}

// Retryable - true if simply trying again could succeed
//
// authorization, wallet and validation faults need the caller to fix
// something first
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStorage, KindLedger, KindSignatureRejected:
		return true
	default:
		return false
	}
}
