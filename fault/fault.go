// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
	"fmt"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ValidationError GenericError
type StorageError GenericError
type SignatureRejectedError GenericError
type WalletUnavailableError GenericError
type LedgerError GenericError
type IndexingWarning GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised      = ValidationError("already initialised")
	ErrAssetIDInvalid          = ValidationError("asset id is not well formed")
	ErrAssetIDRequired         = ValidationError("asset id is required")
	ErrAssetIDTooLong          = ValidationError("asset id is too long")
	ErrAssetNotFound           = ValidationError("asset not found")
	ErrBatchDuplicateAssetID   = ValidationError("batch contains duplicate asset id")
	ErrBatchEmpty              = ValidationError("batch is empty")
	ErrBatchTooLarge           = ValidationError("batch exceeds size limit")
	ErrCapabilitiesRequired    = ValidationError("at least one capability is required")
	ErrCapabilityInvalid       = ValidationError("capability is not recognised")
	ErrContentNotFound         = StorageError("content not found")
	ErrContentStoreUnavailable = StorageError("content store unavailable")
	ErrContentImmutable        = StorageError("content store object mismatch")
	ErrDelegateIsOwner         = ValidationError("delegate cannot be the owner")
	ErrDisplayNameRequired     = ValidationError("display name is required")
	ErrDisplayNameTooLong      = ValidationError("display name is too long")
	ErrDisplayNameType         = ValidationError("display name must be a string")
	ErrIndexWriteFailed        = IndexingWarning("index write failed after ledger confirmation")
	ErrInvalidAddress          = ValidationError("address is not well formed")
	ErrInvalidIPAddress        = ValidationError("invalid IP address")
	ErrInvalidConfirmations    = ValidationError("confirmations must be positive")
	ErrInvalidCount            = ValidationError("invalid count")
	ErrInvalidSignature        = LedgerError("invalid transaction signature")
	ErrLedgerUnavailable       = LedgerError("ledger unavailable")
	ErrMetadataInvalid         = ValidationError("metadata is not valid JSON")
	ErrMissingParameters       = ValidationError("missing parameters")
	ErrNoAccount               = WalletUnavailableError("no wallet account connected")
	ErrNonceReused             = LedgerError("transaction nonce already used")
	ErrOwnerMismatch           = ValidationError("owner does not match the registered owner")
	ErrOwnerRequired           = ValidationError("owner address is required")
	ErrPromptNotFound          = ValidationError("signature request not found")
	ErrRequestInvalid          = ValidationError("request body is not valid JSON")
	ErrRateLimiting            = ValidationError("rate limit exceeded")
	ErrSignatureCancelled      = SignatureRejectedError("signature request cancelled")
	ErrSignatureDeclined       = SignatureRejectedError("signature declined by signer")
	ErrSignerMismatch          = WalletUnavailableError("wallet account changed during commit")
	ErrTransactionDropped      = LedgerError("transaction dropped")
	ErrTransactionNotFound     = LedgerError("transaction not found")
	ErrTransactionReverted     = LedgerError("transaction reverted")
	ErrTransactionSubmit       = LedgerError("transaction submission failed")
	ErrConfirmationTimeout     = LedgerError("timed out waiting for confirmation")
	ErrWalletLocked            = WalletUnavailableError("wallet key is locked")
	ErrWrongNetwork            = WalletUnavailableError("wallet is connected to the wrong network")
	ErrWrongPassword           = WalletUnavailableError("wrong password")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ValidationError) Error() string        { return string(e) }
func (e StorageError) Error() string           { return string(e) }
func (e SignatureRejectedError) Error() string { return string(e) }
func (e WalletUnavailableError) Error() string { return string(e) }
func (e LedgerError) Error() string            { return string(e) }
func (e IndexingWarning) Error() string        { return string(e) }

// AuthorizationError - the acting account may not write for the owner
//
// carries enough detail for a caller to request the missing
// delegation grant and retry the commit afterwards
type AuthorizationError struct {
	Owner      string `json:"owner"`
	Delegate   string `json:"delegate"`
	Capability string `json:"capability"`
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("%s has no active %q delegation from %s", e.Delegate, e.Capability, e.Owner)
}

// InternalError - wraps a fault that a stage did not recognise
type InternalError struct {
	Stage string
	Err   error
}

func (e *InternalError) Error() string {
	if "" == e.Stage {
		return fmt.Sprintf("internal error: %s", e.Err)
	}
	return fmt.Sprintf("internal error in %s: %s", e.Stage, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// Internal - wrap err unless it already belongs to the taxonomy
func Internal(stage string, err error) error {
	if nil == err {
		return nil
	}
	if KindInternal != KindOf(err) {
		return err
	}
	var ie *InternalError
	if errors.As(err, &ie) {
		return err
	}
	return &InternalError{Stage: stage, Err: err}
}

// Wrap - annotate a taxonomy error with some context while keeping its class
//
// the class is found again by errors.As so IsErr… and KindOf still work
func Wrap(err error, format string, arguments ...interface{}) error {
	if nil == err {
		return nil
	}
	return &wrapped{
		message: fmt.Sprintf(format, arguments...),
		err:     err,
	}
}

type wrapped struct {
	message string
	err     error
}

func (w *wrapped) Error() string { return w.message + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

// determine the class of an error
func IsErrValidation(e error) bool        { var t ValidationError; return errors.As(e, &t) }
func IsErrStorage(e error) bool           { var t StorageError; return errors.As(e, &t) }
func IsErrAuthorization(e error) bool     { var t AuthorizationError; return errors.As(e, &t) }
func IsErrSignatureRejected(e error) bool { var t SignatureRejectedError; return errors.As(e, &t) }
func IsErrWalletUnavailable(e error) bool { var t WalletUnavailableError; return errors.As(e, &t) }
func IsErrLedger(e error) bool            { var t LedgerError; return errors.As(e, &t) }
func IsErrIndexing(e error) bool          { var t IndexingWarning; return errors.As(e, &t) }
func IsErrInternal(e error) bool          { var t *InternalError; return errors.As(e, &t) }
