// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetcommit/fault"
)

var (
	errValidationOne = fault.ValidationError("validation one")
	errStorageOne    = fault.StorageError("storage one")
	errRejectedOne   = fault.SignatureRejectedError("rejected one")
	errWalletOne     = fault.WalletUnavailableError("wallet one")
	errLedgerOne     = fault.LedgerError("ledger one")
	errIndexingOne   = fault.IndexingWarning("indexing one")
	errAuthOne       = fault.AuthorizationError{Owner: "0xa", Delegate: "0xb", Capability: "update"}
)

// test that the classes can be told apart even when wrapped
func TestKindOf(t *testing.T) {
	errorList := []struct {
		err  error
		kind fault.Kind
	}{
		{nil, fault.KindNone},
		{errValidationOne, fault.KindValidation},
		{errStorageOne, fault.KindStorage},
		{errAuthOne, fault.KindAuthorization},
		{errRejectedOne, fault.KindSignatureRejected},
		{errWalletOne, fault.KindWalletUnavailable},
		{errLedgerOne, fault.KindLedger},
		{errIndexingOne, fault.KindIndexing},
		{errors.New("something else"), fault.KindInternal},
		{fmt.Errorf("context: %w", errLedgerOne), fault.KindLedger},
		{fault.Wrap(errStorageOne, "store %s", "x"), fault.KindStorage},
		{fault.Internal("Indexing", errors.New("boom")), fault.KindInternal},
	}

	for i, e := range errorList {
		assert.Equal(t, e.kind, fault.KindOf(e.err), "%d: wrong kind for: %v", i, e.err)
	}
}

func TestInternalKeepsKnownErrors(t *testing.T) {
	err := fault.Internal("SigningTransaction", errRejectedOne)
	assert.Equal(t, errRejectedOne, err, "known error was wrapped")

	cause := errors.New("disk on fire")
	err = fault.Internal("Indexing", cause)
	assert.True(t, fault.IsErrInternal(err), "not internal")
	assert.True(t, errors.Is(err, cause), "cause lost")
	assert.Equal(t, "internal error in Indexing: disk on fire", err.Error(), "wrong message")

	assert.Equal(t, err, fault.Internal("Other", err), "double wrapped")
	assert.Nil(t, fault.Internal("Other", nil), "nil was wrapped")
}

func TestRetryable(t *testing.T) {
	assert.True(t, fault.Retryable(errLedgerOne))
	assert.True(t, fault.Retryable(errStorageOne))
	assert.True(t, fault.Retryable(errRejectedOne))
	assert.False(t, fault.Retryable(errValidationOne))
	assert.False(t, fault.Retryable(errAuthOne))
	assert.False(t, fault.Retryable(errWalletOne))
	assert.False(t, fault.Retryable(errors.New("unknown")))
}

func TestKindText(t *testing.T) {
	b, err := fault.KindAuthorization.MarshalText()
	assert.Nil(t, err, "marshal error")
	assert.Equal(t, "AuthorizationError", string(b), "wrong name")

	var k fault.Kind
	assert.Nil(t, k.UnmarshalText([]byte("LedgerError")), "unmarshal error")
	assert.Equal(t, fault.KindLedger, k, "wrong kind")
}

func TestAuthorizationMessage(t *testing.T) {
	assert.Equal(t, `0xb has no active "update" delegation from 0xa`, errAuthOne.Error())
	var a fault.AuthorizationError
	assert.True(t, errors.As(fault.Wrap(errAuthOne, "commit"), &a), "lost detail")
	assert.Equal(t, "0xa", a.Owner, "wrong owner")
}
