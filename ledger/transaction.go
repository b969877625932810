// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/fault"
)

var errInvalidOperation = errors.New("invalid operation")

// Operation - the named ledger call
type Operation uint64

// enumerate the possible operations
// this is encoded as a varint at the start of a packed transaction
const (
	// null marks beginning of list - not used as an operation
	NullOperation = Operation(iota)

	AnchorAsset   = Operation(iota) // associate an asset id with a fingerprint
	SetDelegation = Operation(iota) // grant or revoke delegate capabilities

	// this item must be last
	InvalidOperation = Operation(iota)
)

// String - operation name
func (op Operation) String() string {
	switch op {
	case AnchorAsset:
		return "anchorAsset"
	case SetDelegation:
		return "setDelegation"
	default:
		return "*invalid*"
	}
}

// Intent - abstract ledger call, before any chain specific encoding
//
// AnchorAsset uses AssetID, Owner and Fingerprint (an empty
// fingerprint is a tombstone); SetDelegation uses Delegate,
// Capabilities and Enable
type Intent struct {
	Operation    Operation    `json:"operation"`
	AssetID      string       `json:"assetId,omitempty"`
	Owner        string       `json:"owner,omitempty"`
	Fingerprint  string       `json:"fingerprint,omitempty"`
	Delegate     string       `json:"delegate,omitempty"`
	Capabilities Capabilities `json:"capabilities,omitempty"`
	Enable       bool         `json:"enable,omitempty"`
}

// AnchorIntent - associate assetID with a fingerprint for owner
func AnchorIntent(assetID string, owner string, fingerprint string) Intent {
	return Intent{
		Operation:   AnchorAsset,
		AssetID:     assetID,
		Owner:       owner,
		Fingerprint: fingerprint,
	}
}

// DelegationIntent - set (enable) or clear the delegate's capabilities
func DelegationIntent(delegate string, capabilities Capabilities, enable bool) Intent {
	return Intent{
		Operation:    SetDelegation,
		Delegate:     delegate,
		Capabilities: capabilities,
		Enable:       enable,
	}
}

// Capability - what a non-owner sender needs to submit this intent
func (intent Intent) Capability() Capabilities {
	if AnchorAsset == intent.Operation && "" == intent.Fingerprint {
		return CapabilityDelete
	}
	return CapabilityUpdate
}

// UnsignedTransaction - an intent bound to a chain, a sender and a nonce
type UnsignedTransaction struct {
	Chain  string `json:"chain"`
	From   string `json:"from"`
	Nonce  uint64 `json:"nonce"`
	Intent Intent `json:"intent"`
}

// SignedTransaction - unsigned transaction plus the sender's signature
type SignedTransaction struct {
	Transaction UnsignedTransaction `json:"transaction"`
	PublicKey   []byte              `json:"publicKey"`
	Signature   []byte              `json:"signature"`
}

// Pack - deterministic byte form that is signed
//
// Pack varint(operation), varint(chain id), from, varint(nonce)
// followed by the operation's fields in order
func (tx *UnsignedTransaction) Pack() ([]byte, error) {
	op := tx.Intent.Operation
	if op <= NullOperation || op >= InvalidOperation {
		return nil, &fault.InternalError{Stage: "pack", Err: errInvalidOperation}
	}
	id := chain.ID(tx.Chain)
	if 0 == id {
		return nil, fault.ErrWrongNetwork
	}
	if !ValidAddress(tx.From) {
		return nil, fault.ErrInvalidAddress
	}

	message := appendUvarint(nil, uint64(op))
	message = appendUvarint(message, id)
	message = appendString(message, tx.From)
	message = appendUvarint(message, tx.Nonce)

	switch op {
	case AnchorAsset:
		message = appendString(message, tx.Intent.AssetID)
		message = appendString(message, tx.Intent.Owner)
		message = appendString(message, tx.Intent.Fingerprint)
	case SetDelegation:
		if !ValidAddress(tx.Intent.Delegate) {
			return nil, fault.ErrInvalidAddress
		}
		message = appendString(message, tx.Intent.Delegate)
		message = appendUvarint(message, uint64(tx.Intent.Capabilities))
		enable := uint64(0)
		if tx.Intent.Enable {
			enable = 1
		}
		message = appendUvarint(message, enable)
	}
	return message, nil
}

// Sign - sign with an ed25519 private key
func (tx *UnsignedTransaction) Sign(privateKey ed25519.PrivateKey) (*SignedTransaction, error) {
	packed, err := tx.Pack()
	if nil != err {
		return nil, err
	}
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return &SignedTransaction{
		Transaction: *tx,
		PublicKey:   []byte(publicKey),
		Signature:   ed25519.Sign(privateKey, packed),
	}, nil
}

// Verify - signature is valid and made by the sender's key
func (stx *SignedTransaction) Verify() error {
	packed, err := stx.Transaction.Pack()
	if nil != err {
		return err
	}
	if ed25519.PublicKeySize != len(stx.PublicKey) {
		return fault.ErrInvalidSignature
	}
	if !SameAddress(AddressFromPublicKey(stx.PublicKey), stx.Transaction.From) {
		return fault.ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(stx.PublicKey), packed, stx.Signature) {
		return fault.ErrInvalidSignature
	}
	return nil
}

// Ref - transaction reference: SHA3-256 of packed data and signature
func (stx *SignedTransaction) Ref() (TxRef, error) {
	packed, err := stx.Transaction.Pack()
	if nil != err {
		return "", err
	}
	h := sha3.New256()
	h.Write(packed)
	h.Write(stx.Signature)
	return TxRef(hex.EncodeToString(h.Sum(nil))), nil
}

func appendUvarint(buffer []byte, value uint64) []byte {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], value)
	return append(buffer, b[:n]...)
}

// length prefixed string
func appendString(buffer []byte, s string) []byte {
	buffer = appendUvarint(buffer, uint64(len(s)))
	return append(buffer, s...)
}
