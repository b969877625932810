// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const addressBytes = 20

// accounts are opaque to the pipeline, but must look like one
var addressPattern = regexp.MustCompile(`^0x[0-9A-Za-z]{1,64}$`)

// ValidAddress - check the form of an account identifier
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// NormalizeAddress - the form used for storage, keys and display
//
// accounts are compared without regard to case
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// SameAddress - both identify the same account
func SameAddress(a string, b string) bool {
	return strings.EqualFold(a, b)
}

// AddressFromPublicKey - derive the account identifier for a key
//
// "0x" followed by the hex of the last 20 bytes of SHA3-256(key)
func AddressFromPublicKey(publicKey []byte) string {
	digest := sha3.Sum256(publicKey)
	return "0x" + hex.EncodeToString(digest[len(digest)-addressBytes:])
}
