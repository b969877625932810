// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

// names of all chains
const (
	Bitmark = "bitmark"
	Testing = "testing"
	Local   = "local"
)

// numeric identifiers packed into every transaction so that a
// signature made for one chain can never be replayed on another
var identifiers = map[string]uint64{
	Bitmark: 1,
	Testing: 2,
	Local:   3,
}

// Valid - validate a chain name
func Valid(name string) bool {
	_, ok := identifiers[name]
	return ok
}

// ID - numeric chain identifier, zero if the name is not valid
func ID(name string) uint64 {
	return identifiers[name]
}

// IsTesting - true for every chain that does not carry real assets
func IsTesting(name string) bool {
	return Bitmark != name
}
