// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asset

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
)

var assetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// ValidateID - check that an asset id is usable as a key everywhere
func ValidateID(assetID string) error {
	if "" == assetID {
		return fault.ErrAssetIDRequired
	}
	if len(assetID) > maxAssetIDLength {
		return fault.ErrAssetIDTooLong
	}
	if !assetIDPattern.MatchString(assetID) {
		return fault.ErrAssetIDInvalid
	}
	return nil
}

// Validate - check a draft before any external system is touched
//
// the owner address is rewritten to its normal form
func Validate(d *Draft) error {
	if err := ValidateID(d.AssetID); nil != err {
		return err
	}

	if "" == d.Owner {
		return fault.ErrOwnerRequired
	}
	if !ledger.ValidAddress(d.Owner) {
		return fault.ErrInvalidAddress
	}
	d.Owner = ledger.NormalizeAddress(d.Owner)

	name, present := d.Critical[NameKey]
	if !present || nil == name {
		return fault.ErrDisplayNameRequired
	}
	s, ok := name.(string)
	if !ok {
		return fault.ErrDisplayNameType
	}
	if "" == strings.TrimSpace(s) {
		return fault.ErrDisplayNameRequired
	}
	if utf8.RuneCountInString(s) > maxNameLength {
		return fault.ErrDisplayNameTooLong
	}

	// both partitions must serialise
	if _, err := Canonical(d.Critical); nil != err {
		return err
	}
	if _, err := Canonical(d.NonCritical); nil != err {
		return err
	}
	return nil
}
