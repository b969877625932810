// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fixtures - shared test set up
package fixtures

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/logger"
)

const (
	dir         = "testing"
	LogCategory = "testing"
)

// fixed keys so that addresses are stable between runs
var (
	OwnerPrivateKey    = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x11}, ed25519.SeedSize))
	DelegatePrivateKey = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x22}, ed25519.SeedSize))
	OtherPrivateKey    = ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x33}, ed25519.SeedSize))

	Owner    = ledger.AddressFromPublicKey(OwnerPrivateKey.Public().(ed25519.PublicKey))
	Delegate = ledger.AddressFromPublicKey(DelegatePrivateKey.Public().(ed25519.PublicKey))
	Other    = ledger.AddressFromPublicKey(OtherPrivateKey.Public().(ed25519.PublicKey))
)

// SetupTestLogger - log to a scratch directory, critical only
func SetupTestLogger() {
	removeFiles()
	_ = os.Mkdir(dir, 0700)

	logging := logger.Configuration{
		Directory: dir,
		File:      fmt.Sprintf("%s.log", LogCategory),
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

// TeardownTestLogger - stop logging and remove the scratch directory
func TeardownTestLogger() {
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	err := os.RemoveAll(dir)
	if nil != err {
		fmt.Println("remove dir with error: ", err)
	}
}
