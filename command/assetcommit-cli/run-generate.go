// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/wallet"
)

type generateReply struct {
	Keyfile string `json:"keyfile"`
	Network string `json:"network"`
	Address string `json:"address"`
}

func runGenerate(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	keyfile := c.String("keyfile")
	if "" == keyfile {
		return ErrKeyfileRequired
	}
	if _, err := os.Stat(keyfile); nil == err {
		return fmt.Errorf("not overwriting existing keyfile: %q", keyfile)
	}

	network, err := checkNetwork(c.String("network"))
	if nil != err {
		return err
	}

	password := c.String("password")
	if "" == password {
		password, err = promptNewPassword()
		if nil != err {
			return err
		}
	} else if len(password) < minimumPassword {
		return ErrTooShortPassword
	}

	if m.verbose {
		fmt.Fprintf(m.e, "keyfile: %s\n", keyfile)
		fmt.Fprintf(m.e, "network: %s\n", network)
	}

	key, err := wallet.GenerateKeyfile(keyfile, network, password)
	if nil != err {
		return err
	}

	return printJson(m.w, generateReply{
		Keyfile: keyfile,
		Network: key.Network,
		Address: key.Address,
	})
}

func checkNetwork(network string) (string, error) {
	switch network {
	case "bitmark", "live":
		network = chain.Bitmark
	case "testing", "test":
		network = chain.Testing
	case "local", "regression":
		network = chain.Local
	}
	if !chain.Valid(network) {
		return "", ErrInvalidNetwork
	}
	return network, nil
}
