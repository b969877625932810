// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
)

type delegationArguments struct {
	Delegate     string              `json:"delegate"`
	Capabilities ledger.Capabilities `json:"capabilities"`
	Enable       bool                `json:"enable"`
}

func runDelegate(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	delegate := c.String("delegate")
	if "" == delegate {
		return ErrDelegateRequired
	}

	names := c.StringSlice("capability")
	if 0 == len(names) {
		return fault.ErrCapabilitiesRequired
	}
	capabilities, err := ledger.ParseCapabilities(names)
	if nil != err {
		return err
	}

	arguments := delegationArguments{
		Delegate:     delegate,
		Capabilities: capabilities,
		Enable:       !c.Bool("revoke"),
	}

	if m.verbose {
		fmt.Fprintf(m.e, "delegate: %s\n", delegate)
		fmt.Fprintf(m.e, "capabilities: %v\n", names)
		fmt.Fprintf(m.e, "enable: %t\n", arguments.Enable)
	}

	return m.job("POST", "/v1/delegations", arguments)
}

func runApprove(c *cli.Context) error {
	return decide(c, "approve")
}

func runReject(c *cli.Context) error {
	return decide(c, "reject")
}

func decide(c *cli.Context, decision string) error {

	m := c.App.Metadata["config"].(*metadata)

	id := c.String("id")
	if "" == id {
		return ErrRequestIDRequired
	}

	return m.query("POST", "/v1/signatures/"+url.PathEscape(id)+"/"+decision, nil)
}
