// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net/url"

	"github.com/urfave/cli"
)

func runShow(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	assetID, err := checkAssetID(c.String("asset"))
	if nil != err {
		return err
	}

	return m.query("GET", "/v1/assets/"+url.PathEscape(assetID), nil)
}

func runPending(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	return m.query("GET", "/v1/signatures", nil)
}

func runStatus(c *cli.Context) error {
	m := c.App.Metadata["config"].(*metadata)
	return m.query("GET", "/v1/status", nil)
}

// query - request with a plain JSON reply printed as is
func (m *metadata) query(method string, path string, body interface{}) error {
	var reply json.RawMessage
	if err := m.client.call(method, path, body, &reply); nil != err {
		return err
	}
	return printRaw(m.w, reply)
}
