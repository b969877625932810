// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/progress"
)

func runCommit(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	draft, err := draftFromFlags(c)
	if nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "asset: %q\n", draft.AssetID)
		fmt.Fprintf(m.e, "owner: %s\n", draft.Owner)
		fmt.Fprintf(m.e, "name: %q\n", draft.Name())
	}

	return m.job("POST", "/v1/assets", draft)
}

func runDelete(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	assetID, err := checkAssetID(c.String("asset"))
	if nil != err {
		return err
	}

	return m.job("DELETE", "/v1/assets/"+url.PathEscape(assetID), nil)
}

// build the draft either from a JSON file or from individual flags
func draftFromFlags(c *cli.Context) (*asset.Draft, error) {

	file := c.String("file")
	if "" != file {
		if "" != c.String("owner") || "" != c.String("name") || "" != c.String("metadata") || "" != c.String("extra") {
			return nil, ErrDraftConflict
		}
		var draft asset.Draft
		if err := readJSONFile(file, &draft); nil != err {
			return nil, err
		}
		if id := c.String("asset"); "" != id {
			draft.AssetID = id
		}
		return &draft, nil
	}

	owner := c.String("owner")
	if "" == owner {
		return nil, ErrOwnerRequired
	}
	name := c.String("name")
	if "" == name {
		return nil, ErrNameRequired
	}

	critical, err := metadataFlag(c.String("metadata"))
	if nil != err {
		return nil, err
	}
	if nil == critical {
		critical = asset.Metadata{}
	}
	critical[asset.NameKey] = name

	nonCritical, err := metadataFlag(c.String("extra"))
	if nil != err {
		return nil, err
	}

	return &asset.Draft{
		AssetID:     c.String("asset"),
		Owner:       owner,
		Critical:    critical,
		NonCritical: nonCritical,
	}, nil
}

func metadataFlag(s string) (asset.Metadata, error) {
	if "" == s {
		return nil, nil
	}
	var m asset.Metadata
	if err := json.Unmarshal([]byte(s), &m); nil != err {
		return nil, fault.Wrap(fault.ErrMetadataInvalid, "%s", err)
	}
	return m, nil
}

func checkAssetID(assetID string) (string, error) {
	if "" == assetID {
		return "", ErrAssetIDRequired
	}
	if err := asset.ValidateID(assetID); nil != err {
		return "", err
	}
	return assetID, nil
}

func readJSONFile(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if nil != err {
		return err
	}
	if err := json.Unmarshal(b, v); nil != err {
		return fault.Wrap(fault.ErrRequestInvalid, "%s: %s", file, err)
	}
	return nil
}

// job - run a single job request, events go to the error stream and
// the outcome to the output
func (m *metadata) job(method string, path string, body interface{}) error {

	var outcome *progress.Outcome
	err := m.client.stream(method, path, body, func(l *streamLine) error {
		if nil != l.Event && !m.quiet {
			printEvent(m, "", l.Event)
		}
		if nil != l.Outcome {
			outcome = l.Outcome
		}
		return nil
	})
	if nil != err {
		return err
	}
	if nil == outcome {
		return ErrStreamIncomplete
	}

	if err := printJson(m.w, outcome); nil != err {
		return err
	}
	return outcomeError(m, outcome)
}

func printEvent(m *metadata, prefix string, e *progress.Event) {
	fmt.Fprintf(m.e, "%s%3d%%  %-20s %s\n", prefix, e.PercentComplete, e.Stage, e.Message)
}

// a failed job is reported as an error so the exit status shows it
func outcomeError(m *metadata, o *progress.Outcome) error {
	if o.Degraded() {
		fmt.Fprintf(m.e, "warning: %s\n", o.Warning)
		return nil
	}
	if o.Succeeded() {
		return nil
	}
	return fmt.Errorf("%s failed at %s: %s", o.Reason, o.FailedStage, o.Message)
}
