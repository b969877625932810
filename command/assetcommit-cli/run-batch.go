// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/batch"
)

type batchArguments struct {
	Drafts []asset.Draft `json:"drafts"`
}

// only the counts are needed to decide the exit status
type batchCounts struct {
	Total  int          `json:"total"`
	Counts batch.Counts `json:"counts"`
}

func runBatch(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	file := c.String("file")
	if "" == file {
		return ErrFileRequired
	}

	var arguments batchArguments
	if err := readJSONFile(file, &arguments.Drafts); nil != err {
		return err
	}

	if m.verbose {
		fmt.Fprintf(m.e, "drafts: %d\n", len(arguments.Drafts))
	}

	var summary json.RawMessage
	err := m.client.stream("POST", "/v1/batches", arguments, func(l *streamLine) error {
		if nil != l.Item && !m.quiet {
			printItem(m, l.Item)
		}
		if nil != l.Summary {
			summary = l.Summary
		}
		return nil
	})
	if nil != err {
		return err
	}
	if nil == summary {
		return ErrStreamIncomplete
	}

	if err := printRaw(m.w, summary); nil != err {
		return err
	}

	var counts batchCounts
	if err := json.Unmarshal(summary, &counts); nil != err {
		return err
	}
	if 0 != counts.Counts.Failed {
		return fmt.Errorf("%d of %d drafts failed", counts.Counts.Failed, counts.Total)
	}
	return nil
}

func printItem(m *metadata, item *batch.ItemEvent) {
	prefix := fmt.Sprintf("[%d] ", item.Position)
	if nil != item.Event {
		printEvent(m, prefix, item.Event)
	}
	if nil != item.Outcome {
		o := item.Outcome
		switch {
		case o.Degraded():
			fmt.Fprintf(m.e, "%s%s  %s  warning: %s\n", prefix, o.Stage, o.AssetID, o.Warning)
		case o.Succeeded():
			fmt.Fprintf(m.e, "%s%s  %s\n", prefix, o.Stage, o.AssetID)
		default:
			fmt.Fprintf(m.e, "%sFailed at %s  %s: %s\n", prefix, o.FailedStage, o.Reason, o.Message)
		}
	}
}
