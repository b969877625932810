// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package batch - commit a list of drafts as independent jobs
//
// a batch is checked as a whole before anything runs; after that each
// draft is its own job and one job's failure never stops another
package batch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

// limits
const (
	DefaultLimit   = 50
	DefaultWorkers = 4
)

// Committer - runs a single commit job
type Committer interface {
	Commit(ctx context.Context, session wallet.Session, signer wallet.Signer, draft asset.Draft, sink progress.Sink) progress.Outcome
}

// Coordinator - runs batches with a bounded number of jobs at once
type Coordinator struct {
	log       *logger.L
	committer Committer
	limit     int
	workers   int
}

// New - coordinator; non-positive limits take the defaults
func New(log *logger.L, committer Committer, limit int, workers int) *Coordinator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Coordinator{
		log:       log,
		committer: committer,
		limit:     limit,
		workers:   workers,
	}
}

// Limit - the most drafts accepted in one batch
func (c *Coordinator) Limit() int {
	return c.limit
}

// Check - the whole batch is acceptable
func (c *Coordinator) Check(drafts []asset.Draft) error {
	if 0 == len(drafts) {
		return fault.ErrBatchEmpty
	}
	if len(drafts) > c.limit {
		return fault.Wrap(fault.ErrBatchTooLarge, "%d drafts, limit: %d", len(drafts), c.limit)
	}
	seen := make(map[string]int, len(drafts))
	for i, d := range drafts {
		if "" == d.AssetID {
			continue
		}
		if first, ok := seen[d.AssetID]; ok {
			return fault.Wrap(fault.ErrBatchDuplicateAssetID, "%q at positions %d and %d", d.AssetID, first, i+1)
		}
		seen[d.AssetID] = i + 1
	}
	return nil
}

// Commit - run every draft and report each outcome
//
// a rejected batch returns a ValidationError and runs nothing; the
// signer's session is captured once and shared by all the jobs
func (c *Coordinator) Commit(ctx context.Context, session wallet.Session, signer wallet.Signer, drafts []asset.Draft, sink Sink) (*Summary, error) {
	if err := c.Check(drafts); nil != err {
		c.log.Infof("rejected: %d drafts  error: %s", len(drafts), err)
		return nil, err
	}
	if nil == sink {
		sink = Discard
	}

	summary := &Summary{
		BatchID: uuid.New().String(),
		Total:   len(drafts),
		Items:   make([]Item, len(drafts)),
	}

	// ids are fixed before any job starts so they appear in the report
	jobs := make([]asset.Draft, len(drafts))
	for i, d := range drafts {
		if "" == d.AssetID {
			d.AssetID = asset.NewID()
		}
		jobs[i] = d
		summary.Items[i] = Item{
			Position: i + 1,
			AssetID:  d.AssetID,
		}
	}

	workers := c.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	c.log.Infof("batch: %s  drafts: %d  workers: %d", summary.BatchID, len(jobs), workers)

	queue := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w += 1 {
		go func() {
			defer wg.Done()
			for i := range queue {
				item := &summary.Items[i]
				item.Outcome = c.committer.Commit(ctx, session, signer, jobs[i], itemSink(summary.BatchID, item, sink))
				sink.EmitItem(ItemEvent{
					BatchID:  summary.BatchID,
					Position: item.Position,
					AssetID:  item.AssetID,
					Outcome:  &item.Outcome,
				})
			}
		}()
	}
	for i := range jobs {
		queue <- i
	}
	close(queue)
	wg.Wait()

	summary.count()
	c.log.Infof("batch: %s  succeeded: %d  degraded: %d  failed: %d", summary.BatchID, summary.Counts.Succeeded, summary.Counts.Degraded, summary.Counts.Failed)
	return summary, nil
}

// tag a job's events with its place in the batch
func itemSink(batchID string, item *Item, sink Sink) progress.Sink {
	return progress.SinkFunc(func(e progress.Event) {
		sink.EmitItem(ItemEvent{
			BatchID:  batchID,
			Position: item.Position,
			AssetID:  item.AssetID,
			Event:    &e,
		})
	})
}
