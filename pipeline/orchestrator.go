// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/contentstore"
	"github.com/bitmark-inc/assetcommit/delegation"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/retry"
	"github.com/bitmark-inc/assetcommit/signing"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

// Config - collaborators and policies of an orchestrator
//
// zero timeouts mean no per call limit beyond the caller's context
type Config struct {
	Log        *logger.L
	Store      contentstore.Store
	Ledger     ledger.Ledger
	Index      index.Index
	Gateway    *signing.Gateway
	Authorizer *delegation.Authorizer

	// content store and index calls
	StoragePolicy retry.Policy

	// whole sign, submit and confirm cycles
	LedgerPolicy retry.Policy

	StoreTimeout        time.Duration
	IndexTimeout        time.Duration
	ConfirmationTimeout time.Duration

	// nil means time.Now
	Clock func() time.Time
}

// Orchestrator - runs commit jobs; safe for concurrent use
type Orchestrator struct {
	log                 *logger.L
	store               contentstore.Store
	ledger              ledger.Ledger
	index               index.Index
	gateway             *signing.Gateway
	authorizer          *delegation.Authorizer
	storagePolicy       retry.Policy
	ledgerPolicy        retry.Policy
	storeTimeout        time.Duration
	indexTimeout        time.Duration
	confirmationTimeout time.Duration
	now                 func() time.Time

	references *references
	counters   counters
}

// New - create an orchestrator
func New(config Config) (*Orchestrator, error) {
	switch {
	case nil == config.Log:
		return nil, fault.Internal("pipeline", errMissing("log"))
	case nil == config.Store:
		return nil, fault.Internal("pipeline", errMissing("content store"))
	case nil == config.Ledger:
		return nil, fault.Internal("pipeline", errMissing("ledger"))
	case nil == config.Index:
		return nil, fault.Internal("pipeline", errMissing("index"))
	case nil == config.Gateway:
		return nil, fault.Internal("pipeline", errMissing("signing gateway"))
	case nil == config.Authorizer:
		return nil, fault.Internal("pipeline", errMissing("authorizer"))
	}

	clock := config.Clock
	if nil == clock {
		clock = time.Now
	}

	return &Orchestrator{
		log:                 config.Log,
		store:               config.Store,
		ledger:              config.Ledger,
		index:               config.Index,
		gateway:             config.Gateway,
		authorizer:          config.Authorizer,
		storagePolicy:       config.StoragePolicy,
		ledgerPolicy:        config.LedgerPolicy,
		storeTimeout:        config.StoreTimeout,
		indexTimeout:        config.IndexTimeout,
		confirmationTimeout: config.ConfirmationTimeout,
		now:                 clock,
		references:          newReferences(),
	}, nil
}

// Stats - current job counts
func (o *Orchestrator) Stats() Stats {
	return o.counters.snapshot()
}

// Commit - run one draft through every stage
//
// the session is the signer's account and network captured once by
// the caller; an empty asset id is replaced by a generated one
func (o *Orchestrator) Commit(ctx context.Context, session wallet.Session, signer wallet.Signer, draft asset.Draft, sink progress.Sink) progress.Outcome {
	job := o.newJob(session, sink)
	o.counters.running.Add(1)
	defer o.counters.running.Add(^uint64(0))

	outcome := o.commit(ctx, job, session, signer, &draft)
	o.finish(job, &outcome)
	return outcome
}

// Delete - tombstone an indexed asset
//
// the ledger anchor is cleared, which needs the delete capability
// when the acting account is not the owner
func (o *Orchestrator) Delete(ctx context.Context, session wallet.Session, signer wallet.Signer, assetID string, sink progress.Sink) progress.Outcome {
	job := o.newJob(session, sink)
	o.counters.running.Add(1)
	defer o.counters.running.Add(^uint64(0))

	outcome := o.delete(ctx, job, session, signer, assetID)
	o.finish(job, &outcome)
	return outcome
}

func (o *Orchestrator) newJob(session wallet.Session, sink progress.Sink) *Job {
	id := uuid.New().String()
	return &Job{
		ID:        id,
		Actor:     session.Account,
		StartedAt: o.now(),
		reporter:  progress.NewReporter(id, sink, o.now),
	}
}

func (o *Orchestrator) commit(ctx context.Context, job *Job, session wallet.Session, signer wallet.Signer, draft *asset.Draft) progress.Outcome {
	if "" == draft.AssetID {
		draft.AssetID = asset.NewID()
	}
	job.AssetID = draft.AssetID

	job.enter(progress.Validating, "asset: "+draft.AssetID)
	critical, err := o.validate(ctx, job, session, signer, draft)
	if nil != err {
		return job.fail(err)
	}
	job.Owner = draft.Owner

	// a refused delegate stops before anything is written
	if err := o.authorize(ctx, job, ledger.CapabilityUpdate); nil != err {
		job.enter(progress.AwaitingAuthorization, "actor: "+job.Actor)
		return job.fail(err)
	}

	if o.unchanged(ctx, job) {
		return o.reindex(ctx, job, draft)
	}

	job.enter(progress.StoringContent, "fingerprint: "+job.Fingerprint)
	if err := o.storeContent(ctx, job, critical); nil != err {
		return job.fail(err)
	}

	job.enter(progress.AwaitingAuthorization, "authorized: "+job.Actor)

	intent := ledger.AnchorIntent(job.AssetID, job.Owner, job.Fingerprint)
	if err := o.anchor(ctx, job, session, signer, intent); nil != err {
		return job.fail(err)
	}

	now := o.now().UTC()
	record := index.Record{
		AssetID:     job.AssetID,
		Owner:       job.Owner,
		Fingerprint: job.Fingerprint,
		LedgerTxRef: job.LedgerTxRef,
		Critical:    draft.Critical,
		NonCritical: draft.NonCritical,
		Version:     job.Version,
		UpdatedAt:   now,
	}
	return o.indexAsset(ctx, job, record, now)
}

func (o *Orchestrator) delete(ctx context.Context, job *Job, session wallet.Session, signer wallet.Signer, assetID string) progress.Outcome {
	job.AssetID = assetID
	job.Action = asset.Delete

	job.enter(progress.Validating, "delete: "+assetID)
	if err := asset.ValidateID(assetID); nil != err {
		return job.fail(err)
	}
	if err := o.gateway.Check(signer, session); nil != err {
		return job.fail(err)
	}
	previous, err := o.lookup(ctx, assetID)
	if nil != err {
		return job.fail(err)
	}
	if nil == previous || previous.Deleted {
		return job.fail(fault.Wrap(fault.ErrAssetNotFound, "%q", assetID))
	}
	job.previous = previous
	job.Owner = previous.Owner
	job.Version = previous.Version + 1

	job.enter(progress.AwaitingAuthorization, "actor: "+job.Actor)
	if err := o.authorize(ctx, job, ledger.CapabilityDelete); nil != err {
		return job.fail(err)
	}

	intent := ledger.AnchorIntent(job.AssetID, job.Owner, "")
	if err := o.anchor(ctx, job, session, signer, intent); nil != err {
		return job.fail(err)
	}

	now := o.now().UTC()
	record := *previous
	record.Fingerprint = ""
	record.LedgerTxRef = job.LedgerTxRef
	record.Version = job.Version
	record.Deleted = true
	record.UpdatedAt = now
	return o.indexAsset(ctx, job, record, now)
}

// account keeping once a job is over
func (o *Orchestrator) finish(job *Job, outcome *progress.Outcome) {
	if job.holding {
		o.releaseContent(job, outcome.Succeeded())
	}

	elapsed := o.now().Sub(job.StartedAt)
	switch {
	case outcome.Degraded():
		o.counters.degraded.Add(1)
		o.log.Warnf("degraded: %s  %s %s  tx: %s  warning: %s  elapsed: %s", job.ID, job.Action, job.AssetID, job.LedgerTxRef, outcome.Warning, elapsed)
	case outcome.Succeeded():
		o.counters.committed.Add(1)
		o.log.Infof("committed: %s  %s %s  version: %d  tx: %s  elapsed: %s", job.ID, job.Action, job.AssetID, job.Version, job.LedgerTxRef, elapsed)
	default:
		o.counters.failed.Add(1)
		o.log.Infof("failed: %s  %s %s  at: %s  %s: %s  elapsed: %s", job.ID, job.Action, job.AssetID, outcome.FailedStage, outcome.Reason, outcome.Message, elapsed)
	}
}

type errMissing string

func (e errMissing) Error() string {
	return "missing " + string(e)
}
