// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/contentstore"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/retry"
	"github.com/bitmark-inc/assetcommit/wallet"
)

// Validating: the draft, the signer and the existing record; returns
// the canonical critical metadata
func (o *Orchestrator) validate(ctx context.Context, job *Job, session wallet.Session, signer wallet.Signer, draft *asset.Draft) ([]byte, error) {
	if err := asset.Validate(draft); nil != err {
		return nil, err
	}
	if err := o.gateway.Check(signer, session); nil != err {
		return nil, err
	}

	critical, err := asset.Canonical(draft.Critical)
	if nil != err {
		return nil, err
	}
	id, err := contentstore.Fingerprint(critical)
	if nil != err {
		return nil, fault.Internal(progress.Validating.String(), err)
	}
	job.content = id
	job.Fingerprint = id.String()

	previous, err := o.lookup(ctx, draft.AssetID)
	if nil != err {
		return nil, err
	}
	job.previous = previous

	switch {
	case nil == previous:
		job.Action = asset.Create
		job.Version = 1
	case !ledger.SameAddress(previous.Owner, draft.Owner):
		job.Action = asset.Update
		return nil, fault.Wrap(fault.ErrOwnerMismatch, "%q is registered to %s", draft.AssetID, previous.Owner)
	case previous.Deleted:
		job.Action = asset.Create
		job.Version = previous.Version + 1
	default:
		job.Action = asset.Update
		job.Version = previous.Version + 1
	}

	return critical, nil
}

// current index record, nil if none
func (o *Orchestrator) lookup(ctx context.Context, assetID string) (*index.Record, error) {
	ictx, cancel := withTimeout(ctx, o.indexTimeout)
	defer cancel()

	record, err := o.index.GetAsset(ictx, assetID)
	if nil != err {
		o.log.Errorf("index read: %q  error: %s", assetID, err)
		return nil, fault.Internal(progress.Validating.String(), err)
	}
	return record, nil
}

// owner is always allowed; anyone else needs the capability from the
// ledger's delegation
func (o *Orchestrator) authorize(ctx context.Context, job *Job, capability ledger.Capabilities) error {
	if ledger.SameAddress(job.Actor, job.Owner) {
		return nil
	}
	return o.authorizer.Authorize(ctx, job.Owner, job.Actor, capability)
}

// the critical metadata is what is already indexed and anchored
func (o *Orchestrator) unchanged(ctx context.Context, job *Job) bool {
	previous := job.previous
	if !previous.Anchored() || previous.Deleted || previous.Fingerprint != job.Fingerprint {
		return false
	}

	lctx, cancel := withTimeout(ctx, o.storeTimeout)
	defer cancel()

	anchored, err := o.ledger.Anchor(lctx, job.AssetID)
	if nil != err {
		o.log.Warnf("anchor read: %q  error: %s", job.AssetID, err)
		return false
	}
	if anchored != job.Fingerprint {
		o.log.Warnf("anchor: %q  ledger: %q  index: %q", job.AssetID, anchored, previous.Fingerprint)
		return false
	}
	return true
}

// unchanged critical metadata: no content or ledger writes, only the
// non-critical part is indexed again if it differs
func (o *Orchestrator) reindex(ctx context.Context, job *Job, draft *asset.Draft) progress.Outcome {
	previous := job.previous
	job.unchanged = true
	job.Version = previous.Version
	job.LedgerTxRef = previous.LedgerTxRef

	if sameMetadata(previous.NonCritical, draft.NonCritical) {
		return job.commit(nil)
	}

	now := o.now().UTC()
	record := *previous
	record.NonCritical = draft.NonCritical
	record.UpdatedAt = now
	return o.indexAsset(ctx, job, record, now)
}

func sameMetadata(a asset.Metadata, b asset.Metadata) bool {
	if 0 == len(a) && 0 == len(b) {
		return true
	}
	x, err := asset.Canonical(a)
	if nil != err {
		return false
	}
	y, err := asset.Canonical(b)
	if nil != err {
		return false
	}
	return bytes.Equal(x, y)
}

// StoringContent: write the canonical critical metadata
func (o *Orchestrator) storeContent(ctx context.Context, job *Job, data []byte) error {
	o.references.acquire(job.content.KeyString())
	job.holding = true

	hctx, cancel := withTimeout(ctx, o.storeTimeout)
	present, err := o.store.Has(hctx, job.content)
	cancel()
	if nil != err {
		// unknown, so never remove it
		present = true
	}

	var previous error
	err = retry.Do(ctx, o.storagePolicy, func(attempt int) error {
		if attempt > 1 {
			job.record(previous)
		}
		sctx, cancel := withTimeout(ctx, o.storeTimeout)
		defer cancel()

		id, err := o.store.Store(sctx, data)
		if nil == err {
			if !id.Equals(job.content) {
				return retry.Permanent(fault.Internal(progress.StoringContent.String(), fmt.Errorf("store returned: %s expected: %s", id, job.content)))
			}
			return nil
		}

		o.log.Warnf("store: %q  attempt: %d  error: %s", job.AssetID, attempt, err)
		switch {
		case errors.Is(err, fault.ErrContentImmutable):
			return retry.Permanent(err)
		case fault.IsErrStorage(err):
			previous = err
			return err
		case nil == ctx.Err() && errors.Is(err, context.DeadlineExceeded):
			previous = fault.Wrap(fault.ErrContentStoreUnavailable, "timeout after %s", o.storeTimeout)
			return previous
		default:
			return retry.Permanent(fault.Internal(progress.StoringContent.String(), err))
		}
	})
	if nil != err {
		if isContextError(err) {
			if nil != previous {
				return previous
			}
			return fault.Internal(progress.StoringContent.String(), err)
		}
		return err
	}

	job.fresh = !present
	return nil
}

// drop the job's hold on its content and remove an object the job
// created if the job failed before reaching the ledger
func (o *Orchestrator) releaseContent(job *Job, succeeded bool) {
	job.holding = false
	key := job.content.KeyString()

	remover, ok := o.store.(contentstore.Remover)
	if succeeded || job.submitted || !job.fresh || !ok {
		o.references.release(key, nil)
		return
	}

	o.references.release(key, func() {
		// the job's own context may already be cancelled
		rctx, cancel := withTimeout(context.Background(), o.storeTimeout)
		defer cancel()
		if err := remover.Remove(rctx, job.content); nil != err {
			o.log.Warnf("remove: %s  error: %s", job.content, err)
			return
		}
		o.log.Debugf("removed: %s  unused after: %s", job.content, job.Stage)
	})
}

// SigningTransaction and AwaitingConfirmation, repeated as a whole for
// ledger faults; content is not stored again
func (o *Orchestrator) anchor(ctx context.Context, job *Job, session wallet.Session, signer wallet.Signer, intent ledger.Intent) error {
	var previous error
	err := retry.Do(ctx, o.ledgerPolicy, func(attempt int) error {
		message := "waiting for signature"
		if attempt > 1 {
			job.record(previous)
			message = fmt.Sprintf("attempt: %d  waiting for signature", attempt)
		}
		job.enter(progress.SigningTransaction, message)

		handle, err := o.gateway.SignAndSubmit(ctx, signer, session, intent)
		if nil != err {
			previous = err
			if fault.IsErrLedger(err) {
				return err
			}
			return retry.Permanent(err)
		}
		job.LedgerTxRef = handle.TxRef
		job.submitted = true

		message = "submitted: " + handle.TxRef.String()
		if nil != handle.Fee {
			message += "  fee: " + handle.Fee.String()
		}
		job.enter(progress.AwaitingConfirmation, message)

		err = o.gateway.Await(ctx, handle, o.confirmationTimeout)
		if nil != err {
			previous = err
			if errors.Is(err, fault.ErrTransactionReverted) && !ledger.SameAddress(job.Actor, job.Owner) {
				// the delegation may have been revoked since it was cached
				o.authorizer.Invalidate(job.Owner, job.Actor)
			}
			if fault.IsErrLedger(err) && nil == ctx.Err() {
				return err
			}
			return retry.Permanent(err)
		}
		return nil
	})

	if nil == err {
		return nil
	}

	// cancelled between attempts
	if nil != previous && isContextError(err) {
		return previous
	}
	return fault.Internal(job.Stage.String(), err)
}

// Indexing: after ledger confirmation nothing can fail the job, an
// index fault is reported as a warning
func (o *Orchestrator) indexAsset(ctx context.Context, job *Job, record index.Record, now time.Time) progress.Outcome {
	job.enter(progress.Indexing, "ledger: "+job.LedgerTxRef.String())

	// the ledger write is final, so finish even if the caller has gone
	ctx = context.WithoutCancel(ctx)

	entry := index.LogEntry{
		AssetID:     job.AssetID,
		Action:      job.Action,
		Actor:       job.Actor,
		Fingerprint: record.Fingerprint,
		LedgerTxRef: job.LedgerTxRef,
		Version:     job.Version,
		Timestamp:   now,
	}

	var warning error
	err := o.indexCall(ctx, func(ictx context.Context) error {
		return o.index.UpsertAsset(ictx, record)
	})
	if nil != err {
		o.log.Errorf("upsert: %q  tx: %s  error: %s", job.AssetID, job.LedgerTxRef, err)
		warning = fault.Wrap(fault.ErrIndexWriteFailed, "asset record: %s", err)
		entry.Warning = warning.Error()
	}

	err = o.indexCall(ctx, func(ictx context.Context) error {
		return o.index.AppendTransactionLogEntry(ictx, entry)
	})
	if nil != err {
		o.log.Errorf("log entry: %q  tx: %s  error: %s", job.AssetID, job.LedgerTxRef, err)
		if nil == warning {
			warning = fault.Wrap(fault.ErrIndexWriteFailed, "transaction log: %s", err)
		}
	}
	return job.commit(warning)
}

func (o *Orchestrator) indexCall(ctx context.Context, call func(context.Context) error) error {
	return retry.Do(ctx, o.storagePolicy, func(attempt int) error {
		ictx, cancel := withTimeout(ctx, o.indexTimeout)
		defer cancel()
		err := call(ictx)
		if nil != err && attempt > 1 {
			o.log.Debugf("index attempt: %d  error: %s", attempt, err)
		}
		return err
	})
}

// a zero duration leaves ctx unlimited
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
