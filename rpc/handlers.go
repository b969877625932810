// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/pipeline"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/rpc/ratelimit"
	"github.com/bitmark-inc/assetcommit/wallet"
)

// POST /v1/assets
func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	if err := ratelimit.Limit(r.Context(), s.limiter, maximumWait); nil != err {
		sendFault(w, err)
		return
	}

	var draft asset.Draft
	if err := decodeBody(r, &draft); nil != err {
		sendFault(w, err)
		return
	}

	session := wallet.Snapshot(s.Signer)
	s.Log.Infof("commit: %q  owner: %s  actor: %s", draft.AssetID, draft.Owner, session.Account)

	s.stream(w, r, func(ctx context.Context, sink progress.Sink) progress.Outcome {
		return s.Committer.Commit(ctx, session, s.Signer, draft, sink)
	})
}

// DELETE /v1/assets/{id}
func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	if err := ratelimit.Limit(r.Context(), s.limiter, maximumWait); nil != err {
		sendFault(w, err)
		return
	}

	assetID := mux.Vars(r)["id"]
	session := wallet.Snapshot(s.Signer)
	s.Log.Infof("delete: %q  actor: %s", assetID, session.Account)

	s.stream(w, r, func(ctx context.Context, sink progress.Sink) progress.Outcome {
		return s.Committer.Delete(ctx, session, s.Signer, assetID, sink)
	})
}

type showReply struct {
	Asset *index.Record    `json:"asset"`
	Log   []index.LogEntry `json:"log"`
}

// GET /v1/assets/{id}
func (s *Server) show(w http.ResponseWriter, r *http.Request) {
	if err := ratelimit.Limit(r.Context(), s.limiter, maximumWait); nil != err {
		sendFault(w, err)
		return
	}

	assetID := mux.Vars(r)["id"]
	if err := asset.ValidateID(assetID); nil != err {
		sendFault(w, err)
		return
	}

	record, err := s.Index.GetAsset(r.Context(), assetID)
	if nil != err {
		s.Log.Errorf("get asset: %q  error: %s", assetID, err)
		sendInternalServerError(w)
		return
	}
	if nil == record {
		sendFault(w, fault.ErrAssetNotFound)
		return
	}

	entries, err := s.Index.TransactionLog(r.Context(), assetID)
	if nil != err {
		s.Log.Errorf("transaction log: %q  error: %s", assetID, err)
		sendInternalServerError(w)
		return
	}

	sendReply(w, showReply{
		Asset: record,
		Log:   entries,
	})
}

type batchArguments struct {
	Drafts []asset.Draft `json:"drafts"`
}

// POST /v1/batches
func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	var arguments batchArguments
	if err := decodeBody(r, &arguments); nil != err {
		_ = ratelimit.Limit(r.Context(), s.limiter, maximumWait)
		sendFault(w, err)
		return
	}

	// a rejected batch is charged as a single request
	if err := s.Batcher.Check(arguments.Drafts); nil != err {
		_ = ratelimit.Limit(r.Context(), s.limiter, maximumWait)
		sendFault(w, err)
		return
	}

	if err := ratelimit.LimitN(r.Context(), s.limiter, len(arguments.Drafts), maximumWait); nil != err {
		sendFault(w, err)
		return
	}

	session := wallet.Snapshot(s.Signer)
	s.Log.Infof("batch: %d drafts  actor: %s", len(arguments.Drafts), session.Account)

	out := newLineWriter(w)
	sink := batch.SinkFunc(func(item batch.ItemEvent) {
		_ = out.write(line{Item: &item})
	})

	summary, err := s.Batcher.Commit(r.Context(), session, s.Signer, arguments.Drafts, sink)
	if nil != err {
		// only possible if the drafts changed after the check
		_ = out.write(line{Error: &eType{
			Code:   statusCode(err),
			Reason: fault.KindOf(err),
			Error:  err.Error(),
		}})
		return
	}
	_ = out.write(line{Summary: summary})
}

type delegationArguments struct {
	Delegate     string              `json:"delegate"`
	Capabilities ledger.Capabilities `json:"capabilities"`
	Enable       bool                `json:"enable"`
}

// POST /v1/delegations
func (s *Server) delegate(w http.ResponseWriter, r *http.Request) {
	if err := ratelimit.Limit(r.Context(), s.limiter, maximumWait); nil != err {
		sendFault(w, err)
		return
	}

	var arguments delegationArguments
	if err := decodeBody(r, &arguments); nil != err {
		sendFault(w, err)
		return
	}

	session := wallet.Snapshot(s.Signer)
	s.Log.Infof("delegation: %s  capabilities: %s  enable: %t", arguments.Delegate, arguments.Capabilities, arguments.Enable)

	s.stream(w, r, func(ctx context.Context, sink progress.Sink) progress.Outcome {
		return s.Delegator.RequestDelegation(ctx, s.Signer, session, arguments.Delegate, arguments.Capabilities, arguments.Enable, sink)
	})
}

// GET /v1/signatures
func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	if nil == s.Approvals {
		sendReply(w, []wallet.Request{})
		return
	}
	sendReply(w, s.Approvals.Pending())
}

type decisionReply struct {
	ID       string `json:"id"`
	Approved bool   `json:"approved"`
}

// POST /v1/signatures/{id}/approve
func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, true)
}

// POST /v1/signatures/{id}/reject
func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, false)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, approved bool) {
	if err := ratelimit.Limit(r.Context(), s.limiter, maximumWait); nil != err {
		sendFault(w, err)
		return
	}
	if nil == s.Approvals {
		sendFault(w, fault.ErrPromptNotFound)
		return
	}

	id := mux.Vars(r)["id"]
	var err error
	if approved {
		err = s.Approvals.Approve(id)
	} else {
		err = s.Approvals.Reject(id)
	}
	if nil != err {
		sendFault(w, err)
		return
	}

	sendReply(w, decisionReply{
		ID:       id,
		Approved: approved,
	})
}

type statusReply struct {
	Account           string         `json:"account,omitempty"`
	Network           string         `json:"network"`
	Chain             string         `json:"chain"`
	Version           string         `json:"version"`
	Uptime            string         `json:"uptime"`
	Requests          int64          `json:"requests"`
	PendingSignatures int            `json:"pendingSignatures"`
	Jobs              pipeline.Stats `json:"jobs"`
}

// GET /v1/status
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	session := wallet.Snapshot(s.Signer)

	reply := statusReply{
		Account:  session.Account,
		Network:  session.Network,
		Chain:    s.Chain,
		Version:  s.Version,
		Uptime:   time.Since(s.start).Round(time.Second).String(),
		Requests: s.active.Load(),
		Jobs:     s.Committer.Stats(),
	}
	if nil != s.Approvals {
		reply.PendingSignatures = len(s.Approvals.Pending())
	}

	sendReply(w, reply)
}
