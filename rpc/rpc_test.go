// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/fixtures"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/pipeline"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/rpc"
	"github.com/bitmark-inc/assetcommit/wallet"
)

func TestCommitStreamsEvents(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	lines := readStream(t, h.do(t, "POST", "/v1/assets", draftJSON("a1", fixtures.Owner, "first")))
	outcome, stages := outcomeOf(t, lines)

	assert.Equal(t, progress.Committed, outcome.Stage, "stage: %s", outcome.Message)
	assert.Equal(t, asset.Create, outcome.Action, "action")
	assert.Equal(t, uint64(1), outcome.Version, "version")
	assert.NotEmpty(t, outcome.LedgerTxRef, "tx ref")
	assert.Equal(t, []progress.Stage{
		progress.Validating,
		progress.StoringContent,
		progress.AwaitingAuthorization,
		progress.SigningTransaction,
		progress.AwaitingConfirmation,
		progress.Indexing,
		progress.Committed,
	}, stages, "stages")

	response := h.do(t, "GET", "/v1/assets/a1", "")
	require.Equal(t, http.StatusOK, response.StatusCode, "show")
	var shown struct {
		Asset index.Record     `json:"asset"`
		Log   []index.LogEntry `json:"log"`
	}
	require.Nil(t, json.NewDecoder(response.Body).Decode(&shown), "decode")
	assert.Equal(t, fixtures.Owner, shown.Asset.Owner, "owner")
	assert.Equal(t, outcome.Fingerprint, shown.Asset.Fingerprint, "fingerprint")
	require.Len(t, shown.Log, 1, "log")
	assert.Equal(t, outcome.LedgerTxRef, shown.Log[0].LedgerTxRef, "log tx ref")
}

func TestCommitFailureIsStreamed(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	lines := readStream(t, h.do(t, "POST", "/v1/assets", draftJSON("a1", fixtures.Owner, "")))
	outcome, stages := outcomeOf(t, lines)

	assert.Equal(t, progress.Failed, outcome.Stage, "stage")
	assert.Equal(t, progress.Validating, outcome.FailedStage, "failed stage")
	assert.Equal(t, fault.KindValidation, outcome.Reason, "reason")
	assert.Equal(t, []progress.Stage{progress.Validating, progress.Failed}, stages, "stages")
	assert.Equal(t, 0, h.store.Len(), "content written")
}

func TestBadRequestBody(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	for _, path := range []string{"/v1/assets", "/v1/batches", "/v1/delegations"} {
		response := h.do(t, "POST", path, "{")
		assert.Equal(t, http.StatusBadRequest, response.StatusCode, "path: %s", path)
		reply := decodeError(t, response)
		assert.Equal(t, fault.KindValidation, reply.Reason, "path: %s", path)
	}
}

func TestShowErrors(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	response := h.do(t, "GET", "/v1/assets/unknown", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode, "unknown")
	assert.Equal(t, fault.ErrAssetNotFound.Error(), decodeError(t, response).Error)

	response = h.do(t, "GET", "/v1/assets/-bad", "")
	assert.Equal(t, http.StatusBadRequest, response.StatusCode, "malformed")
}

func TestDeleteStreams(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	outcome, _ := outcomeOf(t, readStream(t, h.do(t, "POST", "/v1/assets", draftJSON("a1", fixtures.Owner, "first"))))
	require.Equal(t, progress.Committed, outcome.Stage, "commit: %s", outcome.Message)

	outcome, _ = outcomeOf(t, readStream(t, h.do(t, "DELETE", "/v1/assets/a1", "")))
	assert.Equal(t, progress.Committed, outcome.Stage, "delete: %s", outcome.Message)
	assert.Equal(t, asset.Delete, outcome.Action, "action")
	assert.Equal(t, uint64(2), outcome.Version, "version")

	outcome, _ = outcomeOf(t, readStream(t, h.do(t, "DELETE", "/v1/assets/a1", "")))
	assert.Equal(t, progress.Failed, outcome.Stage, "second delete")
	assert.Equal(t, fault.KindValidation, outcome.Reason, "reason")
}

func TestBatchStreamsItems(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	body := fmt.Sprintf(`{"drafts":[%s,%s,%s]}`,
		draftJSON("b1", fixtures.Owner, "one"),
		draftJSON("b2", fixtures.Owner, ""),
		draftJSON("b3", fixtures.Owner, "three"),
	)
	lines := readStream(t, h.do(t, "POST", "/v1/batches", body))
	require.NotEmpty(t, lines)

	outcomes := map[int]*progress.Outcome{}
	for _, l := range lines[:len(lines)-1] {
		require.NotNil(t, l.Item, "item line")
		if nil != l.Item.Outcome {
			outcomes[l.Item.Position] = l.Item.Outcome
		}
	}
	assert.Len(t, outcomes, 3, "item outcomes")

	summary := lines[len(lines)-1].Summary
	require.NotNil(t, summary, "summary line")
	assert.Equal(t, 3, summary.Total, "total")
	assert.Equal(t, []int{1, 3}, summary.Succeeded, "succeeded")
	require.Len(t, summary.Failed, 1, "failed")
	assert.Equal(t, 2, summary.Failed[0].Position, "failed position")
	assert.Equal(t, fault.KindValidation, summary.Failed[0].Reason, "failed reason")
}

func TestBatchRejectedUpFront(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	bodies := map[string]string{
		"empty":     `{"drafts":[]}`,
		"duplicate": fmt.Sprintf(`{"drafts":[%s,%s]}`, draftJSON("d", fixtures.Owner, "x"), draftJSON("d", fixtures.Owner, "y")),
		"too large": fmt.Sprintf(`{"drafts":[%s,%s,%s,%s]}`,
			draftJSON("", fixtures.Owner, "1"),
			draftJSON("", fixtures.Owner, "2"),
			draftJSON("", fixtures.Owner, "3"),
			draftJSON("", fixtures.Owner, "4"),
		),
	}
	for name, body := range bodies {
		response := h.do(t, "POST", "/v1/batches", body)
		assert.Equal(t, http.StatusBadRequest, response.StatusCode, name)
		assert.Equal(t, fault.KindValidation, decodeError(t, response).Reason, name)
	}
	assert.Equal(t, 0, h.store.Len(), "content written")
}

func TestDelegationStreams(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	body := fmt.Sprintf(`{"delegate":%q,"capabilities":["update"],"enable":true}`, fixtures.Delegate)
	outcome, stages := outcomeOf(t, readStream(t, h.do(t, "POST", "/v1/delegations", body)))

	assert.Equal(t, progress.Committed, outcome.Stage, "stage: %s", outcome.Message)
	assert.Equal(t, []progress.Stage{
		progress.Validating,
		progress.SigningTransaction,
		progress.AwaitingConfirmation,
		progress.Committed,
	}, stages, "stages")

	grant, err := h.ledger.ReadDelegation(context.Background(), fixtures.Owner, fixtures.Delegate)
	require.Nil(t, err, "read")
	require.NotNil(t, grant, "grant")
	assert.True(t, grant.Allows(ledger.CapabilityUpdate), "update")
	assert.False(t, grant.Allows(ledger.CapabilityDelete), "delete")
}

func TestUnknownCapability(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	body := fmt.Sprintf(`{"delegate":%q,"capabilities":["transfer"],"enable":true}`, fixtures.Delegate)
	response := h.do(t, "POST", "/v1/delegations", body)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode, "status")
}

// wait for the single pending signature request
func waitForRequest(t *testing.T, h *harness) wallet.Request {
	for i := 0; i < 200; i += 1 {
		response := h.do(t, "GET", "/v1/signatures", "")
		require.Equal(t, http.StatusOK, response.StatusCode, "pending")
		var requests []wallet.Request
		require.Nil(t, json.NewDecoder(response.Body).Decode(&requests), "decode")
		if 1 == len(requests) {
			return requests[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no signature request")
	return wallet.Request{}
}

func TestSignatureApproved(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, true)

	done := h.post("/v1/assets", draftJSON("s1", fixtures.Owner, "signed"))

	request := waitForRequest(t, h)
	assert.Equal(t, ledger.AnchorAsset, request.Transaction.Intent.Operation, "operation")
	assert.Equal(t, "s1", request.Transaction.Intent.AssetID, "asset id")

	response := h.do(t, "POST", "/v1/signatures/"+request.ID+"/approve", "")
	assert.Equal(t, http.StatusOK, response.StatusCode, "approve")

	outcome, _ := outcomeOf(t, readStream(t, <-done))
	assert.Equal(t, progress.Committed, outcome.Stage, "stage: %s", outcome.Message)
}

func TestSignatureRejected(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, true)

	done := h.post("/v1/assets", draftJSON("s1", fixtures.Owner, "signed"))

	request := waitForRequest(t, h)
	response := h.do(t, "POST", "/v1/signatures/"+request.ID+"/reject", "")
	assert.Equal(t, http.StatusOK, response.StatusCode, "reject")

	outcome, _ := outcomeOf(t, readStream(t, <-done))
	assert.Equal(t, progress.Failed, outcome.Stage, "stage")
	assert.Equal(t, progress.SigningTransaction, outcome.FailedStage, "failed stage")
	assert.Equal(t, fault.KindSignatureRejected, outcome.Reason, "reason")
	assert.Equal(t, 0, h.store.Len(), "content left after rejection")

	response = h.do(t, "POST", "/v1/signatures/"+request.ID+"/approve", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode, "already decided")
}

func TestSignaturesWithoutPrompt(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	response := h.do(t, "GET", "/v1/signatures", "")
	assert.Equal(t, http.StatusOK, response.StatusCode, "list")

	response = h.do(t, "POST", "/v1/signatures/x/approve", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode, "approve")
}

func TestStatus(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	outcome, _ := outcomeOf(t, readStream(t, h.do(t, "POST", "/v1/assets", draftJSON("a1", fixtures.Owner, "first"))))
	require.Equal(t, progress.Committed, outcome.Stage, "commit: %s", outcome.Message)

	response := h.do(t, "GET", "/v1/status", "")
	require.Equal(t, http.StatusOK, response.StatusCode, "status")
	var status struct {
		Account string         `json:"account"`
		Network string         `json:"network"`
		Chain   string         `json:"chain"`
		Version string         `json:"version"`
		Jobs    pipeline.Stats `json:"jobs"`
	}
	require.Nil(t, json.NewDecoder(response.Body).Decode(&status), "decode")
	assert.Equal(t, fixtures.Owner, status.Account, "account")
	assert.Equal(t, "local", status.Network, "network")
	assert.Equal(t, "local", status.Chain, "chain")
	assert.Equal(t, "test", status.Version, "version")
	assert.Equal(t, uint64(1), status.Jobs.Committed, "committed")
	assert.Equal(t, uint64(0), status.Jobs.Running, "running")
}

func TestRateLimited(t *testing.T) {
	h := newHarness(t, rpc.Configuration{RateLimit: 0.001, RateBurst: 1}, false)

	response := h.do(t, "GET", "/v1/assets/a1", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode, "first")

	response = h.do(t, "GET", "/v1/assets/a1", "")
	assert.Equal(t, http.StatusTooManyRequests, response.StatusCode, "second")
}

func TestRouting(t *testing.T) {
	h := newHarness(t, rpc.Configuration{}, false)

	response := h.do(t, "GET", "/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode, "unknown path")

	response = h.do(t, "GET", "/v1/batches", "")
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode, "wrong method")

	var reply struct {
		Code  int    `json:"code"`
		Error string `json:"error"`
	}
	require.Nil(t, json.NewDecoder(response.Body).Decode(&reply), "error body")
	assert.Equal(t, http.StatusMethodNotAllowed, reply.Code)
	assert.Equal(t, "method not allowed", reply.Error)

	response = h.do(t, "DELETE", "/v1/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode, "wrong method on status")

	response = h.do(t, "GET", "/elsewhere", "")
	assert.Equal(t, http.StatusNotFound, response.StatusCode, "outside the api")
}

func TestCORS(t *testing.T) {
	h := newHarness(t, rpc.Configuration{AllowOrigins: []string{"https://app.example.com"}}, false)

	request, err := http.NewRequest("OPTIONS", h.http.URL+"/v1/assets", nil)
	require.Nil(t, err)
	request.Header.Set("Origin", "https://app.example.com")
	request.Header.Set("Access-Control-Request-Method", "POST")
	response, err := h.http.Client().Do(request)
	require.Nil(t, err)
	defer response.Body.Close()

	assert.Equal(t, "https://app.example.com", response.Header.Get("Access-Control-Allow-Origin"), "allowed")

	request.Header.Set("Origin", "https://elsewhere.example.com")
	response, err = h.http.Client().Do(request)
	require.Nil(t, err)
	defer response.Body.Close()

	assert.Equal(t, "", response.Header.Get("Access-Control-Allow-Origin"), "refused")
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := rpc.New(&rpc.Configuration{}, rpc.Options{})
	assert.True(t, fault.IsErrInternal(err), "error: %v", err)
}
