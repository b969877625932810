// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bitmark-inc/assetcommit/fault"
)

// largest accepted request body
const maximumBody = 8 << 20

// send an JSON encoded reply
func sendReply(w http.ResponseWriter, data interface{}) {
	text, err := json.Marshal(data)
	if nil != err {
		sendInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(text)
}

// selected errors
func sendNotFound(w http.ResponseWriter, r *http.Request) {
	sendError(w, "not found", fault.KindNone, http.StatusNotFound)
}
func sendMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendError(w, "method not allowed", fault.KindNone, http.StatusMethodNotAllowed)
}
func sendInternalServerError(w http.ResponseWriter) {
	sendError(w, "internal server error", fault.KindInternal, http.StatusInternalServerError)
}

// to compose JSON error messages
type eType struct {
	Code   int        `json:"code"`
	Reason fault.Kind `json:"reason,omitempty"`
	Error  string     `json:"error"`
}

// output an error with a JSON body
func sendError(w http.ResponseWriter, message string, reason fault.Kind, code int) {
	text, err := json.Marshal(eType{
		Code:   code,
		Reason: reason,
		Error:  message,
	})
	if nil != err {
		// manually composed error just incase JSON fails
		http.Error(w, `{"code":500,"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	w.Write(text)
}

// output an error from the fault taxonomy
func sendFault(w http.ResponseWriter, err error) {
	kind := fault.KindOf(err)
	code := statusCode(err)
	message := err.Error()
	if http.StatusInternalServerError == code {
		message = "internal server error"
	}
	sendError(w, message, kind, code)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, fault.ErrRateLimiting):
		return http.StatusTooManyRequests
	case errors.Is(err, fault.ErrAssetNotFound), errors.Is(err, fault.ErrPromptNotFound):
		return http.StatusNotFound
	}

	switch fault.KindOf(err) {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindAuthorization:
		return http.StatusForbidden
	case fault.KindWalletUnavailable:
		return http.StatusServiceUnavailable
	case fault.KindSignatureRejected:
		return http.StatusConflict
	case fault.KindStorage, fault.KindLedger:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode a JSON request body, any failure is a bad request
func decodeBody(r *http.Request, body interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maximumBody))
	decoder.UseNumber()
	if err := decoder.Decode(body); nil != err {
		var v fault.ValidationError
		if errors.As(err, &v) {
			return err
		}
		return fault.Wrap(fault.ErrRequestInvalid, "%s", err)
	}
	return nil
}
