// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/progress"
)

const (
	streamType     = "application/x-ndjson"
	requestTimeout = 30 * time.Second
	maximumLine    = 8 << 20
)

// client - speaks to the daemon's HTTP API
type client struct {
	base    string
	http    *http.Client
	verbose bool
	e       io.Writer
}

// replyError - an error reply from the daemon
type replyError struct {
	Code    int        `json:"code"`
	Reason  fault.Kind `json:"reason,omitempty"`
	Message string     `json:"error"`
}

func (r *replyError) Error() string {
	if fault.KindNone == r.Reason {
		return fmt.Sprintf("%d: %s", r.Code, r.Message)
	}
	return fmt.Sprintf("%d %s: %s", r.Code, r.Reason, r.Message)
}

// streamLine - one line of a progress stream
type streamLine struct {
	Event   *progress.Event   `json:"event"`
	Outcome *progress.Outcome `json:"outcome"`
	Item    *batch.ItemEvent  `json:"item"`
	Summary json.RawMessage   `json:"summary"`
	Error   *replyError       `json:"error"`
}

func newClient(base string, verbose bool, e io.Writer) *client {
	return &client{
		base: base,
		// streams last as long as their jobs, so no overall timeout
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: requestTimeout,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		verbose: verbose,
		e:       e,
	}
}

// send a request, any non-200 reply is turned into an error
func (c *client) send(method string, path string, body interface{}) (*http.Response, error) {

	var content io.Reader
	if nil != body {
		b, err := json.Marshal(body)
		if nil != err {
			return nil, err
		}
		content = bytes.NewReader(b)
		if c.verbose {
			fmt.Fprintf(c.e, "%s %s\n%s\n", method, path, b)
		}
	} else if c.verbose {
		fmt.Fprintf(c.e, "%s %s\n", method, path)
	}

	request, err := http.NewRequest(method, c.base+path, content)
	if nil != err {
		return nil, err
	}
	if nil != body {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json, "+streamType)

	response, err := c.http.Do(request)
	if nil != err {
		return nil, err
	}

	if http.StatusOK != response.StatusCode {
		defer response.Body.Close()
		reply := replyError{Code: response.StatusCode}
		err := json.NewDecoder(io.LimitReader(response.Body, maximumLine)).Decode(&reply)
		if nil != err || "" == reply.Message {
			reply.Message = http.StatusText(response.StatusCode)
		}
		return nil, &reply
	}
	return response, nil
}

// call - a plain JSON request and reply
func (c *client) call(method string, path string, body interface{}, reply interface{}) error {
	response, err := c.send(method, path, body)
	if nil != err {
		return err
	}
	defer response.Body.Close()

	return json.NewDecoder(response.Body).Decode(reply)
}

// stream - a request answered by a progress stream, handle sees each
// line in order and the stream must end with a result line
func (c *client) stream(method string, path string, body interface{}, handle func(*streamLine) error) error {
	response, err := c.send(method, path, body)
	if nil != err {
		return err
	}
	defer response.Body.Close()

	mediaType, _, err := mime.ParseMediaType(response.Header.Get("Content-Type"))
	if nil != err || streamType != mediaType {
		return ErrNotAStream
	}

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maximumLine)

	finished := false
	for scanner.Scan() {
		b := scanner.Bytes()
		if 0 == len(bytes.TrimSpace(b)) {
			continue
		}
		var l streamLine
		if err := json.Unmarshal(b, &l); nil != err {
			return fault.Wrap(ErrNotAStream, "%s", err)
		}
		if nil != l.Error {
			return l.Error
		}
		if nil != l.Outcome || nil != l.Summary {
			finished = true
		}
		if err := handle(&l); nil != err {
			return err
		}
	}
	if err := scanner.Err(); nil != err {
		return err
	}
	if !finished {
		return ErrStreamIncomplete
	}
	return nil
}
