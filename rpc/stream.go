// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/progress"
)

// events buffered between a job and a slow client
const streamBuffer = 16

var errStreamClosed = errors.New("stream closed")

// one line of a streamed reply, exactly one field is set
type line struct {
	Event   *progress.Event   `json:"event,omitempty"`
	Outcome *progress.Outcome `json:"outcome,omitempty"`
	Item    *batch.ItemEvent  `json:"item,omitempty"`
	Summary *batch.Summary    `json:"summary,omitempty"`
	Error   *eType            `json:"error,omitempty"`
}

// newline delimited JSON writer, safe for concurrent use
type lineWriter struct {
	sync.Mutex
	encoder *json.Encoder
	flusher http.Flusher
	failed  bool
}

func newLineWriter(w http.ResponseWriter) *lineWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	return &lineWriter{
		encoder: json.NewEncoder(w),
		flusher: flusher,
	}
}

// once a write fails every later write is dropped
func (l *lineWriter) write(v line) error {
	l.Lock()
	defer l.Unlock()

	if l.failed {
		return errStreamClosed
	}
	if err := l.encoder.Encode(v); nil != err {
		l.failed = true
		return err
	}
	if nil != l.flusher {
		l.flusher.Flush()
	}
	return nil
}

// run a single job and stream its events then its outcome
//
// a client that goes away cancels the request context, which the job
// sees at its next blocking step
func (s *Server) stream(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, sink progress.Sink) progress.Outcome) {
	out := newLineWriter(w)

	events := progress.NewStream(streamBuffer)
	result := make(chan progress.Outcome, 1)
	go func() {
		result <- run(r.Context(), events)
		events.Close()
	}()

	for e := range events.Events() {
		e := e
		if err := out.write(line{Event: &e}); nil != err {
			s.Log.Debugf("event not delivered: %s", err)
			events.Detach()
		}
	}

	outcome := <-result
	if err := out.write(line{Outcome: &outcome}); nil != err {
		s.Log.Warnf("job: %s  outcome not delivered: %s", outcome.JobID, err)
	}
}
