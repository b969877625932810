// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progress

import (
	"sync"

	"github.com/bitmark-inc/logger"
)

// Sink - receiver of progress events
//
// Emit may block; a slow consumer slows the job rather than losing events
type Sink interface {
	Emit(Event)
}

// SinkFunc - adapt a function to a Sink
type SinkFunc func(Event)

// Emit - call the function
func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Discard - drops every event
var Discard Sink = SinkFunc(func(Event) {})

// Stream - buffered channel of events
//
// only the producer may call Close, after its last Emit; a consumer
// that stops reading calls Detach so the producer cannot block forever
type Stream struct {
	queue chan Event
	done  chan struct{}
	once  sync.Once
}

// NewStream - stream holding up to size unread events
func NewStream(size int) *Stream {
	if size < 0 {
		size = 0
	}
	return &Stream{
		queue: make(chan Event, size),
		done:  make(chan struct{}),
	}
}

// Emit - queue an event, waiting while the buffer is full
func (s *Stream) Emit(e Event) {
	select {
	case s.queue <- e:
	case <-s.done:
	}
}

// Events - channel to read from, closed by Close
func (s *Stream) Events() <-chan Event {
	return s.queue
}

// Close - no more events will be sent
func (s *Stream) Close() {
	close(s.queue)
}

// Detach - the consumer has gone; later events are dropped
func (s *Stream) Detach() {
	s.once.Do(func() {
		close(s.done)
	})
}

// LogSink - writes each event to a logger channel
type LogSink struct {
	Log *logger.L
}

// Emit - log the event
func (l LogSink) Emit(e Event) {
	l.Log.Infof("job: %s  %3d%%  %s  %s", e.JobID, e.PercentComplete, e.Stage, e.Message)
}

type tee []Sink

// Tee - send every event to each sink in turn
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Emit(e Event) {
	for _, s := range t {
		if nil != s {
			s.Emit(e)
		}
	}
}
