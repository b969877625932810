// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/logger"
)

// Request - a signature waiting for a human decision
type Request struct {
	ID          string                      `json:"id"`
	Transaction *ledger.UnsignedTransaction `json:"transaction"`
	Created     time.Time                   `json:"created"`
}

type pending struct {
	request Request
	result  chan error
}

// Prompt - approver that queues requests until they are approved or
// rejected through Approve/Reject
type Prompt struct {
	sync.Mutex
	log      *logger.L
	requests map[string]*pending
}

var _ Approver = (*Prompt)(nil)

// NewPrompt - empty queue
func NewPrompt(log *logger.L) *Prompt {
	return &Prompt{
		log:      log,
		requests: make(map[string]*pending),
	}
}

// Confirm - queue the transaction and block until a decision or ctx ends
func (p *Prompt) Confirm(ctx context.Context, tx *ledger.UnsignedTransaction) error {
	item := &pending{
		request: Request{
			ID:          uuid.New().String(),
			Transaction: tx,
			Created:     time.Now(),
		},
		result: make(chan error, 1),
	}

	p.Lock()
	p.requests[item.request.ID] = item
	p.Unlock()

	p.log.Infof("awaiting decision: %s  %s", item.request.ID, tx.Intent.Operation)

	select {
	case err := <-item.result:
		return err
	case <-ctx.Done():
		p.remove(item.request.ID)
		p.log.Infof("cancelled: %s", item.request.ID)
		return fault.ErrSignatureCancelled
	}
}

// Pending - outstanding requests, oldest first
func (p *Prompt) Pending() []Request {
	p.Lock()
	defer p.Unlock()
	requests := make([]Request, 0, len(p.requests))
	for _, item := range p.requests {
		requests = append(requests, item.request)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].Created.Before(requests[j].Created)
	})
	return requests
}

// Approve - let the request be signed
func (p *Prompt) Approve(id string) error {
	return p.resolve(id, nil)
}

// Reject - decline the request
func (p *Prompt) Reject(id string) error {
	return p.resolve(id, fault.ErrSignatureDeclined)
}

// Expire - reject every request older than maxAge, returns the count
func (p *Prompt) Expire(now time.Time, maxAge time.Duration) int {
	p.Lock()
	defer p.Unlock()
	n := 0
	for id, item := range p.requests {
		if now.Sub(item.request.Created) > maxAge {
			delete(p.requests, id)
			item.result <- fault.ErrSignatureCancelled
			n += 1
		}
	}
	if n > 0 {
		p.log.Infof("expired: %d", n)
	}
	return n
}

func (p *Prompt) resolve(id string, err error) error {
	item := p.remove(id)
	if nil == item {
		return fault.ErrPromptNotFound
	}
	item.result <- err
	p.log.Infof("resolved: %s  error: %v", id, err)
	return nil
}

func (p *Prompt) remove(id string) *pending {
	p.Lock()
	defer p.Unlock()
	item, ok := p.requests[id]
	if !ok {
		return nil
	}
	delete(p.requests, id)
	return item
}
