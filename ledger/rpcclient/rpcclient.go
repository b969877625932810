// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpcclient - ledger client for a remote node speaking
// JSON-RPC over TLS
package rpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"
	"time"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/ledger/local"
	"github.com/bitmark-inc/logger"
)

// Client - remote ledger
type Client struct {
	sync.Mutex
	log          *logger.L
	dial         func() (io.ReadWriteCloser, error)
	client       *rpc.Client
	pollInterval time.Duration
}

var _ ledger.Ledger = (*Client)(nil)

// New - client that dials connect with TLS on first use
func New(log *logger.L, connect string, pollInterval time.Duration) *Client {
	dial := func() (io.ReadWriteCloser, error) {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true,
		}
		return tls.Dial("tcp", connect, tlsConfig)
	}
	return NewWithDialer(log, dial, pollInterval)
}

// NewWithDialer - client over any connection, for tests and proxies
func NewWithDialer(log *logger.L, dial func() (io.ReadWriteCloser, error), pollInterval time.Duration) *Client {
	return &Client{
		log:          log,
		dial:         dial,
		pollInterval: pollInterval,
	}
}

// Close - shutdown the connection
func (c *Client) Close() error {
	c.Lock()
	defer c.Unlock()
	if nil == c.client {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// ReadDelegation - current grant, nil if never granted
func (c *Client) ReadDelegation(ctx context.Context, owner string, delegate string) (*ledger.Grant, error) {
	arguments := local.DelegationArguments{
		Owner:    owner,
		Delegate: delegate,
	}
	var reply local.DelegationReply
	if err := c.call(ctx, "ReadDelegation", &arguments, &reply); nil != err {
		return nil, err
	}
	return reply.Grant, nil
}

// Anchor - fingerprint currently anchored for an asset
func (c *Client) Anchor(ctx context.Context, assetID string) (string, error) {
	arguments := local.AnchorArguments{
		AssetID: assetID,
	}
	var reply local.AnchorReply
	if err := c.call(ctx, "Anchor", &arguments, &reply); nil != err {
		return "", err
	}
	return reply.Fingerprint, nil
}

// NextNonce - nonce for the account's next transaction
func (c *Client) NextNonce(ctx context.Context, account string) (uint64, error) {
	arguments := local.NonceArguments{
		Account: account,
	}
	var reply local.NonceReply
	if err := c.call(ctx, "NextNonce", &arguments, &reply); nil != err {
		return 0, err
	}
	return reply.Nonce, nil
}

// Submit - send a signed transaction
func (c *Client) Submit(ctx context.Context, tx *ledger.SignedTransaction) (ledger.TxRef, error) {
	arguments := local.SubmitArguments{
		Transaction: tx,
	}
	var reply local.SubmitReply
	if err := c.call(ctx, "Submit", &arguments, &reply); nil != err {
		return "", err
	}
	return reply.TxRef, nil
}

// AwaitConfirmation - poll until the status is terminal or ctx ends
func (c *Client) AwaitConfirmation(ctx context.Context, ref ledger.TxRef) (ledger.Status, error) {
	arguments := local.StatusArguments{
		TxRef: ref,
	}
	for {
		var reply local.StatusReply
		if err := c.call(ctx, "Status", &arguments, &reply); nil != err {
			return ledger.Pending, err
		}
		status, ok := ledger.ParseStatus(reply.Status)
		if !ok {
			return ledger.Pending, fault.Wrap(fault.ErrTransactionNotFound, "status: %q", reply.Status)
		}
		if status.Terminal() {
			return status, nil
		}

		c.log.Debugf("pending: %s", ref)
		select {
		case <-ctx.Done():
			return ledger.Pending, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// perform one call, reconnecting once if the connection was lost
func (c *Client) call(ctx context.Context, method string, arguments interface{}, reply interface{}) error {
	if err := ctx.Err(); nil != err {
		return err
	}
	client, err := c.connection()
	if nil != err {
		return err
	}

	call := client.Go(local.ServiceName+"."+method, arguments, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
	}

	if rpc.ErrShutdown == call.Error || io.ErrUnexpectedEOF == call.Error {
		c.log.Warnf("%s: connection lost: %s", method, call.Error)
		c.reset(client)
	}
	return translate(call.Error)
}

func (c *Client) connection() (*rpc.Client, error) {
	c.Lock()
	defer c.Unlock()
	if nil != c.client {
		return c.client, nil
	}
	conn, err := c.dial()
	if nil != err {
		return nil, err
	}
	c.client = jsonrpc.NewClient(conn)
	return c.client, nil
}

func (c *Client) reset(client *rpc.Client) {
	c.Lock()
	defer c.Unlock()
	if c.client == client {
		_ = client.Close()
		c.client = nil
	}
}

// errors cross the wire as text; restore the class of known errors
var knownErrors = []error{
	fault.ErrConfirmationTimeout,
	fault.ErrInvalidAddress,
	fault.ErrInvalidSignature,
	fault.ErrLedgerUnavailable,
	fault.ErrNonceReused,
	fault.ErrTransactionDropped,
	fault.ErrTransactionNotFound,
	fault.ErrTransactionReverted,
	fault.ErrTransactionSubmit,
	fault.ErrWrongNetwork,
}

func translate(err error) error {
	var serverError rpc.ServerError
	if !errors.As(err, &serverError) {
		return err
	}
	message := string(serverError)
	for _, known := range knownErrors {
		if message == known.Error() {
			return known
		}
		if strings.HasPrefix(message, known.Error()+":") || strings.HasSuffix(message, ": "+known.Error()) {
			return fault.Wrap(known, "remote")
		}
	}
	return err
}
