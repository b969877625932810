// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package listeners - TLS JSON-RPC listener through which a daemon
// running the embedded ledger serves it to other daemons
package listeners

import (
	"crypto/tls"
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/logger"
)

const (
	logName            = "ledger_rpc"
	minConnectionCount = 1
)

// Configuration - configuration file data for the listener
type Configuration struct {
	MaximumConnections int64    `gluamapper:"maximum_connections" json:"maximum_connections"`
	Listen             []string `gluamapper:"listen" json:"listen"`
	Certificate        string   `gluamapper:"certificate" json:"certificate"`
	PrivateKey         string   `gluamapper:"private_key" json:"private_key"`
}

// Listener - accepts TLS connections and serves each with JSON-RPC
type Listener struct {
	sync.Mutex
	log             *logger.L
	server          *rpc.Server
	tlsConfig       *tls.Config
	maxConnections  int64
	ipType          []string
	listenIPAndPort []string
	listeners       []net.Listener
	count           atomic.Int64
	closed          bool
}

// NewRPC - validate the configuration
func NewRPC(configuration *Configuration, log *logger.L, server *rpc.Server, tlsConfig *tls.Config, certificateFingerprint [32]byte) (*Listener, error) {
	if configuration.MaximumConnections < minConnectionCount {
		log.Errorf("invalid %s maximum connection limit: %d", logName, configuration.MaximumConnections)
		return nil, fault.ErrMissingParameters
	}
	if 0 == len(configuration.Listen) {
		log.Errorf("missing %s listen", logName)
		return nil, fault.ErrMissingParameters
	}
	if nil == tlsConfig {
		log.Errorf("missing %s certificate", logName)
		return nil, fault.ErrMissingParameters
	}

	listen := make([]string, len(configuration.Listen))
	copy(listen, configuration.Listen)

	ipType, err := parseListenAddress(listen, log)
	if nil != err {
		return nil, err
	}

	log.Infof("%s: SHA3-256 fingerprint: %x", logName, certificateFingerprint)

	return &Listener{
		log:             log,
		server:          server,
		tlsConfig:       tlsConfig,
		maxConnections:  configuration.MaximumConnections,
		ipType:          ipType,
		listenIPAndPort: listen,
	}, nil
}

// Serve - bind all listen addresses and start accepting
func (r *Listener) Serve() error {
	r.Lock()
	defer r.Unlock()

	for i, listen := range r.listenIPAndPort {
		r.log.Infof("starting RPC server: %s", listen)
		listener, err := tls.Listen(r.ipType[i], listen, r.tlsConfig)
		if err != nil {
			r.log.Errorf("rpc server listen error: %s", err)
			for _, l := range r.listeners {
				_ = l.Close()
			}
			r.listeners = nil
			return err
		}
		r.listeners = append(r.listeners, listener)

		go r.doServeRPC(listener)
	}
	return nil
}

// Addresses - the bound addresses
func (r *Listener) Addresses() []string {
	r.Lock()
	defer r.Unlock()
	addresses := make([]string, 0, len(r.listeners))
	for _, l := range r.listeners {
		addresses = append(addresses, l.Addr().String())
	}
	return addresses
}

// Connections - number of connections being served
func (r *Listener) Connections() int64 {
	return r.count.Load()
}

// Close - stop accepting; connections in progress finish on their own
func (r *Listener) Close() error {
	r.Lock()
	defer r.Unlock()
	r.closed = true
	var err error
	for _, l := range r.listeners {
		if e := l.Close(); nil != e && nil == err {
			err = e
		}
	}
	r.listeners = nil
	return err
}

// Run - background process closing the listener at shutdown
func (r *Listener) Run(args interface{}, shutdown <-chan struct{}) {
	<-shutdown
	r.log.Info("shutting down…")
	if err := r.Close(); nil != err {
		r.log.Errorf("close error: %s", err)
	}
	r.log.Info("stopped")
}

func (r *Listener) isClosed() bool {
	r.Lock()
	defer r.Unlock()
	return r.closed
}

func (r *Listener) doServeRPC(listen net.Listener) {
	for {
		conn, err := listen.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || r.isClosed() {
				break
			}
			r.log.Errorf("rpc.server terminated: accept error: %s", err)
			break
		}
		if r.count.Add(1) <= r.maxConnections {
			go func() {
				r.server.ServeCodec(jsonrpc.NewServerCodec(conn))
				_ = conn.Close()
				r.count.Add(-1)
			}()
		} else {
			r.count.Add(-1)
			r.log.Warnf("connection limit reached, refusing: %s", conn.RemoteAddr())
			_ = conn.Close()
		}
	}
	_ = listen.Close()
	r.log.Info("RPC accept terminated")
}

func parseListenAddress(addrs []string, log *logger.L) ([]string, error) {
	parsed := make([]string, len(addrs))
	for i, listen := range addrs {
		if !strings.Contains(listen, ":") {
			log.Errorf("rpc server listen: %q  missing port", listen)
			return nil, fault.ErrInvalidIPAddress
		}
		if '*' == listen[0] {
			// change "*:PORT" to "[::]:PORT"
			// on the assumption that this will listen on tcp4 and tcp6
			addrs[i] = "[::]" + ":" + strings.Split(listen, ":")[1]
			listen = "::"
			parsed[i] = "tcp"
		} else if '[' == listen[0] {
			listen = strings.Split(listen[1:], "]:")[0]
			parsed[i] = "tcp6"
		} else {
			listen = strings.Split(listen, ":")[0]
			parsed[i] = "tcp4"
		}

		if ip := net.ParseIP(listen); nil == ip {
			err := fault.ErrInvalidIPAddress
			log.Errorf("rpc server listen error: %s", err)
			return nil, err
		}
	}

	return parsed, nil
}
