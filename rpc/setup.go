// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/assetcommit/asset"
	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/index"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/pipeline"
	"github.com/bitmark-inc/assetcommit/progress"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

// defaults
const (
	defaultListen    = "127.0.0.1:2150"
	defaultRateLimit = 10
	defaultRateBurst = 50
	maximumWait      = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// Configuration - configuration file data for the API
type Configuration struct {
	Listen       string   `gluamapper:"listen" json:"listen"`
	AllowOrigins []string `gluamapper:"allow_origins" json:"allow_origins"`
	RateLimit    float64  `gluamapper:"rate_limit" json:"rate_limit"`
	RateBurst    int      `gluamapper:"rate_burst" json:"rate_burst"`
}

// Committer - single asset jobs
type Committer interface {
	Commit(ctx context.Context, session wallet.Session, signer wallet.Signer, draft asset.Draft, sink progress.Sink) progress.Outcome
	Delete(ctx context.Context, session wallet.Session, signer wallet.Signer, assetID string, sink progress.Sink) progress.Outcome
	Stats() pipeline.Stats
}

// Batcher - batch jobs
type Batcher interface {
	Check(drafts []asset.Draft) error
	Commit(ctx context.Context, session wallet.Session, signer wallet.Signer, drafts []asset.Draft, sink batch.Sink) (*batch.Summary, error)
}

// Delegator - grant and revoke flow
type Delegator interface {
	RequestDelegation(ctx context.Context, signer wallet.Signer, session wallet.Session, delegate string, capabilities ledger.Capabilities, enable bool, sink progress.Sink) progress.Outcome
}

// Approvals - the queue of signature requests awaiting a decision
type Approvals interface {
	Pending() []wallet.Request
	Approve(id string) error
	Reject(id string) error
}

// Options - collaborators of the API
//
// Approvals may be nil when the wallet approves on its own
type Options struct {
	Log       *logger.L
	Chain     string
	Version   string
	Signer    wallet.Signer
	Committer Committer
	Batcher   Batcher
	Delegator Delegator
	Index     index.Index
	Approvals Approvals
}

// Server - the HTTP API
type Server struct {
	Options
	limiter  *rate.Limiter
	handler  http.Handler
	server   *http.Server
	listener net.Listener
	start    time.Time
	active   atomic.Int64
}

// New - validate the configuration and build the routes
func New(configuration *Configuration, options Options) (*Server, error) {
	if nil == options.Log || nil == options.Signer || nil == options.Committer ||
		nil == options.Batcher || nil == options.Delegator || nil == options.Index {
		return nil, fault.Internal("rpc", errors.New("missing collaborator"))
	}

	listen := configuration.Listen
	if "" == listen {
		listen = defaultListen
	}

	limit := rate.Limit(configuration.RateLimit)
	burst := configuration.RateBurst
	switch {
	case configuration.RateLimit < 0:
		limit = rate.Inf
	case 0 == configuration.RateLimit:
		limit = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}

	s := &Server{
		Options: options,
		limiter: rate.NewLimiter(limit, burst),
		start:   time.Now(),
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(sendNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(sendMethodNotAllowed)

	// a subrouter answers for its own prefix, so it needs the handlers too
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.NotFoundHandler = router.NotFoundHandler
	v1.MethodNotAllowedHandler = router.MethodNotAllowedHandler
	v1.HandleFunc("/assets", s.commit).Methods("POST")
	v1.HandleFunc("/assets/{id}", s.show).Methods("GET")
	v1.HandleFunc("/assets/{id}", s.delete).Methods("DELETE")
	v1.HandleFunc("/batches", s.batch).Methods("POST")
	v1.HandleFunc("/delegations", s.delegate).Methods("POST")
	v1.HandleFunc("/signatures", s.pending).Methods("GET")
	v1.HandleFunc("/signatures/{id}/approve", s.approve).Methods("POST")
	v1.HandleFunc("/signatures/{id}/reject", s.reject).Methods("POST")
	v1.HandleFunc("/status", s.status).Methods("GET")

	origins := configuration.AllowOrigins
	if 0 == len(origins) {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	})
	s.handler = c.Handler(s.count(router))

	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Handler - the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen - bind the listen address so that a bad address is found
// at startup
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if nil != err {
		s.Log.Errorf("listen on: %s  error: %s", s.server.Addr, err)
		return err
	}
	s.listener = listener
	return nil
}

// Addr - the bound address, empty before Listen
func (s *Server) Addr() string {
	if nil == s.listener {
		return ""
	}
	return s.listener.Addr().String()
}

// Run - background process serving until shutdown
//
// there is no write timeout: a job's stream stays open while a human
// decides on its signature request
func (s *Server) Run(args interface{}, shutdown <-chan struct{}) {
	log := s.Log

	if nil == s.listener {
		if err := s.Listen(); nil != err {
			<-shutdown
			return
		}
	}
	log.Infof("listening on: %s", s.Addr())

	failed := make(chan error, 1)
	go func() {
		failed <- s.server.Serve(s.listener)
	}()

	select {
	case <-shutdown:
	case err := <-failed:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Criticalf("serve error: %s", err)
		}
		<-shutdown
		return
	}

	log.Info("shutting down…")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); nil != err {
		log.Errorf("shutdown error: %s", err)
	}
	log.Info("stopped")
}

// tracks the number of requests in progress
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.active.Add(1)
		defer s.active.Add(-1)
		next.ServeHTTP(w, r)
	})
}
