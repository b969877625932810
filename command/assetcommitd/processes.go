// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"net/rpc"
	"runtime"
	"time"

	"github.com/bitmark-inc/assetcommit/background"
	"github.com/bitmark-inc/assetcommit/ledger/local"
	"github.com/bitmark-inc/assetcommit/rpc/listeners"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/logger"
)

const (
	statsDelay = 60 * time.Second
	mega       = 1048576

	sweepInterval = 30 * time.Second
)

// serve the embedded ledger to other daemons
func serveLedger(log *logger.L, configuration *listeners.Configuration, l *local.Ledger) (*listeners.Listener, error) {
	tlsConfig, fingerprint, err := listeners.Load(log, "ledger", configuration.Certificate, configuration.PrivateKey)
	if nil != err {
		return nil, err
	}

	server := rpc.NewServer()
	if err := server.RegisterName(local.ServiceName, local.NewService(log, l)); nil != err {
		return nil, err
	}

	listener, err := listeners.NewRPC(configuration, log, server, tlsConfig, fingerprint)
	if nil != err {
		return nil, err
	}
	if err := listener.Serve(); nil != err {
		return nil, err
	}
	return listener, nil
}

// cancel signature requests nobody decided on
func promptSweeper(log *logger.L, prompt *wallet.Prompt, maxAge time.Duration) background.Process {
	return background.Func(func(args interface{}, shutdown <-chan struct{}) {
		if maxAge <= 0 {
			<-shutdown
			return
		}

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		log.Infof("signature requests expire after: %s", maxAge)
		for {
			select {
			case <-shutdown:
				return
			case now := <-ticker.C:
				prompt.Expire(now, maxAge)
			}
		}
	})
}

func memstats(args interface{}, shutdown <-chan struct{}) {

	log := logger.New("memory")

	for {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		text, err := json.Marshal(m)
		if nil != err {
			log.Errorf("marshal error: %s", err)
		} else {
			log.Infof("stats: %s", text)
		}
		a := m.Alloc / mega
		t := m.TotalAlloc / mega
		s := m.Sys / mega
		log.Warnf("allocated: %d M  cumulative: %d M  OS virtual: %d M", a, t, s)

		select {
		case <-shutdown:
			return
		case <-time.After(statsDelay):
		}
	}
}
