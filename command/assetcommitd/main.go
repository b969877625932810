// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitmark-inc/assetcommit/background"
	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/contentstore"
	"github.com/bitmark-inc/assetcommit/contentstore/localfs"
	"github.com/bitmark-inc/assetcommit/contentstore/memory"
	"github.com/bitmark-inc/assetcommit/delegation"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/index"
	indexdb "github.com/bitmark-inc/assetcommit/index/leveldb"
	"github.com/bitmark-inc/assetcommit/index/postgres"
	"github.com/bitmark-inc/assetcommit/ledger"
	"github.com/bitmark-inc/assetcommit/ledger/local"
	"github.com/bitmark-inc/assetcommit/ledger/rpcclient"
	"github.com/bitmark-inc/assetcommit/pipeline"
	"github.com/bitmark-inc/assetcommit/rpc"
	"github.com/bitmark-inc/assetcommit/signing"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

const connectTimeout = 30 * time.Second

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
		{Long: "memory-stats", HasArg: getoptions.NO_ARGUMENT, Short: 'm'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		processSetupCommand(program, []string{"version"})
		return
	}

	if len(options["help"]) > 0 {
		processSetupCommand(program, []string{"help"})
		return
	}

	// these commands do not require the configuration and
	// process data needed for initial setup
	if len(arguments) > 0 && processSetupCommand(program, arguments) {
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := getConfiguration(configurationFile, map[string]string{"version": version})
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// these commands require the configuration and
	// perform enquiries on the configuration
	if len(arguments) > 0 && processConfigCommand(arguments, theConfiguration) {
		return
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	if err = fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: fault setup failed with error: %s", program, err)
	}
	defer fault.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("theConfiguration: %v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	timing := theConfiguration.timing

	// general info
	log.Infof("chain: %s", theConfiguration.Chain)
	log.Infof("database: %s  %q", theConfiguration.Database.Backend, theConfiguration.Database.Name)
	log.Infof("ledger: %s", theConfiguration.Ledger.Mode)

	// content store
	var store contentstore.Store
	if "" == theConfiguration.Content.Directory {
		log.Warn("content held in memory only")
		store = memory.New()
	} else {
		store, err = localfs.New(logger.New("cas"), theConfiguration.Content.Directory)
		if nil != err {
			log.Criticalf("content store initialise error: %s", err)
			exitwithstatus.Message("content store initialise error: %s", err)
		}
	}

	// application index
	var ix index.Index
	switch theConfiguration.Database.Backend {
	case backendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		db, err := postgres.Connect(ctx, logger.New("index"), theConfiguration.Database.DSN)
		if nil == err {
			err = db.Migrate(ctx)
		}
		cancel()
		if nil != err {
			log.Criticalf("index initialise error: %s", err)
			exitwithstatus.Message("index initialise error: %s", err)
		}
		defer db.Close()
		ix = db

	default:
		db, err := indexdb.Open(logger.New("index"), theConfiguration.Database.Name)
		if nil != err {
			log.Criticalf("index initialise error: %s", err)
			exitwithstatus.Message("index initialise error: %s", err)
		}
		defer db.Close()
		ix = db
	}

	processes := background.Processes{}

	// ledger
	var l ledger.Ledger
	switch theConfiguration.Ledger.Mode {
	case ledgerRemote:
		client := rpcclient.New(logger.New("ledger"), theConfiguration.Ledger.Connect, timing.pollInterval)
		defer client.Close()
		l = client

	default:
		ledgerLog := logger.New("ledger")
		embedded, err := local.Open(ledgerLog, theConfiguration.Chain, theConfiguration.Ledger.Name, timing.blockTime)
		if nil != err {
			log.Criticalf("ledger initialise error: %s", err)
			exitwithstatus.Message("ledger initialise error: %s", err)
		}
		defer embedded.Close()
		l = embedded

		if 0 != len(theConfiguration.Ledger.Serve.Listen) {
			listener, err := serveLedger(ledgerLog, &theConfiguration.Ledger.Serve, embedded)
			if nil != err {
				log.Criticalf("ledger listener error: %s", err)
				exitwithstatus.Message("ledger listener error: %s", err)
			}
			processes = append(processes, listener)
		}
	}

	// wallet
	walletLog := logger.New("wallet")
	key, err := wallet.LoadKeyfile(theConfiguration.Wallet.Keyfile, theConfiguration.Wallet.Password)
	if nil != err {
		log.Criticalf("wallet keyfile: %q  error: %s", theConfiguration.Wallet.Keyfile, err)
		exitwithstatus.Message("wallet keyfile: %q  error: %s", theConfiguration.Wallet.Keyfile, err)
	}
	if key.Network != theConfiguration.Chain {
		log.Warnf("wallet network: %s  chain: %s  commits will be refused", key.Network, theConfiguration.Chain)
	}
	log.Infof("wallet account: %s", key.Address)

	var approver wallet.Approver = wallet.AutoApprove{}
	var prompt *wallet.Prompt
	if !theConfiguration.Wallet.AutoApprove {
		prompt = wallet.NewPrompt(walletLog)
		approver = prompt
		processes = append(processes, promptSweeper(walletLog, prompt, timing.promptTimeout))
	}
	signer := wallet.NewKeySigner(walletLog, key, approver)

	// pipeline components
	estimator := signing.FlatFee{
		Amount: theConfiguration.Ledger.FeeAmount,
		Unit:   theConfiguration.Ledger.FeeUnit,
	}
	gateway := signing.New(logger.New("signing"), theConfiguration.Chain, l, estimator)
	authorizer := delegation.New(logger.New("delegation"), l, gateway, timing.delegationTTL, timing.confirmationTimeout)

	orchestrator, err := pipeline.New(pipeline.Config{
		Log:                 logger.New("pipeline"),
		Store:               store,
		Ledger:              l,
		Index:               ix,
		Gateway:             gateway,
		Authorizer:          authorizer,
		StoragePolicy:       theConfiguration.policy(theConfiguration.Pipeline.StorageAttempts),
		LedgerPolicy:        theConfiguration.policy(theConfiguration.Pipeline.LedgerAttempts),
		StoreTimeout:        timing.storeTimeout,
		IndexTimeout:        timing.indexTimeout,
		ConfirmationTimeout: timing.confirmationTimeout,
	})
	if nil != err {
		log.Criticalf("pipeline initialise error: %s", err)
		exitwithstatus.Message("pipeline initialise error: %s", err)
	}

	coordinator := batch.New(logger.New("batch"), orchestrator, theConfiguration.Pipeline.BatchLimit, theConfiguration.Pipeline.Workers)

	apiOptions := rpc.Options{
		Log:       logger.New("rpc"),
		Chain:     theConfiguration.Chain,
		Version:   version,
		Signer:    signer,
		Committer: orchestrator,
		Batcher:   coordinator,
		Delegator: authorizer,
		Index:     ix,
	}
	if nil != prompt {
		apiOptions.Approvals = prompt
	}
	api, err := rpc.New(&theConfiguration.API, apiOptions)
	if nil != err {
		log.Criticalf("rpc initialise error: %s", err)
		exitwithstatus.Message("rpc initialise error: %s", err)
	}
	if err = api.Listen(); nil != err {
		log.Criticalf("rpc listen error: %s", err)
		exitwithstatus.Message("rpc listen error: %s", err)
	}
	processes = append(processes, api)

	// if memory logging enabled
	if len(options["memory-stats"]) > 0 {
		processes = append(processes, background.Func(memstats))
	}

	running := background.Start(processes, nil)

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
	running.Stop()
}
