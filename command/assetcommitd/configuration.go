// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitmark-inc/assetcommit/batch"
	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/configuration"
	"github.com/bitmark-inc/assetcommit/retry"
	"github.com/bitmark-inc/assetcommit/rpc"
	"github.com/bitmark-inc/assetcommit/rpc/listeners"
	"github.com/bitmark-inc/logger"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"
	defaultContentDirectory  = "content"
	defaultKeyfile           = "wallet.json"
	defaultLedgerKey         = "ledger.key"
	defaultLedgerCertificate = "ledger.crt"

	backendLevelDB  = "leveldb"
	backendPostgres = "postgres"

	ledgerLocal  = "local"
	ledgerRemote = "remote"

	defaultLogDirectory = "log"
	defaultLogFile      = "assetcommitd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultLedgerClients = 10

	passwordVariable = "ASSETCOMMIT_PASSWORD"
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

// DatabaseType - the application index
type DatabaseType struct {
	Backend   string `gluamapper:"backend" json:"backend"`
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
	DSN       string `gluamapper:"dsn" json:"-"`
}

// ContentType - the content store
type ContentType struct {
	Directory string `gluamapper:"directory" json:"directory"`
}

// LedgerType - the embedded ledger or the connection to a remote one
type LedgerType struct {
	Mode                string                  `gluamapper:"mode" json:"mode"`
	Connect             string                  `gluamapper:"connect" json:"connect"`
	Name                string                  `gluamapper:"name" json:"name"`
	BlockTime           string                  `gluamapper:"block_time" json:"block_time"`
	ConfirmationTimeout string                  `gluamapper:"confirmation_timeout" json:"confirmation_timeout"`
	PollInterval        string                  `gluamapper:"poll_interval" json:"poll_interval"`
	FeeAmount           uint64                  `gluamapper:"fee_amount" json:"fee_amount"`
	FeeUnit             string                  `gluamapper:"fee_unit" json:"fee_unit"`
	Serve               listeners.Configuration `gluamapper:"serve" json:"serve"`
}

// WalletType - the signing key held by the daemon
type WalletType struct {
	Keyfile       string `gluamapper:"keyfile" json:"keyfile"`
	Password      string `gluamapper:"password" json:"-"`
	AutoApprove   bool   `gluamapper:"auto_approve" json:"auto_approve"`
	PromptTimeout string `gluamapper:"prompt_timeout" json:"prompt_timeout"`
}

// PipelineType - job limits and retry shape
type PipelineType struct {
	BatchLimit      int    `gluamapper:"batch_limit" json:"batch_limit"`
	Workers         int    `gluamapper:"workers" json:"workers"`
	StorageAttempts int    `gluamapper:"storage_attempts" json:"storage_attempts"`
	LedgerAttempts  int    `gluamapper:"ledger_attempts" json:"ledger_attempts"`
	StoreTimeout    string `gluamapper:"store_timeout" json:"store_timeout"`
	IndexTimeout    string `gluamapper:"index_timeout" json:"index_timeout"`
	DelegationTTL   string `gluamapper:"delegation_ttl" json:"delegation_ttl"`
}

// Configuration - the configuration file
type Configuration struct {
	DataDirectory string       `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string       `gluamapper:"pidfile" json:"pidfile"`
	Chain         string       `gluamapper:"chain" json:"chain"`
	Database      DatabaseType `gluamapper:"database" json:"database"`
	Content       ContentType  `gluamapper:"content" json:"content"`
	Ledger        LedgerType   `gluamapper:"ledger" json:"ledger"`
	Wallet        WalletType   `gluamapper:"wallet" json:"wallet"`
	Pipeline      PipelineType `gluamapper:"pipeline" json:"pipeline"`

	API     rpc.Configuration    `gluamapper:"api" json:"api"`
	Logging logger.Configuration `gluamapper:"logging" json:"logging"`

	timing timing
}

// durations parsed from the configuration strings
type timing struct {
	blockTime           time.Duration
	confirmationTimeout time.Duration
	pollInterval        time.Duration
	promptTimeout       time.Duration
	storeTimeout        time.Duration
	indexTimeout        time.Duration
	delegationTTL       time.Duration
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string, variables map[string]string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default
		Chain:         chain.Local,

		Database: DatabaseType{
			Backend:   backendLevelDB,
			Directory: defaultDatabaseDirectory,
			Name:      "",
		},

		Content: ContentType{
			Directory: defaultContentDirectory,
		},

		Ledger: LedgerType{
			Mode:                ledgerLocal,
			BlockTime:           "1s",
			ConfirmationTimeout: "2m",
			PollInterval:        "1s",
			Serve: listeners.Configuration{
				MaximumConnections: defaultLedgerClients,
				Certificate:        defaultLedgerCertificate,
				PrivateKey:         defaultLedgerKey,
			},
		},

		Wallet: WalletType{
			Keyfile:       defaultKeyfile,
			PromptTimeout: "10m",
		},

		Pipeline: PipelineType{
			BatchLimit:      batch.DefaultLimit,
			Workers:         batch.DefaultWorkers,
			StorageAttempts: retry.Default.MaxAttempts,
			LedgerAttempts:  retry.Default.MaxAttempts,
			StoreTimeout:    "30s",
			IndexTimeout:    "10s",
			DelegationTTL:   "5m",
		},

		API: rpc.Configuration{
			Listen:    "127.0.0.1:2150",
			RateLimit: 10,
			RateBurst: 2 * batch.DefaultLimit,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := configuration.ParseConfigurationFile(configurationFileName, options, variables); err != nil {
		return nil, err
	}

	// Abort if the chain name is not recognised.
	options.Chain = strings.ToLower(options.Chain)
	if !chain.Valid(options.Chain) {
		return nil, fmt.Errorf("Chain: %q is not supported", options.Chain)
	}

	// database name defaults follow the chain
	if "" == options.Database.Name {
		options.Database.Name = options.Chain + ".leveldb"
	}
	if "" == options.Ledger.Name {
		options.Ledger.Name = "ledger-" + options.Chain + ".leveldb"
	}

	switch options.Database.Backend {
	case backendLevelDB:
	case backendPostgres:
		if "" == options.Database.DSN {
			return nil, fmt.Errorf("Database: %q backend requires a dsn", backendPostgres)
		}
	default:
		return nil, fmt.Errorf("Database: backend %q is not supported", options.Database.Backend)
	}

	switch options.Ledger.Mode {
	case ledgerLocal:
		if chain.Bitmark == options.Chain {
			return nil, fmt.Errorf("Ledger: %q mode cannot run chain: %q", ledgerLocal, options.Chain)
		}
	case ledgerRemote:
		if "" == options.Ledger.Connect {
			return nil, fmt.Errorf("Ledger: %q mode requires connect", ledgerRemote)
		}
		if 0 != len(options.Ledger.Serve.Listen) {
			return nil, fmt.Errorf("Ledger: only a %q ledger can be served", ledgerLocal)
		}
	default:
		return nil, fmt.Errorf("Ledger: mode %q is not supported", options.Ledger.Mode)
	}

	if "" == options.Wallet.Password {
		options.Wallet.Password = os.Getenv(passwordVariable)
	}

	if err := options.parseDurations(); nil != err {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Wallet.Keyfile,
		&options.Ledger.Serve.Certificate,
		&options.Ledger.Serve.PrivateKey,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = ensureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
		&options.Content.Directory,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = ensureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if any of these are not simple file names i.e. must
	// not contain path seperator, then add the correct directory
	// prefix, file item is first and corresponding directory is
	// second (or nil if no prefix can be added)
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Ledger.Name, &options.Database.Directory},
		{&options.Logging.File, nil},
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f[0]) {
		case "", ".":
			if nil != f[1] {
				*f[0] = ensureAbsolute(*f[1], *f[0])
			}
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f[0])
		}
	}

	// create directories if they do not already exist
	directories := []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	}
	if "" != options.Content.Directory {
		directories = append(directories, &options.Content.Directory)
	}
	for _, d := range directories {
		if err := os.MkdirAll(*d, 0700); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}

func (c *Configuration) parseDurations() error {
	durations := []struct {
		name  string
		text  string
		value *time.Duration
	}{
		{"ledger.block_time", c.Ledger.BlockTime, &c.timing.blockTime},
		{"ledger.confirmation_timeout", c.Ledger.ConfirmationTimeout, &c.timing.confirmationTimeout},
		{"ledger.poll_interval", c.Ledger.PollInterval, &c.timing.pollInterval},
		{"wallet.prompt_timeout", c.Wallet.PromptTimeout, &c.timing.promptTimeout},
		{"pipeline.store_timeout", c.Pipeline.StoreTimeout, &c.timing.storeTimeout},
		{"pipeline.index_timeout", c.Pipeline.IndexTimeout, &c.timing.indexTimeout},
		{"pipeline.delegation_ttl", c.Pipeline.DelegationTTL, &c.timing.delegationTTL},
	}
	for _, d := range durations {
		v, err := configuration.Duration(d.text, 0)
		if nil != err {
			return fmt.Errorf("Duration: %s: %s", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("Duration: %s: %q is negative", d.name, d.text)
		}
		*d.value = v
	}
	return nil
}

// retry shape for a stage, the configured attempts with the default backoff
func (c *Configuration) policy(attempts int) retry.Policy {
	p := retry.Default
	p.MaxAttempts = attempts
	return p
}

// ensureAbsolute - if path is not absolute, prepend directory
func ensureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}
