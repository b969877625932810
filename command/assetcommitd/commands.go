// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/assetcommit/rpc/listeners"
	"github.com/bitmark-inc/assetcommit/wallet"
	"github.com/bitmark-inc/exitwithstatus"
)

const (
	ledgerCertificateFilename = "ledger.crt"
	ledgerPrivateKeyFilename  = "ledger.key"

	certificateValidity = 10 * 365 * 24 * time.Hour
)

// setup command handler
//
// commands that run to create key and certificate files these
// commands cannot access any internal database or states or the
// configuration file
func processSetupCommand(program string, arguments []string) bool {

	command := "help"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {
	case "gen-ledger-cert", "cert":
		certificateFilename := getFilenameWithDirectory(arguments, ledgerCertificateFilename)
		privateKeyFilename := getFilenameWithDirectory(arguments, ledgerPrivateKeyFilename)

		addresses := []string{"127.0.0.1", "::1", "localhost"}
		if len(arguments) >= 2 {
			for _, a := range arguments[1:] {
				if "" != a {
					addresses = append(addresses, a)
				}
			}
		}

		err := makeSelfSignedCertificate("ledger", certificateFilename, privateKeyFilename, addresses)
		if nil != err {
			fmt.Printf("generate ledger key: %q and certificate: %q error: %s\n", privateKeyFilename, certificateFilename, err)
			exitwithstatus.Exit(1)
		}
		fmt.Printf("generated ledger key: %q and certificate: %q\n", privateKeyFilename, certificateFilename)

	case "start", "run":
		return false // continue processing

	case "account", "config":
		return false // defer processing until configuration is read

	case "version", "v":
		fmt.Printf("%s\n", version)

	default:
		switch command {
		case "help", "h", "?":
		case "", " ":
			fmt.Printf("error: missing command\n")
		default:
			fmt.Printf("error: no such command: %q\n", command)
		}

		fmt.Printf("supported commands:\n\n")
		fmt.Printf("  help                       (h)      - display this message\n\n")
		fmt.Printf("  version                    (v)      - display version sting\n\n")

		fmt.Printf("  gen-ledger-cert [DIR [HOST...]]     - create a self-signed TLS certificate for\n")
		fmt.Printf("                             (cert)     serving the embedded ledger\n")
		fmt.Printf("                                        additional IPs/hostnames can be listed\n\n")

		fmt.Printf("  account                             - display the wallet account from the keyfile\n")
		fmt.Printf("  config                              - display the parsed configuration\n\n")

		fmt.Printf("  start                      (run)    - just run the program, same as no arguments\n")
		fmt.Printf("                                        for convienience when passing script arguments\n\n")

		flagsDescription := []struct {
			flag        string
			description string
		}{
			{"--help", "display this message"},
			{"--version", "display version"},
			{"--config-file=FILE", "configuration file"},
			{"--quiet", "do not print the waiting message"},
			{"--memory-stats", "log memory use every minute"},
		}
		fmt.Printf("supported flags:\n")
		for _, d := range flagsDescription {
			fmt.Printf("  %-20s %s\n", d.flag, d.description)
		}

		exitwithstatus.Exit(1)
	}

	// indicate processing complete and prefor normal exit from main
	return true
}

// configuration commands
//
// these do not start the daemon and do not open any database
func processConfigCommand(arguments []string, options *Configuration) bool {

	command := ""
	if len(arguments) > 0 {
		command = arguments[0]
	}

	switch command {
	case "account":
		f, err := wallet.ReadKeyfile(options.Wallet.Keyfile)
		if nil != err {
			exitwithstatus.Message("keyfile: %q  error: %s", options.Wallet.Keyfile, err)
		}
		fmt.Printf("account: %s\nnetwork: %s\n", f.Address, f.Network)

	case "config":
		text, err := json.MarshalIndent(options, "", "  ")
		if nil != err {
			exitwithstatus.Message("configuration error: %s", err)
		}
		fmt.Printf("%s\n", text)

	default:
		return false
	}
	return true
}

// get the working directory; if not set in the arguments
// it's set to the current directory
func getFilenameWithDirectory(arguments []string, name string) string {
	dir := "."
	if len(arguments) >= 1 {
		dir = arguments[0]
	}

	return filepath.Join(dir, name)
}

// create a self-signed certificate
func makeSelfSignedCertificate(name string, certificateFileName string, privateKeyFileName string, hosts []string) error {

	if ensureFileExists(certificateFileName) {
		return fmt.Errorf("certificate file: %q already exists", certificateFileName)
	}

	if ensureFileExists(privateKeyFileName) {
		return fmt.Errorf("key file: %q already exists", privateKeyFileName)
	}

	org := "assetcommitd self signed cert for: " + name
	cert, key, err := listeners.Generate(org, hosts, certificateValidity)
	if err != nil {
		return err
	}

	if err = os.WriteFile(certificateFileName, cert, 0666); err != nil {
		return err
	}

	if err = os.WriteFile(privateKeyFileName, key, 0600); err != nil {
		os.Remove(certificateFileName)
		return err
	}

	return nil
}

func ensureFileExists(name string) bool {
	_, err := os.Stat(name)
	return nil == err
}
