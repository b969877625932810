// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package listeners

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/bitmark-inc/certgen"
	"github.com/bitmark-inc/logger"
	"golang.org/x/crypto/sha3"
)

// Get - verify a PEM certificate and key and return the TLS
// configuration and the certificate fingerprint
func Get(log *logger.L, name string, certificate []byte, key []byte) (*tls.Config, [32]byte, error) {
	var fin [32]byte

	keyPair, err := tls.X509KeyPair(certificate, key)
	if err != nil {
		log.Errorf("%s failed to load keypair: %v", name, err)
		return nil, fin, err
	}

	tlsConfiguration := &tls.Config{
		Certificates: []tls.Certificate{
			keyPair,
		},
		MinVersion: tls.VersionTLS12,
	}

	fin = fingerprint(keyPair.Certificate[0])

	return tlsConfiguration, fin, nil
}

// Load - Get from a certificate file and a key file
func Load(log *logger.L, name string, certificateFile string, keyFile string) (*tls.Config, [32]byte, error) {
	var fin [32]byte

	certificate, err := os.ReadFile(certificateFile)
	if nil != err {
		log.Errorf("%s certificate: %q  error: %s", name, certificateFile, err)
		return nil, fin, err
	}
	key, err := os.ReadFile(keyFile)
	if nil != err {
		log.Errorf("%s private key: %q  error: %s", name, keyFile, err)
		return nil, fin, err
	}
	return Get(log, name, certificate, key)
}

// Generate - a self-signed certificate and its key in PEM form
//
// hosts may hold DNS names and IP addresses; when empty the local
// host name and interface addresses are used
func Generate(organisation string, hosts []string, validFor time.Duration) ([]byte, []byte, error) {
	validUntil := time.Now().Add(validFor)
	return certgen.NewTLSCertPair(organisation, validUntil, 0 != len(hosts), hosts)
}

// fingerprint - compute the fingerprint of a certificate
//
// openssl x509 -outform DER -in ledger-rpc.crt | sha3sum -a 256
func fingerprint(certificate []byte) [32]byte {
	return sha3.Sum256(certificate)
}
