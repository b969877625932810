// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/bitmark-inc/assetcommit/chain"
	"github.com/bitmark-inc/assetcommit/fault"
	"github.com/bitmark-inc/assetcommit/ledger"
)

// key derivation parameters
const (
	keyfileVersion = 1
	saltLength     = 32
	nonceLength    = 24
	argonTime      = 3
	argonMemory    = 64 * 1024
	argonThreads   = 4
	minPassword    = 8
)

// Key - an unlocked signing key
type Key struct {
	Network    string
	Address    string
	PrivateKey ed25519.PrivateKey
}

// Keyfile - a signing key encrypted under a password
//
// the private key seed is sealed with nacl secretbox using a key
// derived from the password by argon2id
type Keyfile struct {
	Version   int    `json:"version"`
	Network   string `json:"network"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	Salt      string `json:"salt"`
	Time      uint32 `json:"time"`
	Memory    uint32 `json:"memory"`
	Threads   uint8  `json:"threads"`
	Data      string `json:"data"`
}

// NewKey - a fresh random key
func NewKey(network string) (*Key, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); nil != err {
		return nil, err
	}
	return KeyFromSeed(network, seed)
}

// KeyFromSeed - deterministic key from a 32 byte seed
func KeyFromSeed(network string, seed []byte) (*Key, error) {
	if !chain.Valid(network) {
		return nil, fault.ErrWrongNetwork
	}
	if ed25519.SeedSize != len(seed) {
		return nil, fault.ErrWalletLocked
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	return &Key{
		Network:    network,
		Address:    ledger.AddressFromPublicKey(privateKey.Public().(ed25519.PublicKey)),
		PrivateKey: privateKey,
	}, nil
}

// Encrypt - seal the key under a password
func (k *Key) Encrypt(password string) (*Keyfile, error) {
	if len(password) < minPassword {
		return nil, fault.ErrWrongPassword
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); nil != err {
		return nil, err
	}

	// must use a different nonce for each message encrypted with the
	// same key; 192 random bits make a repeat negligible
	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); nil != err {
		return nil, err
	}

	f := &Keyfile{
		Version:   keyfileVersion,
		Network:   k.Network,
		Address:   k.Address,
		PublicKey: hex.EncodeToString(k.PrivateKey.Public().(ed25519.PublicKey)),
		Salt:      hex.EncodeToString(salt),
		Time:      argonTime,
		Memory:    argonMemory,
		Threads:   argonThreads,
	}
	secretKey := f.secretKey(password, salt)
	sealed := secretbox.Seal(nonce[:], k.PrivateKey.Seed(), &nonce, secretKey)
	f.Data = hex.EncodeToString(sealed)
	return f, nil
}

// Decrypt - unlock with a password
func (f *Keyfile) Decrypt(password string) (*Key, error) {
	salt, err := hex.DecodeString(f.Salt)
	if nil != err {
		return nil, fault.ErrWalletLocked
	}
	sealed, err := hex.DecodeString(f.Data)
	if nil != err || len(sealed) <= nonceLength {
		return nil, fault.ErrWalletLocked
	}

	var nonce [nonceLength]byte
	copy(nonce[:], sealed[:nonceLength])

	seed, ok := secretbox.Open(nil, sealed[nonceLength:], &nonce, f.secretKey(password, salt))
	if !ok {
		return nil, fault.ErrWrongPassword
	}

	k, err := KeyFromSeed(f.Network, seed)
	if nil != err {
		return nil, err
	}
	if k.Address != f.Address {
		return nil, fault.ErrWalletLocked
	}
	return k, nil
}

func (f *Keyfile) secretKey(password string, salt []byte) *[32]byte {
	hash := argon2.IDKey([]byte(password), salt, f.Time, f.Memory, f.Threads, 32)
	var secretKey [32]byte
	copy(secretKey[:], hash)
	return &secretKey
}

// Save - write to a file readable only by its owner
func (f *Keyfile) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if nil != err {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// ReadKeyfile - read a keyfile without unlocking it
func ReadKeyfile(path string) (*Keyfile, error) {
	data, err := os.ReadFile(path)
	if nil != err {
		return nil, err
	}
	var f Keyfile
	if err := json.Unmarshal(data, &f); nil != err {
		return nil, err
	}
	if keyfileVersion != f.Version {
		return nil, fault.ErrWalletLocked
	}
	return &f, nil
}

// GenerateKeyfile - create a new key and save it under a password
func GenerateKeyfile(path string, network string, password string) (*Key, error) {
	k, err := NewKey(network)
	if nil != err {
		return nil, err
	}
	f, err := k.Encrypt(password)
	if nil != err {
		return nil, err
	}
	if err := f.Save(path); nil != err {
		return nil, err
	}
	return k, nil
}

// LoadKeyfile - read and unlock a keyfile
func LoadKeyfile(path string, password string) (*Key, error) {
	f, err := ReadKeyfile(path)
	if nil != err {
		return nil, err
	}
	return f.Decrypt(password)
}
