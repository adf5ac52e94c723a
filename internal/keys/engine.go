// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keys derives the device's Ed25519 keys.
//
// A BIP39 mnemonic is stretched into a 64 byte seed, and SLIP-0010
// derives an Ed25519 key per BIP32 path from that seed. Ed25519 under
// SLIP-0010 only defines hardened children, so every path component is
// treated as hardened.
package keys

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"

	"github.com/aplane-algo/apledger/internal/crypto"
)

const (
	// MasterSeedMinSize and MasterSeedMaxSize bound the SLIP-0010 seed.
	MasterSeedMinSize = 16
	MasterSeedMaxSize = 64

	bip39Iterations = 2048
	bip39SeedSize   = 64
)

var curveKey = []byte("ed25519 seed")

var (
	// ErrInvalidMnemonic is returned for mnemonics that fail the BIP39 checksum.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrClosed is returned by Derive after Close.
	ErrClosed = errors.New("key engine closed")
)

// Engine holds the master seed and derives path keys on demand.
type Engine struct {
	seed *crypto.SecureBytes
}

// NewEngine copies seed into a new Engine.
func NewEngine(seed []byte) (*Engine, error) {
	if n := len(seed); n < MasterSeedMinSize || n > MasterSeedMaxSize {
		return nil, fmt.Errorf("invalid seed length %d (must be %d-%d bytes)", n, MasterSeedMinSize, MasterSeedMaxSize)
	}
	return &Engine{seed: crypto.NewSecureBytes(seed)}, nil
}

// FromMnemonic validates a BIP39 mnemonic and builds an Engine from its seed.
func FromMnemonic(mnemonic, passphrase string) (*Engine, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := pbkdf2.Key([]byte(mnemonic), []byte("mnemonic"+passphrase), bip39Iterations, bip39SeedSize, sha512.New)
	defer crypto.ZeroBytes(seed)
	return NewEngine(seed)
}

// Derive returns the expanded key for path. The caller owns the key and
// must Erase it when done.
func (e *Engine) Derive(path []uint32) (*ExpandedKey, error) {
	if len(path) > MaxPathDepth {
		return nil, fmt.Errorf("path has %d components, maximum is %d", len(path), MaxPathDepth)
	}

	var key, chain [32]byte
	defer crypto.ZeroBytes(key[:])
	defer crypto.ZeroBytes(chain[:])

	err := e.seed.WithBytes(func(seed []byte) error {
		if len(seed) == 0 {
			return ErrClosed
		}
		masterKey(seed, &key, &chain)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, idx := range path {
		childKey(&key, &chain, idx|Hardened)
	}
	return NewExpandedKey(key[:])
}

// Close destroys the seed.
func (e *Engine) Close() {
	e.seed.Destroy()
}

// masterKey computes I = HMAC-SHA512("ed25519 seed", seed) and splits it
// into the master key and chain code.
func masterKey(seed []byte, key, chain *[32]byte) {
	mac := hmac.New(sha512.New, curveKey)
	_, _ = mac.Write(seed)
	split(mac.Sum(nil), key, chain)
}

// childKey replaces key and chain with the hardened child at index:
// I = HMAC-SHA512(chain, 0x00 || key || ser32(index)).
func childKey(key, chain *[32]byte, index uint32) {
	var b [4]byte
	mac := hmac.New(sha512.New, chain[:])
	_, _ = mac.Write(b[:1])
	_, _ = mac.Write(key[:])
	binary.BigEndian.PutUint32(b[:], index)
	_, _ = mac.Write(b[:])
	split(mac.Sum(nil), key, chain)
}

func split(digest []byte, key, chain *[32]byte) {
	copy(key[:], digest[:32])
	copy(chain[:], digest[32:])
	crypto.ZeroBytes(digest)
}
