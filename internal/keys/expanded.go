// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keys

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/aplane-algo/apledger/internal/crypto"
)

const (
	// SeedSize is the size of an Ed25519 private key seed.
	SeedSize = 32

	// PublicKeySize is the size of a compressed Ed25519 public key.
	PublicKeySize = 32
)

// ExpandedKey is an Ed25519 private key split into the clamped scalar a and
// the 32 byte nonce prefix, as produced by hashing the seed with SHA-512.
type ExpandedKey struct {
	scalar *edwards25519.Scalar
	prefix [32]byte
	public [PublicKeySize]byte
}

// NewExpandedKey expands a 32 byte Ed25519 seed.
func NewExpandedKey(seed []byte) (*ExpandedKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed length: expected %d bytes, got %d", SeedSize, len(seed))
	}

	h := sha512.Sum512(seed)
	defer crypto.ZeroBytes(h[:])

	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, fmt.Errorf("failed to clamp scalar: %w", err)
	}

	k := &ExpandedKey{scalar: s}
	copy(k.prefix[:], h[32:])
	copy(k.public[:], new(edwards25519.Point).ScalarBaseMult(s).Bytes())
	return k, nil
}

// Scalar returns the private scalar a. The caller must not retain it past Erase.
func (k *ExpandedKey) Scalar() *edwards25519.Scalar { return k.scalar }

// Prefix returns the nonce prefix. The slice aliases key memory.
func (k *ExpandedKey) Prefix() []byte { return k.prefix[:] }

// Public returns the compressed public key A = a·B.
func (k *ExpandedKey) Public() []byte { return k.public[:] }

// Address returns the POKT address of the public key.
func (k *ExpandedKey) Address() Address { return AddressFromPublicKey(k.public[:]) }

// Erase zeroes the secret halves. The public key stays readable.
func (k *ExpandedKey) Erase() {
	if k == nil {
		return
	}
	if k.scalar != nil {
		k.scalar.Set(edwards25519.NewScalar())
	}
	crypto.ZeroBytes(k.prefix[:])
}
