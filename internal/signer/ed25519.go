// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package signer produces Ed25519 signatures over messages that are streamed
// twice instead of held in memory.
//
// RFC 8032 signing hashes the message twice: once behind the key's nonce
// prefix to derive r, and once behind R and A to derive the challenge k.
// The Ed25519 signer accepts the first copy of the message, then DoneWithR,
// then the second copy, then Finalize. Both copies must be byte-identical
// for the signature to verify; the block protocol guarantees that.
package signer

import (
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"filippo.io/edwards25519"

	"github.com/aplane-algo/apledger/internal/crypto"
	"github.com/aplane-algo/apledger/internal/keys"
)

// SignatureSize is the size of an Ed25519 signature R || S.
const SignatureSize = 64

// ErrStage is returned when a method is called out of order.
// The signer erases its secrets before returning it.
var ErrStage = errors.New("signer used out of order")

// Stage is the position of the signer in its state machine.
type Stage int

const (
	StageNew Stage = iota
	StageNonce
	StageChallenge
	StageFinished
)

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "new"
	case StageNonce:
		return "nonce"
	case StageChallenge:
		return "challenge"
	case StageFinished:
		return "finished"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Ed25519 is a two-pass streaming Ed25519 signer.
type Ed25519 struct {
	stage Stage
	h     hash.Hash
	key   *keys.ExpandedKey
	r     *edwards25519.Scalar
	rEnc  [32]byte
}

// New returns a signer waiting for Init.
func New() *Ed25519 {
	return &Ed25519{h: sha512.New()}
}

// Init takes ownership of key and starts the nonce pass.
func (s *Ed25519) Init(key *keys.ExpandedKey) error {
	if s.stage != StageNew || key == nil {
		return s.misuse("Init")
	}
	s.key = key
	s.h.Reset()
	s.h.Write(key.Prefix())
	s.stage = StageNonce
	return nil
}

// Update feeds message bytes to the current pass.
func (s *Ed25519) Update(b []byte) error {
	if s.stage != StageNonce && s.stage != StageChallenge {
		return s.misuse("Update")
	}
	s.h.Write(b)
	return nil
}

// DoneWithR ends the nonce pass, computes R = r·B and starts the
// challenge pass with R || A.
func (s *Ed25519) DoneWithR() error {
	if s.stage != StageNonce {
		return s.misuse("DoneWithR")
	}

	digest := s.h.Sum(nil)
	defer crypto.ZeroBytes(digest)

	r, err := edwards25519.NewScalar().SetUniformBytes(digest)
	if err != nil {
		s.Erase()
		return fmt.Errorf("failed to reduce nonce: %w", err)
	}
	s.r = r
	copy(s.rEnc[:], new(edwards25519.Point).ScalarBaseMult(r).Bytes())

	s.h.Reset()
	s.h.Write(s.rEnc[:])
	s.h.Write(s.key.Public())
	s.stage = StageChallenge
	return nil
}

// Finalize computes S = k·a + r and returns R || S. The signer's secrets
// are erased whether or not it succeeds.
func (s *Ed25519) Finalize() ([SignatureSize]byte, error) {
	var sig [SignatureSize]byte
	if s.stage != StageChallenge {
		return sig, s.misuse("Finalize")
	}
	defer s.Erase()

	digest := s.h.Sum(nil)
	defer crypto.ZeroBytes(digest)

	k, err := edwards25519.NewScalar().SetUniformBytes(digest)
	if err != nil {
		return sig, fmt.Errorf("failed to reduce challenge: %w", err)
	}
	S := edwards25519.NewScalar().MultiplyAdd(k, s.key.Scalar(), s.r)

	copy(sig[:32], s.rEnc[:])
	copy(sig[32:], S.Bytes())
	S.Set(edwards25519.NewScalar())
	return sig, nil
}

// Erase zeroes the private scalar, the nonce prefix and r, and moves the
// signer to its finished stage. It is safe to call at any time.
func (s *Ed25519) Erase() {
	s.key.Erase()
	if s.r != nil {
		s.r.Set(edwards25519.NewScalar())
		s.r = nil
	}
	s.h.Reset()
	s.stage = StageFinished
}

// Stage returns the current stage.
func (s *Ed25519) Stage() Stage { return s.stage }

// Public returns the public key being signed with, or nil before Init.
func (s *Ed25519) Public() []byte {
	if s.key == nil {
		return nil
	}
	return s.key.Public()
}

func (s *Ed25519) misuse(op string) error {
	stage := s.stage
	s.Erase()
	return fmt.Errorf("%w: %s in stage %s", ErrStage, op, stage)
}
