// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package signer

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/aplane-algo/apledger/internal/keys"
)

func expandedKey(t *testing.T, seed []byte) *keys.ExpandedKey {
	t.Helper()
	k, err := keys.NewExpandedKey(seed)
	if err != nil {
		t.Fatalf("NewExpandedKey: %v", err)
	}
	return k
}

// signChunks runs both passes, delivering msg in chunks of size n.
func signChunks(t *testing.T, seed, msg []byte, n int) [SignatureSize]byte {
	t.Helper()
	s := New()
	if err := s.Init(expandedKey(t, seed)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	pass := func() {
		for off := 0; off < len(msg); off += n {
			end := min(off+n, len(msg))
			if err := s.Update(msg[off:end]); err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
	}
	pass()
	if err := s.DoneWithR(); err != nil {
		t.Fatalf("DoneWithR: %v", err)
	}
	pass()
	sig, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return sig
}

func TestSignatureMatchesStdlib(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, keys.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)

	messages := [][]byte{
		nil,
		[]byte("x"),
		[]byte(`{"chain_id":"testnet","entropy":"-7780543831205109370"}`),
		bytes.Repeat([]byte("0123456789"), 400),
	}
	for _, msg := range messages {
		want := ed25519.Sign(priv, msg)
		for _, n := range []int{1, 7, 180, 5000} {
			sig := signChunks(t, seed, msg, n)
			if !bytes.Equal(sig[:], want) {
				t.Fatalf("len %d chunk %d: signature mismatch\ngot  %x\nwant %x", len(msg), n, sig, want)
			}
			if !ed25519.Verify(priv.Public().(ed25519.PublicKey), msg, sig[:]) {
				t.Fatalf("len %d chunk %d: signature does not verify", len(msg), n)
			}
		}
	}
}

func TestDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x01}, keys.SeedSize)
	msg := []byte("same message")
	a := signChunks(t, seed, msg, 3)
	b := signChunks(t, seed, msg, 5)
	if a != b {
		t.Error("signatures over the same message differ")
	}
}

func TestPassMismatchFailsVerification(t *testing.T) {
	seed := bytes.Repeat([]byte{0x09}, keys.SeedSize)
	priv := ed25519.NewKeyFromSeed(seed)

	s := New()
	if err := s.Init(expandedKey(t, seed)); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_ = s.Update([]byte("first"))
	_ = s.DoneWithR()
	_ = s.Update([]byte("other"))
	sig, err := s.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if ed25519.Verify(priv.Public().(ed25519.PublicKey), []byte("first"), sig[:]) {
		t.Error("signature over mismatched passes should not verify")
	}
}

func TestStageMisuse(t *testing.T) {
	seed := bytes.Repeat([]byte{0x05}, keys.SeedSize)

	tests := []struct {
		name string
		run  func(s *Ed25519) error
	}{
		{"update before init", func(s *Ed25519) error { return s.Update([]byte("a")) }},
		{"done before init", func(s *Ed25519) error { return s.DoneWithR() }},
		{"finalize in nonce pass", func(s *Ed25519) error {
			_ = s.Init(expandedKey(t, seed))
			_, err := s.Finalize()
			return err
		}},
		{"double done", func(s *Ed25519) error {
			_ = s.Init(expandedKey(t, seed))
			_ = s.DoneWithR()
			return s.DoneWithR()
		}},
		{"double init", func(s *Ed25519) error {
			_ = s.Init(expandedKey(t, seed))
			return s.Init(expandedKey(t, seed))
		}},
		{"nil key", func(s *Ed25519) error { return s.Init(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			if err := tt.run(s); !errors.Is(err, ErrStage) {
				t.Fatalf("err = %v, want ErrStage", err)
			}
			if s.Stage() != StageFinished {
				t.Errorf("stage = %s, want finished", s.Stage())
			}
		})
	}
}

func TestFinalizeErasesSecrets(t *testing.T) {
	seed := bytes.Repeat([]byte{0x33}, keys.SeedSize)
	key := expandedKey(t, seed)

	s := New()
	_ = s.Init(key)
	_ = s.Update([]byte("m"))
	_ = s.DoneWithR()
	_ = s.Update([]byte("m"))
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if !bytes.Equal(key.Prefix(), make([]byte, 32)) {
		t.Error("prefix not erased")
	}
	if !bytes.Equal(key.Scalar().Bytes(), make([]byte, 32)) {
		t.Error("scalar not erased")
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrStage) {
		t.Errorf("second Finalize err = %v, want ErrStage", err)
	}
}

func TestEraseBeforeInit(t *testing.T) {
	s := New()
	s.Erase()
	s.Erase()
	if s.Public() != nil {
		t.Error("Public should be nil before Init")
	}
}
