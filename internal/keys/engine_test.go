// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// TestSLIP10Vector1 checks SLIP-0010 ed25519 test vector 1.
func TestSLIP10Vector1(t *testing.T) {
	seed := mustHex(t, "000102030405060708090a0b0c0d0e0f")

	var key, chain [32]byte
	masterKey(seed, &key, &chain)
	if got := hex.EncodeToString(key[:]); got != "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7" {
		t.Errorf("master key = %s", got)
	}
	if got := hex.EncodeToString(chain[:]); got != "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fffb" {
		t.Errorf("master chain = %s", got)
	}

	childKey(&key, &chain, 0|Hardened)
	if got := hex.EncodeToString(key[:]); got != "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3" {
		t.Errorf("m/0' key = %s", got)
	}
	if got := hex.EncodeToString(chain[:]); got != "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c69" {
		t.Errorf("m/0' chain = %s", got)
	}
}

func TestDeriveMatchesStdlib(t *testing.T) {
	seed := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	e, err := NewEngine(seed)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()

	k, err := e.Derive([]uint32{0})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	defer k.Erase()

	priv := ed25519.NewKeyFromSeed(mustHex(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3"))
	if !bytes.Equal(k.Public(), priv.Public().(ed25519.PublicKey)) {
		t.Errorf("public key = %x, want %x", k.Public(), priv.Public())
	}
}

func TestDeriveForcesHardened(t *testing.T) {
	e, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("FromMnemonic: %v", err)
	}
	defer e.Close()

	soft, err := e.Derive([]uint32{44 | Hardened, 635 | Hardened, 0, 0})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	hard, err := e.Derive([]uint32{44 | Hardened, 635 | Hardened, 0 | Hardened, 0 | Hardened})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !bytes.Equal(soft.Public(), hard.Public()) {
		t.Error("unhardened components should derive as hardened")
	}

	other, err := e.Derive([]uint32{44 | Hardened, 635 | Hardened, 1, 0})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if bytes.Equal(soft.Public(), other.Public()) {
		t.Error("different accounts derived the same key")
	}
}

func TestFromMnemonicSeed(t *testing.T) {
	e, err := FromMnemonic("  "+testMnemonic+"\n", "TREZOR")
	if err != nil {
		t.Fatalf("FromMnemonic: %v", err)
	}
	defer e.Close()

	want := "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04"
	_ = e.seed.WithBytes(func(seed []byte) error {
		if got := hex.EncodeToString(seed); got != want {
			t.Errorf("seed = %s\nwant %s", got, want)
		}
		return nil
	})
}

func TestFromMnemonicInvalid(t *testing.T) {
	bad := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon"
	if _, err := FromMnemonic(bad, ""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("err = %v, want ErrInvalidMnemonic", err)
	}
}

func TestEngineErrors(t *testing.T) {
	if _, err := NewEngine(make([]byte, 8)); err == nil {
		t.Error("expected error for short seed")
	}

	e, err := NewEngine(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Derive(make([]uint32, MaxPathDepth+1)); err == nil {
		t.Error("expected error for deep path")
	}
	e.Close()
	if _, err := e.Derive(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("err after Close = %v, want ErrClosed", err)
	}
}

func TestExpandedKeyErase(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, SeedSize)
	k, err := NewExpandedKey(seed)
	if err != nil {
		t.Fatalf("NewExpandedKey: %v", err)
	}
	pub := append([]byte(nil), k.Public()...)

	k.Erase()
	if !bytes.Equal(k.Prefix(), make([]byte, 32)) {
		t.Error("prefix not zeroed")
	}
	if !bytes.Equal(k.Scalar().Bytes(), make([]byte, 32)) {
		t.Error("scalar not zeroed")
	}
	if !bytes.Equal(k.Public(), pub) {
		t.Error("public key should survive Erase")
	}

	if _, err := NewExpandedKey(seed[:31]); err == nil {
		t.Error("expected error for short seed")
	}
}
