// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AddressSize is the length of a POKT address in bytes.
const AddressSize = 20

// Address is a POKT account address: the first 20 bytes of SHA-256 of the
// Ed25519 public key.
type Address [AddressSize]byte

// AddressFromPublicKey computes the address of an Ed25519 public key.
func AddressFromPublicKey(pub []byte) Address {
	sum := sha256.Sum256(pub)
	var addr Address
	copy(addr[:], sum[:AddressSize])
	return addr
}

// ParseAddress decodes a lowercase or uppercase hex address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("invalid address: %w", err)
	}
	if len(b) != AddressSize {
		return addr, fmt.Errorf("invalid address length: expected %d bytes, got %d", AddressSize, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// String returns the lowercase hex form shown on the device.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}
