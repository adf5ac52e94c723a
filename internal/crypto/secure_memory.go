// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// ZeroBytes securely overwrites a byte slice with zeros
// Uses constant-time operation to prevent compiler optimization
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}

// SecureBytes holds seed or mnemonic material with scoped access and explicit destruction.
type SecureBytes struct {
	data []byte
	lock sync.RWMutex
}

// NewSecureBytes creates a new SecureBytes from a byte slice.
// The input bytes are copied, so the caller can safely zero the original.
func NewSecureBytes(b []byte) *SecureBytes {
	if b == nil {
		return &SecureBytes{}
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &SecureBytes{data: data}
}

// WithBytes provides scoped access to the underlying bytes without copying.
//
// IMPORTANT: The caller must NOT store or leak the byte slice outside the callback
func (s *SecureBytes) WithBytes(fn func([]byte) error) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return fn(s.data)
}

// Destroy securely zeros the data.
// After calling Destroy, WithBytes sees an empty slice.
func (s *SecureBytes) Destroy() {
	s.lock.Lock()
	defer s.lock.Unlock()
	ZeroBytes(s.data)
	s.data = nil
}

// IsEmpty returns true if no data is held
func (s *SecureBytes) IsEmpty() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.data) == 0
}
