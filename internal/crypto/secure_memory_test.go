// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestZeroBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "single byte", data: []byte{0xFF}},
		{name: "32 byte scalar", data: bytes.Repeat([]byte{0xAB}, 32)},
		{name: "64 byte seed", data: bytes.Repeat([]byte{0xCD}, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ZeroBytes(tt.data)
			for i, b := range tt.data {
				if b != 0 {
					t.Errorf("byte at index %d is not zero: got %d", i, b)
				}
			}
		})
	}
}

func TestSecureBytesCopiesInput(t *testing.T) {
	input := []byte("abandon abandon about")
	s := NewSecureBytes(input)
	ZeroBytes(input)

	err := s.WithBytes(func(b []byte) error {
		if string(b) != "abandon abandon about" {
			t.Errorf("got %q, caller zeroing leaked into SecureBytes", b)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithBytes: %v", err)
	}
}

func TestSecureBytesWithBytesPropagatesError(t *testing.T) {
	s := NewSecureBytes([]byte{1, 2, 3})
	want := errors.New("boom")
	if got := s.WithBytes(func([]byte) error { return want }); !errors.Is(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSecureBytesDestroy(t *testing.T) {
	s := NewSecureBytes(bytes.Repeat([]byte{0x42}, 64))
	if s.IsEmpty() {
		t.Fatal("fresh SecureBytes should not be empty")
	}

	var held []byte
	_ = s.WithBytes(func(b []byte) error {
		held = b
		return nil
	})

	s.Destroy()
	if !s.IsEmpty() {
		t.Error("destroyed SecureBytes should be empty")
	}
	for i, b := range held {
		if b != 0 {
			t.Fatalf("backing array byte %d not zeroed", i)
		}
	}

	// Destroy twice is a no-op
	s.Destroy()
}

func TestSecureBytesNil(t *testing.T) {
	s := NewSecureBytes(nil)
	if !s.IsEmpty() {
		t.Error("nil input should produce empty SecureBytes")
	}
}

func TestSecureBytesConcurrentAccess(t *testing.T) {
	s := NewSecureBytes(bytes.Repeat([]byte{0x01}, 32))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithBytes(func(b []byte) error {
				_ = len(b)
				return nil
			})
		}()
	}
	wg.Wait()
	s.Destroy()
}
