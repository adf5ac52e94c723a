// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package apdu

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		wantIns  Ins
		wantData []byte
		wantSW   StatusWord
	}{
		{"get version with lc", []byte{0, 0, 0, 0, 0}, InsGetVersion, nil, StatusOK},
		{"header only", []byte{0, 0xFE, 0, 0}, InsGetVersionStr, nil, StatusOK},
		{"sign with data", []byte{0, 3, 0, 0, 3, 0, 0xAA, 0xBB}, InsSign, []byte{0, 0xAA, 0xBB}, StatusOK},
		{"short header", []byte{0, 0, 0}, 0, nil, StatusBadLen},
		{"bad cla", []byte{0xE0, 0, 0, 0, 0}, 0, nil, StatusBadCla},
		{"lc too large", []byte{0, 3, 0, 0, 4, 1, 2}, 0, nil, StatusBadLen},
		{"lc too small", []byte{0, 3, 0, 0, 1, 1, 2}, 0, nil, StatusBadLen},
		{"unknown ins", []byte{0, 0x10, 0, 0, 0}, 0, nil, StatusBadIns},
		{"bad p1", []byte{0, 2, 1, 0, 0}, 0, nil, StatusBadP1P2},
		{"bad p2", []byte{0, 2, 0, 7, 0}, 0, nil, StatusBadP1P2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.raw)
			if got := StatusOf(err); got != tt.wantSW {
				t.Fatalf("status = %s, want %s (err %v)", got, tt.wantSW, err)
			}
			if err != nil {
				return
			}
			if cmd.Ins != tt.wantIns {
				t.Errorf("ins = %s, want %s", cmd.Ins, tt.wantIns)
			}
			if !bytes.Equal(cmd.Data, tt.wantData) {
				t.Errorf("data = %x, want %x", cmd.Data, tt.wantData)
			}
		})
	}
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	for _, data := range [][]byte{nil, {0}, bytes.Repeat([]byte{0x5A}, 255)} {
		raw, err := EncodeCommand(InsBlindSign, data)
		if err != nil {
			t.Fatalf("EncodeCommand(%d bytes): %v", len(data), err)
		}
		if raw[4] != byte(len(data)) {
			t.Errorf("lc = %d, want %d", raw[4], len(data))
		}
		cmd, err := ParseCommand(raw)
		if err != nil {
			t.Fatalf("ParseCommand: %v", err)
		}
		if cmd.Ins != InsBlindSign || !bytes.Equal(cmd.Data, data) {
			t.Errorf("round trip mismatch: %s %x", cmd.Ins, cmd.Data)
		}
	}

	if _, err := EncodeCommand(InsSign, make([]byte, 256)); err == nil {
		t.Error("expected error for 256 byte payload")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	raw, err := EncodeResponse([]byte{1, 2, 3}, StatusNotSupported)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	if want := []byte{1, 2, 3, 0x68, 0x08}; !bytes.Equal(raw, want) {
		t.Fatalf("raw = %x, want %x", raw, want)
	}

	data, sw, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if sw != StatusNotSupported || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("got %x %s", data, sw)
	}

	if _, _, err := ParseResponse([]byte{0x90}); err == nil {
		t.Error("expected error for one byte response")
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(nil); got != StatusOK {
		t.Errorf("nil -> %s", got)
	}
	if got := StatusOf(errors.New("plain")); got != StatusUnknown {
		t.Errorf("plain error -> %s", got)
	}
	wrapped := fmt.Errorf("dispatch: %w", Status(StatusNotSupported))
	if got := StatusOf(wrapped); got != StatusNotSupported {
		t.Errorf("wrapped -> %s", got)
	}
	if !errors.Is(wrapped, ErrStatus) {
		t.Error("StatusError should wrap ErrStatus")
	}
}

func TestStrings(t *testing.T) {
	if got := InsSign.String(); got != "Sign" {
		t.Errorf("InsSign.String() = %q", got)
	}
	if got := Ins(0x42).String(); got != "Ins(0x42)" {
		t.Errorf("unknown ins = %q", got)
	}
	if got := StatusUnknown.String(); got != "Unknown (0x6D00)" {
		t.Errorf("StatusUnknown.String() = %q", got)
	}
}
