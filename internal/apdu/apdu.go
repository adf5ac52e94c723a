// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package apdu frames device commands and responses.
//
// Commands are short ISO-7816 APDUs: CLA INS P1 P2 Lc DATA. The app only
// accepts CLA, P1 and P2 of zero. Responses are the reply data followed by
// a two byte status word.
package apdu

import (
	"errors"
	"fmt"

	skyapdu "github.com/skythen/apdu"
)

// Ins is an APDU instruction code.
type Ins byte

const (
	InsGetVersion    Ins = 0x00
	InsVerifyAddress Ins = 0x01
	InsGetPubkey     Ins = 0x02
	InsSign          Ins = 0x03
	InsBlindSign     Ins = 0x04
	InsGetVersionStr Ins = 0xFE
	InsExit          Ins = 0xFF
)

var insNames = map[Ins]string{
	InsGetVersion:    "GetVersion",
	InsVerifyAddress: "VerifyAddress",
	InsGetPubkey:     "GetPubkey",
	InsSign:          "Sign",
	InsBlindSign:     "BlindSign",
	InsGetVersionStr: "GetVersionStr",
	InsExit:          "Exit",
}

// Known reports whether the instruction is implemented by the app.
func (i Ins) Known() bool {
	_, ok := insNames[i]
	return ok
}

func (i Ins) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Ins(0x%02x)", byte(i))
}

// StatusWord is the trailing SW1 SW2 of a response.
type StatusWord uint16

const (
	StatusOK              StatusWord = 0x9000
	StatusNothingReceived StatusWord = 0x6982
	StatusBadCla          StatusWord = 0x6E00
	StatusBadIns          StatusWord = 0x6E01
	StatusBadP1P2         StatusWord = 0x6E02
	StatusBadLen          StatusWord = 0x6E03
	StatusUnknown         StatusWord = 0x6D00
	StatusNotSupported    StatusWord = 0x6808
)

var statusNames = map[StatusWord]string{
	StatusOK:              "OK",
	StatusNothingReceived: "NothingReceived",
	StatusBadCla:          "BadCla",
	StatusBadIns:          "BadIns",
	StatusBadP1P2:         "BadP1P2",
	StatusBadLen:          "BadLen",
	StatusUnknown:         "Unknown",
	StatusNotSupported:    "NotSupported",
}

func (s StatusWord) String() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("%s (0x%04X)", name, uint16(s))
	}
	return fmt.Sprintf("0x%04X", uint16(s))
}

// ErrStatus is wrapped by every StatusError.
var ErrStatus = errors.New("apdu status")

// StatusError carries a non-OK status word.
type StatusError struct {
	SW StatusWord
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device returned %s", e.SW)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Status returns a StatusError for sw.
func Status(sw StatusWord) error {
	return &StatusError{SW: sw}
}

// StatusOf extracts the status word from err.
// Errors that carry no status collapse to StatusUnknown; nil is StatusOK.
func StatusOf(err error) StatusWord {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.SW
	}
	return StatusUnknown
}

// Command is a decoded command APDU.
type Command struct {
	Ins  Ins
	Data []byte
}

// ParseCommand decodes a raw command APDU.
// A four byte header without Lc is accepted as a command with no data.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) < 4 {
		return Command{}, Status(StatusBadLen)
	}
	if raw[0] != 0 {
		return Command{}, Status(StatusBadCla)
	}
	if len(raw) > 4 && int(raw[4]) != len(raw)-5 {
		return Command{}, Status(StatusBadLen)
	}

	capdu, err := skyapdu.ParseCapdu(raw)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", Status(StatusBadLen), err)
	}

	ins := Ins(capdu.Ins)
	if !ins.Known() {
		return Command{}, Status(StatusBadIns)
	}
	if capdu.P1 != 0 || capdu.P2 != 0 {
		return Command{}, Status(StatusBadP1P2)
	}
	return Command{Ins: ins, Data: capdu.Data}, nil
}

// EncodeCommand builds a raw command APDU for ins carrying data.
// Lc is always present, even for empty data.
func EncodeCommand(ins Ins, data []byte) ([]byte, error) {
	if len(data) > 255 {
		return nil, fmt.Errorf("command data too long: %d bytes", len(data))
	}
	if len(data) == 0 {
		return []byte{0, byte(ins), 0, 0, 0}, nil
	}
	capdu := skyapdu.Capdu{Cla: 0, Ins: byte(ins), Data: data}
	return capdu.Bytes()
}

// EncodeResponse appends the status word to data.
func EncodeResponse(data []byte, sw StatusWord) ([]byte, error) {
	rapdu := skyapdu.Rapdu{Data: data, SW1: byte(sw >> 8), SW2: byte(sw)}
	return rapdu.Bytes()
}

// ParseResponse splits a raw response into data and status word.
func ParseResponse(raw []byte) ([]byte, StatusWord, error) {
	rapdu, err := skyapdu.ParseRapdu(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid response apdu: %w", err)
	}
	return rapdu.Data, StatusWord(uint16(rapdu.SW1)<<8 | uint16(rapdu.SW2)), nil
}
