// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package protocol defines the messages exchanged between the apledger host
// tool (client) and the apledgerd emulator (server).
// Every message is one CBOR map on the emulator socket.
package protocol

// Message type constants
const (
	// Sent by the emulator when a client connects
	MsgTypeStatus = "status"

	// APDU exchange
	MsgTypeExchange = "exchange"
	MsgTypeReply    = "reply"

	MsgTypeError = "error"
)

// Device states reported in StatusMessage
const (
	StateReady = "ready"
	StateBusy  = "busy"
)

// Message is the envelope of every message on the socket. Type selects
// which of the other fields are meaningful.
type Message struct {
	Type string `cbor:"type"`
	ID   uint64 `cbor:"id,omitempty"` // Request ID, echoed in the reply

	// exchange
	APDU []byte `cbor:"apdu,omitempty"`

	// reply
	Data []byte `cbor:"data,omitempty"`
	SW   uint16 `cbor:"sw,omitempty"`

	// status
	State   string `cbor:"state,omitempty"`
	App     string `cbor:"app,omitempty"`
	Version string `cbor:"version,omitempty"`

	// error
	Error string `cbor:"error,omitempty"`
}

// Exchange returns an exchange request carrying a raw command APDU.
func Exchange(id uint64, apdu []byte) Message {
	return Message{Type: MsgTypeExchange, ID: id, APDU: apdu}
}

// Reply returns the reply to request id.
func Reply(id uint64, data []byte, sw uint16) Message {
	return Message{Type: MsgTypeReply, ID: id, Data: data, SW: sw}
}

// Error returns an error message.
func Error(id uint64, msg string) Message {
	return Message{Type: MsgTypeError, ID: id, Error: msg}
}
