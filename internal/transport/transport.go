// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package transport carries APDUs between the host tool and the emulator
// over a unix socket.
package transport

import (
	"context"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/aplane-algo/apledger/internal/protocol"
)

// Transport defines the interface for emulator client connections.
type Transport interface {
	// Dial establishes the connection.
	Dial() error

	// Close closes the connection.
	Close()

	// WaitForStatus waits for the status message sent on connect.
	WaitForStatus(timeout time.Duration) (*protocol.Message, error)

	// Exchange sends a raw command APDU and returns the raw response.
	Exchange(ctx context.Context, command []byte) ([]byte, error)
}

// Compile-time interface check
var _ Transport = (*IPCClient)(nil)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{ExtraReturnErrors: cbor.ExtraDecErrorUnknownField}.DecMode()
	if err != nil {
		panic(err)
	}
}

// codec reads and writes protocol messages on one stream.
type codec struct {
	enc *cbor.Encoder
	dec *cbor.Decoder
}

func newCodec(rw io.ReadWriter) *codec {
	return &codec{enc: encMode.NewEncoder(rw), dec: decMode.NewDecoder(rw)}
}

func (c *codec) write(m protocol.Message) error {
	return c.enc.Encode(m)
}

func (c *codec) read() (protocol.Message, error) {
	var m protocol.Message
	err := c.dec.Decode(&m)
	return m, err
}
