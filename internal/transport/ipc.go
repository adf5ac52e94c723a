// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aplane-algo/apledger/internal/apdu"
	"github.com/aplane-algo/apledger/internal/protocol"
)

// IPCClient is a Unix socket client for the emulator.
type IPCClient struct {
	conn       net.Conn
	socketPath string
	codec      *codec
	nextID     uint64
}

// NewIPC creates a new IPC client (not yet connected).
func NewIPC(socketPath string) *IPCClient {
	return &IPCClient{
		socketPath: socketPath,
	}
}

// Dial connects to the emulator Unix socket.
func (c *IPCClient) Dial() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to IPC socket: %w", err)
	}
	c.attach(conn)
	return nil
}

func (c *IPCClient) attach(conn net.Conn) {
	c.conn = conn
	c.codec = newCodec(conn)
}

// Close closes the IPC connection.
func (c *IPCClient) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// WaitForStatus waits for the initial status message from the server.
func (c *IPCClient) WaitForStatus(timeout time.Duration) (*protocol.Message, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()

	m, err := c.codec.read()
	if err != nil {
		return nil, fmt.Errorf("failed to receive status: %w", err)
	}
	switch m.Type {
	case protocol.MsgTypeStatus:
		return &m, nil
	case protocol.MsgTypeError:
		if m.Error == ErrAlreadyConnected.Error() {
			return nil, ErrAlreadyConnected
		}
		return nil, fmt.Errorf("%w: %s", ErrServer, m.Error)
	default:
		return nil, fmt.Errorf("expected status message, got: %s", m.Type)
	}
}

// Exchange sends a raw command APDU and waits for the device's response.
// The context deadline, if any, bounds the whole exchange.
func (c *IPCClient) Exchange(ctx context.Context, command []byte) ([]byte, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	c.nextID++
	id := c.nextID
	if err := c.codec.write(protocol.Exchange(id, command)); err != nil {
		return nil, fmt.Errorf("failed to send apdu: %w", err)
	}

	m, err := c.codec.read()
	if err != nil {
		return nil, fmt.Errorf("failed to receive reply: %w", err)
	}
	switch m.Type {
	case protocol.MsgTypeReply:
		if m.ID != id {
			return nil, fmt.Errorf("reply id %d does not match request %d", m.ID, id)
		}
		return apdu.EncodeResponse(m.Data, apdu.StatusWord(m.SW))
	case protocol.MsgTypeError:
		return nil, fmt.Errorf("%w: %s", ErrServer, m.Error)
	default:
		return nil, fmt.Errorf("expected reply message, got: %s", m.Type)
	}
}
