// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/aplane-algo/apledger/internal/apdu"
	"github.com/aplane-algo/apledger/internal/protocol"
	"github.com/aplane-algo/apledger/internal/version"
)

// Handler answers raw command APDUs. Device implements it.
type Handler interface {
	Exchange(ctx context.Context, command []byte) ([]byte, error)
}

// StateFunc reports the device state for status messages.
type StateFunc func() string

// IPCServer serves one emulator client at a time on a Unix socket.
type IPCServer struct {
	path    string
	handler Handler
	state   StateFunc
	log     *slog.Logger

	listener net.Listener
	client   net.Conn
	lock     sync.Mutex
	wg       sync.WaitGroup
}

// NewIPCServer creates a new IPC server. state may be nil.
func NewIPCServer(path string, handler Handler, state StateFunc, logger *slog.Logger) *IPCServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if state == nil {
		state = func() string { return protocol.StateReady }
	}
	return &IPCServer{path: path, handler: handler, state: state, log: logger}
}

// Start listens on the socket path and serves clients until ctx is
// cancelled or Stop is called.
func (s *IPCServer) Start(ctx context.Context) error {
	if err := s.validateSocketPath(); err != nil {
		return err
	}
	s.warnIfInsecureDirectory()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on IPC socket: %w", err)
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.lock.Lock()
	s.listener = listener
	s.lock.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Serve(ctx, listener); err != nil {
			s.log.Error("emulator socket stopped", "error", err)
		}
	}()
	return nil
}

// Serve accepts connections on listener until it is closed or ctx ends.
func (s *IPCServer) Serve(ctx context.Context, listener net.Listener) error {
	s.lock.Lock()
	s.listener = listener
	s.lock.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.lock.Lock()
		if s.client != nil {
			s.lock.Unlock()
			s.log.Debug("rejecting second client")
			_ = newCodec(conn).write(protocol.Error(0, ErrAlreadyConnected.Error()))
			_ = conn.Close()
			continue
		}
		s.client = conn
		s.lock.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
			s.lock.Lock()
			s.client = nil
			s.lock.Unlock()
		}()
	}
}

// serveConn sends the status message and then answers exchanges until the
// client disconnects.
func (s *IPCServer) serveConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c := newCodec(conn)
	status := protocol.Message{
		Type:    protocol.MsgTypeStatus,
		State:   s.state(),
		App:     version.AppName,
		Version: version.Version,
	}
	if err := c.write(status); err != nil {
		return
	}
	s.log.Debug("client connected")

	for {
		m, err := c.read()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("client read failed", "error", err)
			}
			return
		}
		if m.Type != protocol.MsgTypeExchange {
			_ = c.write(protocol.Error(m.ID, "unexpected message type: "+m.Type))
			continue
		}

		resp, err := s.handler.Exchange(ctx, m.APDU)
		if err != nil {
			_ = c.write(protocol.Error(m.ID, err.Error()))
			return
		}
		data, sw, err := apdu.ParseResponse(resp)
		if err != nil {
			_ = c.write(protocol.Error(m.ID, err.Error()))
			continue
		}
		if err := c.write(protocol.Reply(m.ID, data, uint16(sw))); err != nil {
			return
		}
	}
}

// Stop closes the listener and any client, waits for the connection
// goroutines and removes the socket file.
func (s *IPCServer) Stop() {
	s.lock.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.client != nil {
		_ = s.client.Close()
	}
	s.lock.Unlock()
	s.wg.Wait()
	_ = os.Remove(s.path)
}

// validateSocketPath refuses symlinks and sockets owned by other users.
func (s *IPCServer) validateSocketPath() error {
	info, err := os.Lstat(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat socket path: %w", err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("SECURITY: socket path is a symlink (possible attack): %s", s.path)
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if ok {
		uid := os.Getuid()
		if uid < 0 {
			return fmt.Errorf("invalid UID: %d", uid)
		}
		currentUID := uint32(uid) // #nosec G115 - UIDs on Linux are 32-bit, safe conversion
		if stat.Uid != currentUID {
			return fmt.Errorf("SECURITY: socket owned by different user (uid %d, expected %d): %s",
				stat.Uid, currentUID, s.path)
		}
	}
	return nil
}

// warnIfInsecureDirectory prints a warning if the socket is in a world-writable directory.
func (s *IPCServer) warnIfInsecureDirectory() {
	dir := filepath.Dir(s.path)

	if strings.HasPrefix(dir, "/tmp") || strings.HasPrefix(dir, "/var/tmp") {
		s.log.Warn("emulator socket in world-writable directory", "path", s.path)
		return
	}

	info, err := os.Stat(dir)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0002 != 0 {
		s.log.Warn("emulator socket directory is world-writable", "dir", dir)
	}
}
