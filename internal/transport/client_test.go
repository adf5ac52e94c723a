// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aplane-algo/apledger/internal/apdu"
	"github.com/aplane-algo/apledger/internal/protocol"
)

// echo replies with the command bytes reversed.
type echo struct{ fail error }

func (e echo) Exchange(_ context.Context, command []byte) ([]byte, error) {
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([]byte, len(command))
	for i, b := range command {
		out[len(command)-1-i] = b
	}
	return apdu.EncodeResponse(out, apdu.StatusOK)
}

func startServer(t *testing.T, h Handler) (*IPCServer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apledger.sock")
	s := NewIPCServer(path, h, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		s.Stop()
	})
	return s, path
}

func dial(t *testing.T, path string) *IPCClient {
	t.Helper()
	c := NewIPC(path)
	if err := c.Dial(); err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestErrors(t *testing.T) {
	for _, err := range []error{ErrAlreadyConnected, ErrNotConnected, ErrServer} {
		if err.Error() == "" {
			t.Errorf("%#v has empty message", err)
		}
	}
}

func TestNewIPC(t *testing.T) {
	client := NewIPC("/tmp/test.sock")
	if client == nil {
		t.Fatal("NewIPC returned nil")
	}
	if client.socketPath != "/tmp/test.sock" {
		t.Errorf("socketPath = %q, want %q", client.socketPath, "/tmp/test.sock")
	}
}

func TestIPCNotConnected(t *testing.T) {
	client := NewIPC("/tmp/test.sock")
	client.Close() // Should not panic

	if _, err := client.Exchange(context.Background(), []byte{0, 0, 0, 0, 0}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Exchange = %v, want ErrNotConnected", err)
	}
	if _, err := client.WaitForStatus(time.Second); !errors.Is(err, ErrNotConnected) {
		t.Errorf("WaitForStatus = %v, want ErrNotConnected", err)
	}
}

func TestIPCRoundTrip(t *testing.T) {
	_, path := startServer(t, echo{})
	c := dial(t, path)

	status, err := c.WaitForStatus(5 * time.Second)
	if err != nil {
		t.Fatalf("WaitForStatus: %v", err)
	}
	if status.State != protocol.StateReady || status.App != "Pocket" {
		t.Errorf("status = %+v", status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, command := range [][]byte{{0, 0, 0, 0, 0}, {0, 3, 0, 0, 2, 0xaa, 0xbb}} {
		raw, err := c.Exchange(ctx, command)
		if err != nil {
			t.Fatalf("Exchange: %v", err)
		}
		data, sw, err := apdu.ParseResponse(raw)
		if err != nil {
			t.Fatalf("ParseResponse: %v", err)
		}
		want := make([]byte, len(command))
		for i, b := range command {
			want[len(command)-1-i] = b
		}
		if sw != apdu.StatusOK || !bytes.Equal(data, want) {
			t.Errorf("reply = %x %s, want %x", data, sw, want)
		}
	}
}

func TestIPCSingleClient(t *testing.T) {
	_, path := startServer(t, echo{})
	first := dial(t, path)
	if _, err := first.WaitForStatus(5 * time.Second); err != nil {
		t.Fatalf("first client: %v", err)
	}

	second := dial(t, path)
	if _, err := second.WaitForStatus(5 * time.Second); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second client = %v, want ErrAlreadyConnected", err)
	}
}

func TestIPCHandlerError(t *testing.T) {
	_, path := startServer(t, echo{fail: errors.New("device has exited")})
	c := dial(t, path)
	if _, err := c.WaitForStatus(5 * time.Second); err != nil {
		t.Fatalf("WaitForStatus: %v", err)
	}
	if _, err := c.Exchange(context.Background(), []byte{0, 0, 0, 0, 0}); !errors.Is(err, ErrServer) {
		t.Errorf("Exchange = %v, want ErrServer", err)
	}
}

func TestStopRemovesSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apledger.sock")
	s := NewIPCServer(path, echo{}, nil, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("socket missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket mode = %o, want 600", perm)
	}

	s.Stop()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket still present after Stop: %v", err)
	}
}

func TestStartRefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, nil, 0600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "apledger.sock")
	if err := os.Symlink(target, path); err != nil {
		t.Fatal(err)
	}
	if err := NewIPCServer(path, echo{}, nil, nil).Start(context.Background()); err == nil {
		t.Error("Start accepted a symlinked socket path")
	}
}

func TestTransportInterface(t *testing.T) {
	var _ Transport = (*IPCClient)(nil)
	var _ Handler = echo{}
}
