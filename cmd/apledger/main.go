// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Command apledger drives a Pocket device, or the apledgerd emulator, from
// the host side.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aplane-algo/apledger/internal/host"
	"github.com/aplane-algo/apledger/internal/transport"
	"github.com/aplane-algo/apledger/internal/util"
	"github.com/aplane-algo/apledger/internal/version"
)

const statusTimeout = 5 * time.Second

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: apledger [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		for _, c := range commands {
			fmt.Fprintf(os.Stderr, "  %-28s %s\n", c.usage, c.help)
		}
		fmt.Fprintf(os.Stderr, "  %-28s %s\n", "shell", "Interactive session")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}

	dataDir := flag.String("d", "", "Data directory (or set APLEDGER_DATA)")
	socket := flag.String("socket", "", "Override emulator socket path")
	chunk := flag.Int("chunk", 0, "Override block size in bytes")
	printVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Printf("apledger %s\n", version.String())
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	util.InitLogger(os.Stderr)

	resolvedDataDir := util.GetDataDir(*dataDir)
	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *socket != "" {
		config.SocketPath = *socket
	}
	if *chunk != 0 {
		config.ChunkSize = *chunk
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, resolvedDataDir, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, config util.Config, dataDir string, args []string) error {
	c, ok := lookup(args[0])
	if !ok && args[0] != "shell" {
		return fmt.Errorf("unknown command: %s", args[0])
	}

	ipc, client, err := connect(config)
	if err != nil {
		return err
	}
	defer ipc.Close()

	if !ok {
		return startShell(ctx, client, dataDir)
	}
	return c.run(ctx, client, args[1:])
}

func connect(config util.Config) (*transport.IPCClient, *host.Client, error) {
	ipc := transport.NewIPC(config.SocketPath)
	if err := ipc.Dial(); err != nil {
		return nil, nil, fmt.Errorf("is apledgerd running? %w", err)
	}
	status, err := ipc.WaitForStatus(statusTimeout)
	if err != nil {
		ipc.Close()
		return nil, nil, err
	}
	util.Debug("connected", "socket", config.SocketPath, "app", status.App, "version", status.Version, "state", status.State)

	client, err := host.NewClient(ipc, config.ChunkSize, util.Logger)
	if err != nil {
		ipc.Close()
		return nil, nil, err
	}
	return ipc, client, nil
}
