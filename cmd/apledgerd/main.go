// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Command apledgerd emulates the Pocket device app behind a unix socket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/aplane-algo/apledger/internal/app"
	"github.com/aplane-algo/apledger/internal/fsutil"
	"github.com/aplane-algo/apledger/internal/keys"
	"github.com/aplane-algo/apledger/internal/menu"
	"github.com/aplane-algo/apledger/internal/protocol"
	"github.com/aplane-algo/apledger/internal/security"
	"github.com/aplane-algo/apledger/internal/transport"
	"github.com/aplane-algo/apledger/internal/util"
	"github.com/aplane-algo/apledger/internal/version"
)

func main() {
	printVersion := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("d", "", "Data directory (or set APLEDGER_DATA)")
	display := flag.String("display", "", "Override display from config (tui, headless)")
	blind := flag.Bool("blind", false, "Start with blind signing enabled")
	flag.Parse()
	if *printVersion {
		fmt.Printf("apledgerd %s\n", version.String())
		os.Exit(0)
	}

	resolvedDataDir := util.GetDataDir(*dataDir)
	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *display != "" {
		config.Display = *display
	}
	if *blind {
		config.BlindSigning = true
	}
	if config.Display != util.DisplayTUI && config.Display != util.DisplayHeadless {
		fmt.Fprintf(os.Stderr, "Error: invalid display '%s' (must be %s or %s)\n", config.Display, util.DisplayTUI, util.DisplayHeadless)
		os.Exit(1)
	}

	if err := run(config, resolvedDataDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openLog(dataDir string) (*os.File, error) {
	if err := fsutil.MkdirAll(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := fsutil.OpenAppend(filepath.Join(dataDir, "apledgerd.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func run(config util.Config, dataDir string) error {
	if config.Display == util.DisplayTUI {
		// The terminal UI owns the screen, so logs go to a file.
		f, err := openLog(dataDir)
		if err != nil {
			return err
		}
		defer f.Close()
		util.InitLogger(f)
	} else {
		util.InitLogger(os.Stderr)
	}

	report := security.Harden()
	for _, err := range report.Errors {
		util.Logger.Warn("memory protection unavailable", "error", err)
	}

	engine, err := loadEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := menu.NewSettings(config.BlindSigning)
	display, err := newScreen(ctx, config)
	if err != nil {
		return err
	}

	a := app.New(app.Config{
		Deriver:  engine,
		Prompter: display.prompter(),
		Settings: settings,
		Logger:   util.Logger,
	})
	dev := app.NewDevice(a)

	var busy atomic.Bool
	dev.OnMenu = func(l menu.Label) {
		busy.Store(a.Busy())
		display.menu(l)
	}

	server := transport.NewIPCServer(config.SocketPath, dev, func() string {
		if busy.Load() {
			return protocol.StateBusy
		}
		return protocol.StateReady
	}, util.Logger)
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	if config.Display == util.DisplayHeadless {
		fmt.Println("apledgerd - Pocket device emulator")
		fmt.Printf("Version: %s\n", version.Version)
		fmt.Printf("Socket: %s\n", config.SocketPath)
		fmt.Printf("Blind signing: %v\n", settings.BlindSigning())
		if addr, err := defaultAccount(engine); err == nil {
			fmt.Printf("Default account (%s): %s\n", keys.DefaultPath, addr)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- dev.Run(ctx)
	}()

	display.run(ctx, cancel, dev)
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if config.Display == util.DisplayHeadless {
		fmt.Println("apledgerd stopped")
	}
	return nil
}

func defaultAccount(engine *keys.Engine) (keys.Address, error) {
	path, err := keys.ParsePath(keys.DefaultPath)
	if err != nil {
		return keys.Address{}, err
	}
	k, err := engine.Derive(path)
	if err != nil {
		return keys.Address{}, err
	}
	defer k.Erase()
	return k.Address(), nil
}
