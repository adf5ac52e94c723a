// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/apledger/internal/fsutil"
	"github.com/aplane-algo/apledger/internal/host"
)

func startShell(ctx context.Context, client *host.Client, dataDir string) error {
	fmt.Println("apledger shell")
	fmt.Println("Type 'help' for available commands or 'quit' to leave")

	items := make([]readline.PrefixCompleterInterface, 0, len(commands)+2)
	for _, c := range commands {
		items = append(items, readline.PcItem(c.name))
	}
	items = append(items, readline.PcItem("help"), readline.PcItem("quit"))

	var historyFile string
	if dataDir != "" {
		if err := fsutil.MkdirAll(dataDir); err == nil {
			historyFile = filepath.Join(dataDir, ".apledger_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[32mpocket>\033[0m ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      readline.NewPrefixCompleter(items...),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					fmt.Println("Use 'quit' to leave")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit":
			return nil
		case "help":
			for _, c := range commands {
				fmt.Printf("  %-28s %s\n", c.usage, c.help)
			}
			fmt.Printf("  %-28s %s\n", "quit", "Leave the shell")
			continue
		}

		c, ok := lookup(fields[0])
		if !ok {
			fmt.Printf("Unknown command: %s\n", fields[0])
			continue
		}
		if err := c.run(ctx, client, fields[1:]); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
		if c.name == "exit" {
			return nil
		}
	}
	return ctx.Err()
}
