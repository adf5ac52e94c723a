// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aplane-algo/apledger/internal/host"
	"github.com/aplane-algo/apledger/internal/keys"
)

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, c *host.Client, args []string) error
}

var commands = []command{
	{"version", "version", "Show the device app version", runVersion},
	{"pubkey", "pubkey [path]", "Print the public key and address for path", runPubkey},
	{"verify", "verify [path]", "Show the address on the device for confirmation", runVerify},
	{"sign", "sign [-path p] <file|->", "Sign a JSON transaction", runSign},
	{"blind-sign", "blind-sign [-path p] <file|->", "Sign a transaction without review", runBlindSign},
	{"exit", "exit", "Quit the device app", runExit},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func runVersion(ctx context.Context, c *host.Client, _ []string) error {
	v, err := c.GetVersion(ctx)
	if err != nil {
		return err
	}
	s, err := c.GetVersionString(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", v, s)
	return nil
}

func runPubkey(ctx context.Context, c *host.Client, args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	pk, err := c.GetPublicKey(ctx, path)
	if err != nil {
		return err
	}
	printKey(path, pk)
	return nil
}

func runVerify(ctx context.Context, c *host.Client, args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	fmt.Println("Confirm the address on the device...")
	pk, err := c.VerifyAddress(ctx, path)
	if err != nil {
		return err
	}
	printKey(path, pk)
	return nil
}

func runSign(ctx context.Context, c *host.Client, args []string) error {
	return sign(ctx, args, c.Sign)
}

func runBlindSign(ctx context.Context, c *host.Client, args []string) error {
	return sign(ctx, args, c.BlindSign)
}

func runExit(ctx context.Context, c *host.Client, _ []string) error {
	return c.Exit(ctx)
}

type signFunc func(ctx context.Context, path keys.Path, txn []byte) ([]byte, error)

func sign(ctx context.Context, args []string, fn signFunc) error {
	path, rest, err := splitPathFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("expected one transaction file (or - for stdin)")
	}
	txn, err := readInput(rest[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "Review the transaction on the device...")
	sig, err := fn(ctx, path, txn)
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(sig))
	return nil
}

// splitPathFlag pulls an optional "-path p" pair off the front of args.
func splitPathFlag(args []string) (keys.Path, []string, error) {
	if len(args) >= 2 && (args[0] == "-path" || args[0] == "--path") {
		p, err := keys.ParsePath(args[1])
		return p, args[2:], err
	}
	p, err := keys.ParsePath(keys.DefaultPath)
	return p, args, err
}

func pathArg(args []string) (keys.Path, error) {
	switch len(args) {
	case 0:
		return keys.ParsePath(keys.DefaultPath)
	case 1:
		return keys.ParsePath(args[0])
	default:
		return nil, errors.New("expected at most one derivation path")
	}
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(name) // #nosec G304 - user-supplied transaction file
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}
	return data, nil
}

func printKey(path keys.Path, pk host.PublicKey) {
	fmt.Printf("Path:       %s\n", path)
	fmt.Printf("Public key: %s\n", hex.EncodeToString(pk.Key))
	fmt.Printf("Address:    %s\n", pk.Address)
}
