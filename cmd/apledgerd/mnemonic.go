// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aplane-algo/apledger/internal/crypto"
	"github.com/aplane-algo/apledger/internal/keys"
	"github.com/aplane-algo/apledger/internal/util"
)

// loadEngine builds the key engine from the configured mnemonic. Sources in
// order: mnemonic, mnemonic_file, APLEDGER_MNEMONIC, then the terminal.
func loadEngine(config util.Config) (*keys.Engine, error) {
	mnemonic, err := readMnemonic(config)
	if err != nil {
		return nil, err
	}
	defer mnemonic.Destroy()

	var engine *keys.Engine
	err = mnemonic.WithBytes(func(b []byte) error {
		var err error
		engine, err = keys.FromMnemonic(string(b), config.Passphrase)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load seed: %w", err)
	}
	return engine, nil
}

func readMnemonic(config util.Config) (*crypto.SecureBytes, error) {
	switch {
	case config.Mnemonic != "":
		return crypto.NewSecureBytes([]byte(config.Mnemonic)), nil

	case config.MnemonicFile != "":
		data, err := os.ReadFile(config.MnemonicFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read mnemonic file: %w", err)
		}
		defer crypto.ZeroBytes(data)
		return crypto.NewSecureBytes(data), nil

	case os.Getenv("APLEDGER_MNEMONIC") != "":
		return crypto.NewSecureBytes([]byte(os.Getenv("APLEDGER_MNEMONIC"))), nil
	}

	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors fit in int
	if !term.IsTerminal(fd) {
		return nil, errors.New("no mnemonic configured and stdin is not a terminal (set mnemonic_file in config.yaml)")
	}
	fmt.Print("Enter BIP39 mnemonic: ")
	data, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read mnemonic: %w", err)
	}
	defer crypto.ZeroBytes(data)
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("empty mnemonic")
	}
	return crypto.NewSecureBytes(data), nil
}
