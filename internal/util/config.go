// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultDataDir is the default data directory for apledgerd and apledger
	DefaultDataDir = "~/.apledger"

	// DefaultSocketName is the emulator socket file inside the data directory
	DefaultSocketName = "apledger.sock"

	// DefaultChunkSize is the number of transaction bytes the host puts in one block.
	// 1 tag + 32 hash + 180 data stays well inside a short APDU.
	DefaultChunkSize = 180

	// MaxChunkSize keeps tag, next hash and data inside 255 bytes of APDU data
	MaxChunkSize = 255 - 1 - 32

	DisplayTUI      = "tui"
	DisplayHeadless = "headless"
)

// Config holds apledgerd and apledger configuration settings
type Config struct {
	// SocketPath is the unix socket the emulator listens on.
	// Relative paths are resolved against the data directory.
	SocketPath string `yaml:"socket_path" description:"Emulator unix socket path (relative to data dir)" default:"apledger.sock"`

	// Seed material for the emulated device. Mnemonic wins over MnemonicFile.
	// If neither is set apledgerd asks for the mnemonic on the terminal.
	Mnemonic     string `yaml:"mnemonic" description:"BIP39 mnemonic of the emulated device"`
	MnemonicFile string `yaml:"mnemonic_file" description:"File holding the BIP39 mnemonic (relative to data dir)"`
	Passphrase   string `yaml:"passphrase" description:"Optional BIP39 passphrase"`

	// BlindSigning is the initial value of the on-device setting.
	// Settings are volatile: toggling it from the menu does not write back here.
	BlindSigning bool `yaml:"blind_signing" description:"Start with blind signing enabled" default:"false"`

	Display        string `yaml:"display" description:"Device screen (tui, headless)" default:"tui"`
	AutomationFile string `yaml:"automation_file" description:"Automation rules for headless prompts (relative to data dir)"`

	ChunkSize int `yaml:"chunk_size" description:"Host block size in bytes" default:"180"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		SocketPath: DefaultSocketName,
		Display:    DisplayTUI,
		ChunkSize:  DefaultChunkSize,
	}
}

// GetDataDir returns the data directory.
// Resolution order: -d flag > APLEDGER_DATA env var > ~/.apledger
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("APLEDGER_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".apledger")
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// LoadConfig loads configuration from config.yaml in the data directory.
// If the file doesn't exist, returns default config with paths resolved.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}

	config.SocketPath = ResolvePath(config.SocketPath, dataDir)
	if config.MnemonicFile != "" {
		config.MnemonicFile = ResolvePath(config.MnemonicFile, dataDir)
	}
	if config.AutomationFile != "" {
		config.AutomationFile = ResolvePath(config.AutomationFile, dataDir)
	}
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig overlays YAML data on the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaults := DefaultConfig()
	if config.SocketPath == "" {
		config.SocketPath = defaults.SocketPath
	}
	if config.Display == "" {
		config.Display = defaults.Display
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = defaults.ChunkSize
	}

	switch config.Display {
	case DisplayTUI, DisplayHeadless:
	default:
		return Config{}, fmt.Errorf("invalid display '%s' in config (must be %s or %s)", config.Display, DisplayTUI, DisplayHeadless)
	}

	if config.ChunkSize < 0 || config.ChunkSize > MaxChunkSize {
		return Config{}, fmt.Errorf("chunk_size %d out of range (1-%d)", config.ChunkSize, MaxChunkSize)
	}

	return config, nil
}

// ResolvePath expands a leading ~ and resolves relative paths against baseDir.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
