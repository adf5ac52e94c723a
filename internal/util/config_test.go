// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		want        Config
		wantErr     bool
		errContains string
	}{
		{
			name: "empty file yields defaults",
			yaml: "",
			want: DefaultConfig(),
		},
		{
			name: "overlay keeps unspecified defaults",
			yaml: "blind_signing: true\ndisplay: headless\n",
			want: Config{
				SocketPath:   DefaultSocketName,
				BlindSigning: true,
				Display:      DisplayHeadless,
				ChunkSize:    DefaultChunkSize,
			},
		},
		{
			name: "custom chunk size",
			yaml: "chunk_size: 64\n",
			want: Config{
				SocketPath: DefaultSocketName,
				Display:    DisplayTUI,
				ChunkSize:  64,
			},
		},
		{
			name:        "invalid display rejected",
			yaml:        "display: lcd\n",
			wantErr:     true,
			errContains: "invalid display",
		},
		{
			name:        "oversized chunk rejected",
			yaml:        "chunk_size: 400\n",
			wantErr:     true,
			errContains: "out of range",
		},
		{
			name:        "malformed yaml rejected",
			yaml:        "display: [\n",
			wantErr:     true,
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig([]byte(tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", got)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	data := "mnemonic_file: seed.txt\nautomation_file: /etc/rules.yaml\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.SocketPath != filepath.Join(dir, DefaultSocketName) {
		t.Errorf("SocketPath = %q", config.SocketPath)
	}
	if config.MnemonicFile != filepath.Join(dir, "seed.txt") {
		t.Errorf("MnemonicFile = %q", config.MnemonicFile)
	}
	if config.AutomationFile != "/etc/rules.yaml" {
		t.Errorf("AutomationFile = %q, absolute paths must be kept", config.AutomationFile)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config, err := LoadConfigFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if config != DefaultConfig() {
		t.Errorf("got %+v, want defaults", config)
	}
}

func TestGetDataDir(t *testing.T) {
	t.Setenv("APLEDGER_DATA", "/from/env")
	if got := GetDataDir("/from/flag"); got != "/from/flag" {
		t.Errorf("flag should win, got %q", got)
	}
	if got := GetDataDir(""); got != "/from/env" {
		t.Errorf("env should be used, got %q", got)
	}
}
