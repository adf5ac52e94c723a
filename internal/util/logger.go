// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the process-wide logger used by the apledger binaries.
// Library packages take a *slog.Logger explicitly and never read this.
var Logger = slog.New(slog.DiscardHandler)

// InitLogger initializes the global logger with appropriate log level.
// Set APLEDGER_DEBUG=1 to enable debug logging, which traces every APDU,
// chunk request and parser outcome (never key material).
func InitLogger(w io.Writer) {
	level := slog.LevelInfo

	if os.Getenv("APLEDGER_DEBUG") != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove time attribute for cleaner CLI output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})

	Logger = slog.New(handler)
}

// Debug logs a debug message (only shown when APLEDGER_DEBUG is set)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
