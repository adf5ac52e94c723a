// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package automation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long Watch waits for writes to settle.
const DefaultReloadDelay = 500 * time.Millisecond

// Watch reloads the rules file at path into p whenever it changes, until
// ctx is cancelled. A file that fails to parse leaves the previous rules
// in place.
func Watch(ctx context.Context, path string, p *Prompter, delay time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch automation directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(delay, func() {
					rules, err := LoadRules(path)
					if err != nil {
						logger.Warn("keeping previous automation rules", "error", err)
						return
					}
					p.SetRules(rules)
					logger.Info("automation rules reloaded", "rules", len(rules.Rules))
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("automation watcher error", "error", err)
			}
		}
	}()
	return nil
}
