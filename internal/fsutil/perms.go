// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package fsutil creates files in the apledger data directory.
// The data directory may hold a mnemonic file, so everything in it is
// owner-only (0700 dirs, 0600 files).
package fsutil

import (
	"fmt"
	"os"
)

// DataDirPerm is the permission mode for the data directory.
const DataDirPerm os.FileMode = 0700

// DataFilePerm is the permission mode for files in the data directory.
const DataFilePerm os.FileMode = 0600

// MkdirAll creates a directory and all parents with DataDirPerm.
// Unlike os.MkdirAll, this explicitly sets permissions after creation to
// bypass umask restrictions.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, DataDirPerm); err != nil {
		return err
	}
	return os.Chmod(path, DataDirPerm)
}

// OpenAppend opens path for appending with DataFilePerm, creating it if
// needed. Caller is responsible for closing it.
func OpenAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, DataFilePerm) // #nosec G304 - path is inside the data directory
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(DataFilePerm); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return f, nil
}
