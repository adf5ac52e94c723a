// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package transport

import "errors"

// Sentinel errors for emulator connection failures.
var (
	// ErrAlreadyConnected is returned when another client is already connected.
	ErrAlreadyConnected = errors.New("another client is already connected")

	// ErrNotConnected is returned when Exchange is called before Dial.
	ErrNotConnected = errors.New("not connected")

	// ErrServer is wrapped by errors the emulator reports in an error message.
	ErrServer = errors.New("emulator error")
)
