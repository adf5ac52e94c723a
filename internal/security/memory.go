// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package security applies process-level protections for seed material.
package security

import (
	"fmt"
	"os"
	"syscall"
)

// LockMemory locks current and future pages so the seed never reaches swap.
func LockMemory() error {
	if err := syscall.Mlockall(syscall.MCL_CURRENT | syscall.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall failed: %w (grant it with: sudo setcap cap_ipc_lock+ep %s)", err, os.Args[0])
	}
	return nil
}

// DisableCoreDumps sets RLIMIT_CORE to zero.
func DisableCoreDumps() error {
	rlimit := syscall.Rlimit{Cur: 0, Max: 0}
	if err := syscall.Setrlimit(syscall.RLIMIT_CORE, &rlimit); err != nil {
		return fmt.Errorf("failed to disable core dumps: %w", err)
	}
	return nil
}

// Report says which protections Harden applied.
type Report struct {
	CoreDumpsDisabled bool
	MemoryLocked      bool
	Errors            []error
}

// Harden disables core dumps and, unless APLEDGER_NO_MLOCK is set, locks
// memory. Failures are collected, not fatal.
func Harden() Report {
	var r Report
	if err := DisableCoreDumps(); err != nil {
		r.Errors = append(r.Errors, err)
	} else {
		r.CoreDumpsDisabled = true
	}
	if os.Getenv("APLEDGER_NO_MLOCK") != "" {
		return r
	}
	if err := LockMemory(); err != nil {
		r.Errors = append(r.Errors, err)
	} else {
		r.MemoryLocked = true
	}
	return r
}
