// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package prompt defines the blocking prompts the device shows while it
// parses a transaction.
package prompt

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRejected is returned when the user rejects a prompt.
var ErrRejected = errors.New("rejected by user")

// Screen is one titled page of information. The user steps past it or
// rejects it.
type Screen struct {
	Title string
	Body  string
}

func (s Screen) String() string {
	return fmt.Sprintf("%s: %s", s.Title, s.Body)
}

// Prompter shows screens and blocks until the user decides.
// Both methods return ErrRejected (possibly wrapped) on rejection.
type Prompter interface {
	Show(s Screen) error
	Confirm(question string) error
}

// ConfirmScreenTitle is the title recorded for Confirm calls.
const ConfirmScreenTitle = "Confirm"

// Recorder is a Prompter that accepts everything and keeps a transcript.
// RejectAt rejects the screen with that title; RejectConfirm rejects the
// final confirmation.
type Recorder struct {
	mu            sync.Mutex
	Screens       []Screen
	RejectAt      string
	RejectConfirm bool
}

func (r *Recorder) Show(s Screen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Screens = append(r.Screens, s)
	if r.RejectAt != "" && s.Title == r.RejectAt {
		return fmt.Errorf("%w at %q", ErrRejected, s.Title)
	}
	return nil
}

func (r *Recorder) Confirm(question string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Screens = append(r.Screens, Screen{Title: ConfirmScreenTitle, Body: question})
	if r.RejectConfirm {
		return ErrRejected
	}
	return nil
}

// Transcript returns a copy of the screens shown so far.
func (r *Recorder) Transcript() []Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Screen(nil), r.Screens...)
}

// Clear drops the transcript.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Screens = nil
}
