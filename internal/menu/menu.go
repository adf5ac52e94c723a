// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package menu implements the device's two button menus: the idle menu
// shown while no operation is in progress and the busy menu shown while
// one is.
package menu

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Button is a button event. Both means the two buttons were pressed
// together.
type Button int

const (
	Left Button = iota
	Right
	Both
)

func (b Button) String() string {
	switch b {
	case Left:
		return "left"
	case Right:
		return "right"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Button(%d)", int(b))
	}
}

// ParseButton parses "left", "right" or "both".
func ParseButton(s string) (Button, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	case "both", "b":
		return Both, nil
	default:
		return 0, fmt.Errorf("unknown button %q", s)
	}
}

// Label is what the screen shows for the current menu entry.
type Label struct {
	Top    string
	Bottom string
}

// Settings are the volatile device settings.
type Settings struct {
	blindSigning atomic.Bool
}

// NewSettings returns settings with blind signing set to blind.
func NewSettings(blind bool) *Settings {
	s := &Settings{}
	s.blindSigning.Store(blind)
	return s
}

func (s *Settings) BlindSigning() bool { return s.blindSigning.Load() }

func (s *Settings) SetBlindSigning(v bool) { s.blindSigning.Store(v) }

// Action is the effect of a button press.
type Action int

const (
	None Action = iota
	// Exit ends the device loop.
	Exit
	// Cancel abandons the operation in progress.
	Cancel
)

type idleEntry int

const (
	entryMain idleEntry = iota
	entryVersion
	entryBlindSigning
	entryQuit
	idleEntries
)

// Idle is the root menu.
type Idle struct {
	entry    idleEntry
	version  string
	settings *Settings
}

// NewIdle returns the idle menu on its main entry.
func NewIdle(version string, settings *Settings) *Idle {
	return &Idle{version: version, settings: settings}
}

// Press moves through the menu; Both on Quit returns Exit and Both on the
// blind signing entry toggles the setting.
func (m *Idle) Press(b Button) Action {
	switch b {
	case Left:
		m.entry = (m.entry + idleEntries - 1) % idleEntries
	case Right:
		m.entry = (m.entry + 1) % idleEntries
	case Both:
		switch m.entry {
		case entryBlindSigning:
			m.settings.SetBlindSigning(!m.settings.BlindSigning())
		case entryQuit:
			return Exit
		}
	}
	return None
}

func (m *Idle) Label() Label {
	switch m.entry {
	case entryVersion:
		return Label{Top: "Version", Bottom: m.version}
	case entryBlindSigning:
		state := "Disabled"
		if m.settings.BlindSigning() {
			state = "Enabled"
		}
		return Label{Top: "Blind Signing", Bottom: state}
	case entryQuit:
		return Label{Top: "Quit"}
	default:
		return Label{Top: "Pocket", Bottom: "is ready"}
	}
}

// Busy is shown while an operation is in progress.
type Busy struct {
	cancel bool
}

// Press moves between Working and Cancel; Both on Cancel returns Cancel.
func (m *Busy) Press(b Button) Action {
	switch b {
	case Left:
		m.cancel = false
	case Right:
		m.cancel = true
	case Both:
		if m.cancel {
			return Cancel
		}
	}
	return None
}

// Reset returns the menu to Working.
func (m *Busy) Reset() { m.cancel = false }

func (m *Busy) Label() Label {
	if m.cancel {
		return Label{Top: "Cancel"}
	}
	return Label{Top: "Working..."}
}
