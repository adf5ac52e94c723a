// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package menu

import "testing"

func TestIdleNavigation(t *testing.T) {
	m := NewIdle("0.1.0", NewSettings(false))

	tests := []struct {
		press Button
		want  Label
	}{
		{Right, Label{Top: "Version", Bottom: "0.1.0"}},
		{Right, Label{Top: "Blind Signing", Bottom: "Disabled"}},
		{Right, Label{Top: "Quit"}},
		{Right, Label{Top: "Pocket", Bottom: "is ready"}},
		{Left, Label{Top: "Quit"}},
		{Left, Label{Top: "Blind Signing", Bottom: "Disabled"}},
	}
	for i, tt := range tests {
		if act := m.Press(tt.press); act != None {
			t.Fatalf("step %d: action = %v", i, act)
		}
		if got := m.Label(); got != tt.want {
			t.Errorf("step %d: label = %+v, want %+v", i, got, tt.want)
		}
	}
}

func TestIdleToggleAndExit(t *testing.T) {
	settings := NewSettings(false)
	m := NewIdle("0.1.0", settings)

	if act := m.Press(Both); act != None {
		t.Errorf("Both on main entry = %v, want None", act)
	}

	m.Press(Right)
	m.Press(Right)
	m.Press(Both)
	if !settings.BlindSigning() {
		t.Fatal("blind signing not enabled")
	}
	if got := m.Label().Bottom; got != "Enabled" {
		t.Errorf("label bottom = %q", got)
	}
	m.Press(Both)
	if settings.BlindSigning() {
		t.Fatal("blind signing not disabled")
	}

	m.Press(Right)
	if act := m.Press(Both); act != Exit {
		t.Errorf("Both on Quit = %v, want Exit", act)
	}
}

func TestBusy(t *testing.T) {
	var m Busy
	if act := m.Press(Both); act != None {
		t.Errorf("Both on Working = %v", act)
	}
	m.Press(Right)
	if m.Label().Top != "Cancel" {
		t.Errorf("label = %+v", m.Label())
	}
	if act := m.Press(Both); act != Cancel {
		t.Errorf("Both on Cancel = %v", act)
	}
	m.Reset()
	if m.Label().Top != "Working..." {
		t.Errorf("after reset label = %+v", m.Label())
	}
}

func TestParseButton(t *testing.T) {
	for in, want := range map[string]Button{"left": Left, "R": Right, " both ": Both} {
		got, err := ParseButton(in)
		if err != nil || got != want {
			t.Errorf("ParseButton(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseButton("middle"); err == nil {
		t.Error("expected error")
	}
}
