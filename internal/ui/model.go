// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package ui renders the emulated device screen in the terminal and turns
// key presses into button events.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aplane-algo/apledger/internal/menu"
	"github.com/aplane-algo/apledger/internal/prompt"
)

// MenuMsg redraws the menu label shown while no prompt is open.
type MenuMsg struct {
	Label menu.Label
}

// PromptMsg opens a prompt. The decision is sent on Reply.
type PromptMsg struct {
	Screen  prompt.Screen
	Confirm bool
	Reply   chan<- error
}

// ExitMsg ends the program, e.g. when the device loop stops.
type ExitMsg struct{}

// Model is the bubbletea model of the device screen.
type Model struct {
	label   menu.Label
	pending *PromptMsg
	history []prompt.Screen

	press func(menu.Button)
	width int

	quitting bool
}

// NewModel returns a model that delivers menu button presses to press.
// press is called off the bubbletea goroutine.
func NewModel(press func(menu.Button)) Model {
	return Model{press: press}
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles key presses and device messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case MenuMsg:
		m.label = msg.Label
		return m, nil

	case PromptMsg:
		if m.pending != nil {
			m.pending.Reply <- fmt.Errorf("%w: superseded", prompt.ErrRejected)
		}
		m.pending = &msg
		return m, nil

	case ExitMsg:
		return m.quit()
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return m.quit()
	}

	b, ok := buttonFor(key)
	if !ok {
		return m, nil
	}

	if m.pending != nil {
		return m.answer(b), nil
	}
	if m.press == nil {
		return m, nil
	}
	press := m.press
	return m, func() tea.Msg {
		press(b)
		return nil
	}
}

// answer resolves the open prompt: Left rejects, anything else accepts.
func (m Model) answer(b menu.Button) Model {
	p := m.pending
	m.pending = nil
	if b == menu.Left {
		p.Reply <- fmt.Errorf("%w at %q", prompt.ErrRejected, p.Screen.Title)
		return m
	}
	m.history = append(m.history, p.Screen)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
	p.Reply <- nil
	return m
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.pending != nil {
		m.pending.Reply <- fmt.Errorf("%w: screen closed", prompt.ErrRejected)
		m.pending = nil
	}
	m.quitting = true
	return m, tea.Quit
}

func buttonFor(key string) (menu.Button, bool) {
	switch key {
	case "left", "h":
		return menu.Left, true
	case "right", "l":
		return menu.Right, true
	case " ", "enter", "down", "b":
		return menu.Both, true
	}
	return 0, false
}

// Pending returns the open prompt's screen, if any.
func (m Model) Pending() (prompt.Screen, bool) {
	if m.pending == nil {
		return prompt.Screen{}, false
	}
	return m.pending.Screen, true
}
