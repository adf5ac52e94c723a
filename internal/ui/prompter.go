// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aplane-algo/apledger/internal/prompt"
)

// Prompter shows prompts on the terminal screen and waits for the user.
type Prompter struct {
	send func(tea.Msg)
	done <-chan struct{}
}

// NewPrompter returns a Prompter that delivers prompts with send, usually
// (*tea.Program).Send. Prompts still open when done closes are rejected.
func NewPrompter(send func(tea.Msg), done <-chan struct{}) *Prompter {
	return &Prompter{send: send, done: done}
}

func (p *Prompter) Show(s prompt.Screen) error {
	return p.ask(s, false)
}

func (p *Prompter) Confirm(question string) error {
	return p.ask(prompt.Screen{Title: prompt.ConfirmScreenTitle, Body: question}, true)
}

func (p *Prompter) ask(s prompt.Screen, confirm bool) error {
	reply := make(chan error, 1)
	p.send(PromptMsg{Screen: s, Confirm: confirm, Reply: reply})
	select {
	case err := <-reply:
		return err
	case <-p.done:
		return fmt.Errorf("%w: screen closed", prompt.ErrRejected)
	}
}
