// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package automation

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/aplane-algo/apledger/internal/prompt"
)

// Prompter answers prompts from its current rules.
type Prompter struct {
	mu    sync.RWMutex
	rules *Rules
	log   *slog.Logger
}

// NewPrompter returns a Prompter using rules (nil rejects everything).
func NewPrompter(rules *Rules, logger *slog.Logger) *Prompter {
	if rules == nil {
		rules = RejectAll()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prompter{rules: rules, log: logger}
}

// SetRules replaces the rules.
func (p *Prompter) SetRules(r *Rules) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = r
}

func (p *Prompter) Show(s prompt.Screen) error {
	return p.decide(s)
}

func (p *Prompter) Confirm(question string) error {
	return p.decide(prompt.Screen{Title: prompt.ConfirmScreenTitle, Body: question})
}

func (p *Prompter) decide(s prompt.Screen) error {
	p.mu.RLock()
	action := p.rules.Decide(s)
	p.mu.RUnlock()

	p.log.Info("screen", "title", s.Title, "body", s.Body, "action", string(action))
	if action == ActionReject {
		return fmt.Errorf("%w at %q by automation", prompt.ErrRejected, s.Title)
	}
	return nil
}
