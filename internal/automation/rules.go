// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package automation answers device prompts from a rules file, so the
// emulator can run headless in scripts and CI.
//
// A rules file looks like:
//
//	default: reject
//	rules:
//	  - title: Amount
//	    body: '^[0-9]+\.[0-9]+$'
//	    action: accept
//	  - title: Confirm
//	    action: accept
//
// Rules are tried in order; the first whose title and body match decides.
// An empty title or body matches anything. Bodies are regular expressions.
package automation

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/apledger/internal/prompt"
)

// Action is the decision for a screen.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func (a Action) valid() bool {
	return a == ActionAccept || a == ActionReject
}

// Rule matches screens by title and body.
type Rule struct {
	Title  string `yaml:"title"`
	Body   string `yaml:"body"`
	Action Action `yaml:"action"`

	body *regexp.Regexp
}

func (r *Rule) matches(s prompt.Screen) bool {
	if r.Title != "" && r.Title != s.Title {
		return false
	}
	return r.body == nil || r.body.MatchString(s.Body)
}

// Rules is a parsed rules file.
type Rules struct {
	Default Action `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// RejectAll rejects every screen.
func RejectAll() *Rules {
	return &Rules{Default: ActionReject}
}

// AcceptAll accepts every screen.
func AcceptAll() *Rules {
	return &Rules{Default: ActionAccept}
}

// ParseRules parses and validates a rules file. A missing default rejects.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse automation rules: %w", err)
	}
	if r.Default == "" {
		r.Default = ActionReject
	}
	if !r.Default.valid() {
		return nil, fmt.Errorf("invalid default action '%s' (must be %s or %s)", r.Default, ActionAccept, ActionReject)
	}
	for i := range r.Rules {
		rule := &r.Rules[i]
		if !rule.Action.valid() {
			return nil, fmt.Errorf("rule %d: invalid action '%s'", i+1, rule.Action)
		}
		if rule.Body != "" {
			re, err := regexp.Compile(rule.Body)
			if err != nil {
				return nil, fmt.Errorf("rule %d: invalid body pattern: %w", i+1, err)
			}
			rule.body = re
		}
	}
	return &r, nil
}

// LoadRules reads and parses a rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read automation rules: %w", err)
	}
	return ParseRules(data)
}

// Decide returns the action for s.
func (r *Rules) Decide(s prompt.Screen) Action {
	for i := range r.Rules {
		if r.Rules[i].matches(s) {
			return r.Rules[i].Action
		}
	}
	return r.Default
}
