// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aplane-algo/apledger/internal/app"
	"github.com/aplane-algo/apledger/internal/automation"
	"github.com/aplane-algo/apledger/internal/menu"
	"github.com/aplane-algo/apledger/internal/prompt"
	"github.com/aplane-algo/apledger/internal/ui"
	"github.com/aplane-algo/apledger/internal/util"
)

// screen is the emulated display: the terminal UI or the headless
// automation rules.
type screen interface {
	prompter() prompt.Prompter
	menu(menu.Label)
	// run blocks until the display is closed or the device stops.
	run(ctx context.Context, cancel context.CancelFunc, dev *app.Device)
}

func newScreen(ctx context.Context, config util.Config) (screen, error) {
	if config.Display == util.DisplayHeadless {
		return newHeadless(ctx, config)
	}
	return newTerminal(), nil
}

type headless struct {
	p *automation.Prompter
}

func newHeadless(ctx context.Context, config util.Config) (*headless, error) {
	if config.AutomationFile == "" {
		util.Logger.Warn("no automation_file configured, every prompt will be rejected")
		return &headless{p: automation.NewPrompter(nil, util.Logger)}, nil
	}

	rules, err := automation.LoadRules(config.AutomationFile)
	if err != nil {
		return nil, err
	}
	p := automation.NewPrompter(rules, util.Logger)
	if err := automation.Watch(ctx, config.AutomationFile, p, automation.DefaultReloadDelay, util.Logger); err != nil {
		util.Logger.Warn("automation rules will not reload", "error", err)
	}
	fmt.Printf("Automation rules: %s (%d rules, default %s)\n", config.AutomationFile, len(rules.Rules), rules.Default)
	return &headless{p: p}, nil
}

func (h *headless) prompter() prompt.Prompter { return h.p }

func (h *headless) menu(l menu.Label) {
	util.Debug("menu", "top", l.Top, "bottom", l.Bottom)
}

func (h *headless) run(ctx context.Context, _ context.CancelFunc, dev *app.Device) {
	select {
	case <-ctx.Done():
	case <-dev.Done():
	}
}

type terminal struct {
	program *tea.Program
	done    chan struct{}
	p       *ui.Prompter
	press   chan menu.Button
	labels  chan menu.Label
}

func newTerminal() *terminal {
	t := &terminal{
		done:  make(chan struct{}),
		press:  make(chan menu.Button, 8),
		labels: make(chan menu.Label, 16),
	}
	model := ui.NewModel(func(b menu.Button) { t.press <- b })
	t.program = tea.NewProgram(model, tea.WithAltScreen())
	t.p = ui.NewPrompter(t.program.Send, t.done)
	return t
}

func (t *terminal) prompter() prompt.Prompter { return t.p }

func (t *terminal) menu(l menu.Label) {
	select {
	case t.labels <- l:
	default:
		util.Debug("menu redraw dropped", "top", l.Top)
	}
}

func (t *terminal) run(ctx context.Context, cancel context.CancelFunc, dev *app.Device) {
	go func() {
		for {
			select {
			case b := <-t.press:
				if err := dev.Press(ctx, b); err != nil {
					return
				}
			case l := <-t.labels:
				t.program.Send(ui.MenuMsg{Label: l})
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		select {
		case <-dev.Done():
		case <-ctx.Done():
		}
		t.program.Send(ui.ExitMsg{})
	}()

	if _, err := t.program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: display: %v\n", err)
	}
	close(t.done)
	cancel()
}
