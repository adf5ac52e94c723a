// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// historySize is how many accepted screens are kept under the device.
const historySize = 6

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	screenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Width(40).
			Align(lipgloss.Center)

	promptScreenStyle = screenStyle.
				BorderForeground(lipgloss.Color("214"))

	topStyle = lipgloss.NewStyle().Bold(true)

	bottomStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// View renders the device.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("apledgerd - Pocket"))
	b.WriteString("\n")

	if p, ok := m.Pending(); ok {
		b.WriteString(promptScreenStyle.Render(topStyle.Render(p.Title) + "\n" + bottomStyle.Render(p.Body)))
		b.WriteString("\n")
		if m.pending.Confirm {
			b.WriteString(helpStyle.Render("→/space: approve • ←: reject • q: quit"))
		} else {
			b.WriteString(helpStyle.Render("→/space: next • ←: reject • q: quit"))
		}
	} else {
		b.WriteString(screenStyle.Render(topStyle.Render(m.label.Top) + "\n" + bottomStyle.Render(m.label.Bottom)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("←/→: move • space: select • q: quit"))
	}
	b.WriteString("\n")

	if len(m.history) > 0 {
		b.WriteString("\n")
		for _, s := range m.history {
			b.WriteString(historyStyle.Render("  " + s.String()))
			b.WriteString("\n")
		}
	}
	return b.String()
}
