package explorer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	primaryColor = lipgloss.Color("#3b82f6")
	accentColor  = lipgloss.Color("#10b981")
	mutedColor   = lipgloss.Color("#94a3b8")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	filterStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)
)

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	m.sched.Flush()
	_, h := m.chartSize()
	body := m.fiber.Frame()
	if body == "" {
		body = m.placeholder()
	}
	body = fit(body, h)

	return m.renderHeader() + "\n" + body + "\n" + m.renderStatus() + "\n" + m.help.View(m.keys)
}

func (m Model) placeholder() string {
	snap := m.chart.Snapshot()
	if snap.Loading || snap.Dataset == nil {
		return statusStyle.Render(m.spinner.View() + " loading")
	}
	return statusStyle.Render("no data")
}

func (m Model) renderHeader() string {
	v := m.views[m.view]
	title := titleStyle.Render(v.Name)
	tabs := tabStyle.Render(fmt.Sprintf(" %s · %d/%d", v.Options.Kind, m.view+1, len(m.views)))
	return lipgloss.NewStyle().MaxWidth(m.width).Render(title + tabs)
}

func (m Model) renderStatus() string {
	parts := []string{m.chart.Status()}
	if f := m.store.Filter(); len(f.Clauses) > 0 {
		clauses := make([]string, len(f.Clauses))
		for i, c := range f.Clauses {
			clauses[i] = c.String()
		}
		parts = append(parts, filterStyle.Render("filter "+strings.Join(clauses, "; ")))
	}
	if m.chart.Snapshot().Loading {
		parts = append(parts, m.spinner.View())
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(statusStyle.Render(strings.Join(parts, "  ")))
}

// fit pads or cuts s to exactly n lines
func fit(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
