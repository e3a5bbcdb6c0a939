// ABOUTME: Pipeline graph view
// ABOUTME: Shows the Graphviz source of the deal pipeline with line scrolling
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

func (m Model) openGraph() (tea.Model, tea.Cmd) {
	m.viewMode = ViewGraph
	m.graphDOT = ""
	m.graphScroll = 0
	m.loading = true

	ctx, deals := m.ctx, m.set.Deals
	return m, func() tea.Msg {
		if err := deals.List(ctx); err != nil {
			return graphMsg{err: err}
		}
		dot, err := viz.RenderPipeline(ctx, views.GroupByStage(deals.Items()), viz.FormatDOT)
		return graphMsg{dot: dot, err: err}
	}
}

func (m Model) renderGraphView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PIPELINE GRAPH"))
	s.WriteString("\n\n")

	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.graphDOT == "":
		s.WriteString("Generating graph...")
	default:
		lines := strings.Split(m.graphDOT, "\n")
		start := min(m.graphScroll, len(lines)-1)
		end := min(start+max(m.height-8, 5), len(lines))
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(strings.Join(lines[start:end], "\n")))
	}

	s.WriteString("\n")
	help := []string{"↑/↓: scroll", "esc: back", "q: quit"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.viewMode = ViewList
		m.graphDOT = ""
		m.err = nil
	case "up", "k":
		if m.graphScroll > 0 {
			m.graphScroll--
		}
	case "down", "j":
		if m.graphScroll < strings.Count(m.graphDOT, "\n") {
			m.graphScroll++
		}
	}
	return m, nil
}
