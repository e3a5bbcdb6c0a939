// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Asks before deleting the selected record of the current page
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

var pageNouns = map[Page]string{
	PageContacts:   "contact",
	PageDeals:      "deal",
	PageTasks:      "task",
	PageActivities: "activity",
}

func (m Model) renderConfirmDeleteView() string {
	noun := pageNouns[m.page]

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠"),
		"",
		fmt.Sprintf("Are you sure you want to delete this %s?", noun),
		fmt.Sprintf("\n%s: %s\n", strings.ToUpper(noun), m.deleteLabel),
		"\nThis action cannot be undone!",
		"",
		lipgloss.JoinHorizontal(
			lipgloss.Left,
			confirmButtonStyle.Render("Yes, Delete (y)"),
			cancelButtonStyle.Render("Cancel (n/esc)"),
		),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, confirmBoxStyle.Render(content))
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.viewMode = ViewList
		m.loading = true
		return m, m.deleteSelected()
	case "n", "N", "esc":
		m.viewMode = ViewList
	}
	return m, nil
}

func (m Model) deleteSelected() tea.Cmd {
	ctx, id, page := m.ctx, m.deleteID, m.page
	var del func(context.Context, int64) error
	switch page {
	case PageContacts:
		del = m.set.Contacts.Delete
	case PageDeals:
		del = m.set.Deals.Delete
	case PageTasks:
		del = m.set.Tasks.Delete
	case PageActivities:
		del = m.set.Activities.Delete
	default:
		return nil
	}
	verb := fmt.Sprintf("Deleted %s: %s", pageNouns[page], m.deleteLabel)
	return func() tea.Msg {
		return savedMsg{page: page, verb: verb, err: del(ctx, id)}
	}
}
