// ABOUTME: Detail view for the selected record
// ABOUTME: Deals render as markdown, other records as labelled fields with related items
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/views"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(16)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DETAIL VIEW"))
	s.WriteString("\n\n")

	id, _, ok := m.selected()
	if !ok {
		s.WriteString("Nothing selected\n")
		s.WriteString(m.renderDetailHelp())
		return s.String()
	}

	switch m.page {
	case PageContacts:
		c, _ := m.set.Contacts.Get(id)
		s.WriteString(m.renderField("Name", c.FullName()))
		s.WriteString(m.renderField("Email", c.Email))
		s.WriteString(m.renderField("Phone", c.Phone))
		s.WriteString(m.renderField("Company", c.Company))
		s.WriteString(m.renderField("Title", c.Title))
		if c.CreatedAt.Present() {
			s.WriteString(m.renderField("Created", c.CreatedAt.Local().Format("Jan 2, 2006")))
		}

		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Bold(true).Render("DEALS"))
		s.WriteString("\n")
		found := false
		for _, d := range m.set.Deals.Items() {
			if d.ContactID == id {
				found = true
				s.WriteString(fmt.Sprintf("  • %s (%s, %s)\n", d.Title, d.Stage.Label(), views.FormatCurrency(d.Value)))
			}
		}
		if !found {
			s.WriteString("  None loaded\n")
		}

	case PageDeals:
		d, _ := m.set.Deals.Get(id)
		s.WriteString(RenderMarkdown(DealMarkdown(d), m.width-4, DarkStyle))
		s.WriteString("\n")

	case PageTasks:
		t, _ := m.set.Tasks.Get(id)
		s.WriteString(m.renderField("Title", t.Title))
		s.WriteString(m.renderField("Status", string(t.Status)))
		s.WriteString(m.renderField("Priority", string(t.Priority)))
		due := t.DueDate.String()
		if views.IsOverdue(t, m.now()) {
			due = overdueStyle.Render(due + " (overdue)")
		}
		s.WriteString(m.renderField("Due", due))
		s.WriteString(m.renderField("Assigned to", t.AssignedToName))
		if t.Description != "" {
			s.WriteString("\n" + t.Description + "\n")
		}

	case PageActivities:
		a, _ := m.set.Activities.Get(id)
		s.WriteString(m.renderField("Type", string(a.Type)))
		s.WriteString(m.renderField("Subject", a.Subject))
		s.WriteString(m.renderField("Contact", a.ContactName()))
		s.WriteString(m.renderField("Deal", a.DealTitle))
		if a.Duration != nil {
			s.WriteString(m.renderField("Duration", fmt.Sprintf("%d min", *a.Duration)))
		}
		if a.ScheduledAt.Present() {
			s.WriteString(m.renderField("Scheduled", a.ScheduledAt.Local().Format("Jan 2, 2006 15:04")))
		}
		if a.Description != "" {
			s.WriteString("\n" + a.Description + "\n")
		}
	}

	s.WriteString(m.renderDetailHelp())
	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s %s\n", fieldLabelStyle.Render(label+":"), fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{"esc: back", "e: edit", "d: delete", "q: quit"}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.viewMode = ViewList
	case "e":
		return m.openEditor(true)
	case "d":
		if id, label, ok := m.selected(); ok {
			m.deleteID = id
			m.deleteLabel = label
			m.viewMode = ViewConfirmDelete
		}
	}
	return m, nil
}
