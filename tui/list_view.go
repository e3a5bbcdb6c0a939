// ABOUTME: Page tabs, tables and the pipeline board of the signed-in app
// ABOUTME: Handles navigation, search, task views and the keys that open dialogs
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1).
			Width(22)

	columnTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("CRMDESK"))
	if user := m.session.User(); user != nil {
		s.WriteString(helpStyle.UnsetMarginTop().Render("  " + user.Name))
	}
	s.WriteString("\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.page {
	case PageDashboard:
		s.WriteString(m.renderDashboard())
	case PageContacts:
		s.WriteString(m.search.View())
		s.WriteString("\n")
		s.WriteString(m.renderContactsTable())
	case PageDeals:
		s.WriteString(m.renderPipelineBoard())
	case PageTasks:
		s.WriteString(m.renderTaskTabs())
		s.WriteString("\n")
		s.WriteString(m.renderTasksTable())
	case PageActivities:
		s.WriteString(m.renderActivitiesTable())
	}
	s.WriteString("\n")

	s.WriteString(m.renderStatusLine())
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string
	for _, p := range pages {
		if p == m.page {
			rendered = append(rendered, tabActiveStyle.Render(p.String()))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(p.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderDashboard() string {
	if m.dashboard == nil {
		if m.err != nil {
			return ""
		}
		return "Loading dashboard..."
	}
	return boxStyle.Render(strings.TrimRight(viz.RenderDashboard(m.dashboard), "\n"))
}

func (m Model) newTable(columns []table.Column, rows []table.Row) string {
	if len(rows) == 0 {
		if m.loading {
			return "Loading..."
		}
		return helpStyle.UnsetMarginTop().Render("Nothing here yet. Press n to add one.")
	}
	height := m.height - 12
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) renderContactsTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Email", Width: 28},
		{Title: "Phone", Width: 16},
		{Title: "Company", Width: 20},
	}
	var rows []table.Row
	for _, c := range m.visibleContacts() {
		rows = append(rows, table.Row{c.FullName(), c.Email, c.Phone, c.Company})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderPipelineBoard() string {
	pipeline := views.GroupByStage(m.set.Deals.Items())
	selected, _ := pick(m.visibleDeals(), m.selectedRow)

	var cols []string
	for _, b := range pipeline {
		var col strings.Builder
		col.WriteString(columnTitleStyle.Render(fmt.Sprintf("%s (%d)", b.Stage.Label(), len(b.Deals))))
		col.WriteString("\n")
		col.WriteString(views.FormatCurrency(b.Value()))
		col.WriteString("\n\n")
		for _, d := range b.Deals {
			card := fmt.Sprintf("%s\n%s", d.Title, views.FormatCurrency(d.Value))
			if name := d.ContactName(); name != "" {
				card += "\n" + name
			}
			if d.ID == selected.ID {
				card = selectedStyle.Render(card)
			}
			col.WriteString(card + "\n\n")
		}
		cols = append(cols, columnStyle.Render(col.String()))
	}

	board := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	return board + fmt.Sprintf("\nTotal: %d deal(s) - %s\n", pipeline.Total(), views.FormatCurrency(pipeline.Value()))
}

func (m Model) renderTaskTabs() string {
	counts := views.CountTasks(m.set.Tasks.Items(), m.now())
	var rendered []string
	for _, v := range views.TaskViews {
		label := fmt.Sprintf("%s (%d)", v, counts.Of(v))
		if v == m.taskView {
			rendered = append(rendered, tabActiveStyle.Render(label))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTasksTable() string {
	columns := []table.Column{
		{Title: "", Width: 3},
		{Title: "Title", Width: 30},
		{Title: "Priority", Width: 8},
		{Title: "Status", Width: 12},
		{Title: "Due", Width: 14},
		{Title: "Assignee", Width: 16},
	}
	now := m.now()
	var rows []table.Row
	for _, t := range m.visibleTasks() {
		mark := "[ ]"
		if t.Status == models.StatusCompleted {
			mark = "[x]"
		}
		due := t.DueDate.String()
		if views.IsOverdue(t, now) {
			due += " ⚠"
		}
		rows = append(rows, table.Row{mark, t.Title, string(t.Priority), string(t.Status), due, t.AssignedToName})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderActivitiesTable() string {
	columns := []table.Column{
		{Title: "Type", Width: 8},
		{Title: "Subject", Width: 30},
		{Title: "Contact", Width: 20},
		{Title: "Deal", Width: 20},
		{Title: "When", Width: 14},
	}
	var rows []table.Row
	for _, a := range m.visibleActivities() {
		when := ""
		if a.CreatedAt.Present() {
			when = a.CreatedAt.Local().Format("Jan 2 15:04")
		}
		rows = append(rows, table.Row{string(a.Type), a.Subject, a.ContactName(), a.DealTitle, when})
	}
	return m.newTable(columns, rows)
}

func (m Model) renderStatusLine() string {
	var lines []string
	if m.stale() {
		lines = append(lines, overdueStyle.Render("⚠ Showing cached data, the last refresh failed (r to retry)"))
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		lines = append(lines, statusStyle.Render(m.status))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) renderListHelp() string {
	help := []string{"tab: switch page", "r: refresh"}
	switch m.page {
	case PageDashboard:
		help = append(help, "g: pipeline graph")
	case PageContacts:
		help = append(help, "/: search", "n: new", "e: edit", "d: delete", "enter: view")
	case PageDeals:
		help = append(help, "←/→ ↑/↓: move", "n: new", "e: edit", "d: delete", "enter: view", "g: graph")
	case PageTasks:
		help = append(help, "v: switch view", "space: toggle done", "n: new", "e: edit", "d: delete")
	case PageActivities:
		help = append(help, "n: log activity", "e: edit", "d: delete", "enter: view")
	}
	help = append(help, "L: logout", "q: quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		var cmd tea.Cmd
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
		case "enter":
			m.searching = false
			m.search.Blur()
		default:
			m.search, cmd = m.search.Update(msg)
		}
		m.selectedRow = 0
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "tab":
		return m.switchPage(pageOffset(m.page, 1))
	case "shift+tab":
		return m.switchPage(pageOffset(m.page, -1))
	case "1", "2", "3", "4", "5":
		return m.switchPage(pages[msg.String()[0]-'1'])

	case "up", "k", "left", "h":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j", "right", "l":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}

	case "r":
		m.loading = true
		m.err = nil
		return m, m.loadPage(m.page)

	case "/":
		if m.page == PageContacts {
			m.searching = true
			m.search.Focus()
			return m, textinput.Blink
		}

	case "v":
		if m.page == PageTasks {
			m.taskView = nextTaskView(m.taskView)
			m.selectedRow = 0
		}

	case " ":
		if m.page == PageTasks {
			return m.toggleTask()
		}

	case "n":
		return m.openEditor(false)
	case "e":
		return m.openEditor(true)

	case "d":
		if id, label, ok := m.selected(); ok {
			m.deleteID = id
			m.deleteLabel = label
			m.viewMode = ViewConfirmDelete
		}

	case "enter":
		if _, _, ok := m.selected(); ok {
			m.viewMode = ViewDetail
		}

	case "g":
		if m.page == PageDeals || m.page == PageDashboard {
			return m.openGraph()
		}

	case "L":
		if err := m.session.Logout(); err != nil {
			m.logger.Error("logout failed", "err", err)
		}
		m.viewMode = ViewLogin
		m.login = newLoginForm()
		m.login.message = "Logged out"
		return m, textinput.Blink
	}

	return m, nil
}

func (m Model) switchPage(p Page) (tea.Model, tea.Cmd) {
	m.page = p
	m.selectedRow = 0
	m.err = nil
	m.status = ""
	m.loading = true
	return m, m.loadPage(p)
}

func pageOffset(p Page, delta int) Page {
	n := len(pages)
	return pages[((int(p)+delta)%n+n)%n]
}

func nextTaskView(v views.TaskView) views.TaskView {
	for i, known := range views.TaskViews {
		if known == v {
			return views.TaskViews[(i+1)%len(views.TaskViews)]
		}
	}
	return views.ViewAll
}

func (m Model) toggleTask() (tea.Model, tea.Cmd) {
	t, ok := pick(m.visibleTasks(), m.selectedRow)
	if !ok {
		return m, nil
	}
	ctx, tasks := m.ctx, m.set.Tasks
	patch := models.StatusPatch{Status: t.ToggledStatus()}
	m.loading = true
	return m, func() tea.Msg {
		err := tasks.Update(ctx, t.ID, patch)
		return savedMsg{page: PageTasks, verb: fmt.Sprintf("Task %q is now %s", t.Title, patch.Status), err: err}
	}
}

func (m Model) visibleContacts() []models.Contact {
	return views.FilterContacts(m.set.Contacts.Items(), m.search.Value())
}

// visibleDeals flattens the board column by column, so the cursor walks
// each stage in turn.
func (m Model) visibleDeals() []models.Deal {
	var out []models.Deal
	for _, b := range views.GroupByStage(m.set.Deals.Items()) {
		out = append(out, b.Deals...)
	}
	return out
}

func (m Model) visibleTasks() []models.Task {
	return views.FilterTasks(m.set.Tasks.Items(), m.taskView, m.now())
}

func (m Model) visibleActivities() []models.Activity {
	return views.RecentActivities(m.set.Activities.Items(), -1)
}

func (m Model) rowCount() int {
	switch m.page {
	case PageContacts:
		return len(m.visibleContacts())
	case PageDeals:
		return len(m.visibleDeals())
	case PageTasks:
		return len(m.visibleTasks())
	case PageActivities:
		return len(m.visibleActivities())
	}
	return 0
}

func (m *Model) clampSelection() {
	if n := m.rowCount(); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
}

// selected returns the id and a display label of the highlighted record.
func (m Model) selected() (int64, string, bool) {
	switch m.page {
	case PageContacts:
		if c, ok := pick(m.visibleContacts(), m.selectedRow); ok {
			return c.ID, c.FullName(), true
		}
	case PageDeals:
		if d, ok := pick(m.visibleDeals(), m.selectedRow); ok {
			return d.ID, d.Title, true
		}
	case PageTasks:
		if t, ok := pick(m.visibleTasks(), m.selectedRow); ok {
			return t.ID, t.Title, true
		}
	case PageActivities:
		if a, ok := pick(m.visibleActivities(), m.selectedRow); ok {
			return a.ID, a.Subject, true
		}
	}
	return 0, "", false
}

func (m Model) stale() bool {
	switch m.page {
	case PageContacts:
		return m.set.Contacts.Stale()
	case PageDeals:
		return m.set.Deals.Stale()
	case PageTasks:
		return m.set.Tasks.Stale()
	case PageActivities:
		return m.set.Activities.Stale()
	}
	return false
}

func pick[T any](items []T, i int) (T, bool) {
	if i < 0 || i >= len(items) {
		var zero T
		return zero, false
	}
	return items[i], true
}
