// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Provides the interactive full-screen client: login, dashboard and CRUD pages
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/session"
	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewLogin ViewMode = iota
	ViewList
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
)

// Page is one tab of the signed-in app.
type Page int

const (
	PageDashboard Page = iota
	PageContacts
	PageDeals
	PageTasks
	PageActivities
)

var pages = []Page{PageDashboard, PageContacts, PageDeals, PageTasks, PageActivities}

var pageNames = map[Page]string{
	PageDashboard:  "Dashboard",
	PageContacts:   "Contacts",
	PageDeals:      "Deals",
	PageTasks:      "Tasks",
	PageActivities: "Activities",
}

func (p Page) String() string { return pageNames[p] }

// Model is the main bubbletea model
type Model struct {
	ctx     context.Context
	session *session.Store
	set     *resource.Set
	logger  *log.Logger
	now     func() time.Time

	viewMode ViewMode
	page     Page

	// List view state
	selectedRow int
	search      textinput.Model
	searching   bool
	taskView    views.TaskView
	dashboard   *viz.Dashboard

	// Login view state
	login *loginForm

	// Edit view state
	dialogs *dialogs
	editor  *editor

	// Delete confirmation state
	deleteID    int64
	deleteLabel string

	// Graph view state
	graphDOT    string
	graphScroll int

	// UI state
	loading bool
	status  string
	err     error
	width   int
	height  int
}

// Messages delivered by background commands.
type (
	loadedMsg struct {
		page Page
		err  error
	}
	dashboardMsg struct {
		dashboard *viz.Dashboard
		err       error
	}
	savedMsg struct {
		page Page
		verb string
		err  error
	}
	authMsg struct {
		err error
	}
	expiredMsg struct{}
	graphMsg   struct {
		dot string
		err error
	}
)

// NewModel creates a new TUI model. It starts on the login page unless a
// session was restored.
func NewModel(ctx context.Context, sess *session.Store, set *resource.Set, logger *log.Logger) Model {
	search := textinput.New()
	search.Placeholder = "Search contacts"
	search.Prompt = "/ "

	m := Model{
		ctx:      ctx,
		session:  sess,
		set:      set,
		logger:   logger,
		now:      time.Now,
		viewMode: ViewList,
		page:     PageDashboard,
		search:   search,
		taskView: views.ViewAll,
		dialogs:  &dialogs{},
		width:    80,
		height:   24,
	}
	if !sess.IsAuthenticated() {
		m.viewMode = ViewLogin
		m.login = newLoginForm()
	}
	return m
}

// Run starts the program and returns when the user quits. A forced logout
// from any request sends the UI back to the login page.
func Run(ctx context.Context, sess *session.Store, set *resource.Set, logger *log.Logger) error {
	p := tea.NewProgram(NewModel(ctx, sess, set, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	sess.OnExpired(func() { p.Send(expiredMsg{}) })
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	if m.viewMode == ViewLogin {
		return textinput.Blink
	}
	return m.loadPage(m.page)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case expiredMsg:
		m.viewMode = ViewLogin
		m.login = newLoginForm()
		m.login.message = "Session expired. Please sign in again."
		m.editor = nil
		m.loading = false
		return m, textinput.Blink

	case authMsg:
		m.loading = false
		if msg.err != nil {
			m.login.message = m.session.ErrorMessage()
			return m, nil
		}
		m.login = nil
		m.viewMode = ViewList
		m.page = PageDashboard
		m.status = "Welcome, " + m.session.User().Name
		return m, m.loadPage(m.page)

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		m.clampSelection()
		return m, nil

	case dashboardMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.dashboard = msg.dashboard
		}
		return m, nil

	case savedMsg:
		m.loading = false
		if m.editor != nil {
			m.editor.saving = false
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = "✓ " + msg.verb
		if m.viewMode == ViewEdit || m.viewMode == ViewConfirmDelete {
			m.viewMode = ViewList
			m.editor = nil
		}
		m.clampSelection()
		return m, nil

	case graphMsg:
		m.loading = false
		m.err = msg.err
		m.graphDOT = msg.dot
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewLogin:
		return m.renderLoginView()
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewLogin:
		return m.handleLoginKeys(msg)
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewEdit:
		return m.handleEditKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

// loadPage fetches what page shows without blocking the UI.
func (m Model) loadPage(p Page) tea.Cmd {
	ctx, set, now := m.ctx, m.set, m.now
	switch p {
	case PageDashboard:
		return func() tea.Msg {
			d, err := viz.LoadDashboard(ctx, set, now())
			return dashboardMsg{dashboard: d, err: err}
		}
	case PageContacts:
		return listCmd(ctx, p, set.Contacts.List)
	case PageDeals:
		return listCmd(ctx, p, set.Deals.List)
	case PageTasks:
		return listCmd(ctx, p, set.Tasks.List)
	case PageActivities:
		return listCmd(ctx, p, set.Activities.List)
	}
	return nil
}

func listCmd(ctx context.Context, p Page, list func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{page: p, err: list(ctx)}
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Bold(true)

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)
