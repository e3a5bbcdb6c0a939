// ABOUTME: Sign-in and registration page
// ABOUTME: Runs session login or register in a background command
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/crmdesk/models"
)

var loginBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("170")).
	Padding(1, 2).
	Width(50)

type loginForm struct {
	register bool
	name     textinput.Model
	email    textinput.Model
	password textinput.Model
	focus    int
	message  string
}

func newLoginForm() *loginForm {
	name := textinput.New()
	name.Placeholder = "Name"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 200
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 200

	return &loginForm{name: name, email: email, password: password}
}

// inputs returns the visible inputs in tab order.
func (f *loginForm) inputs() []*textinput.Model {
	if f.register {
		return []*textinput.Model{&f.name, &f.email, &f.password}
	}
	return []*textinput.Model{&f.email, &f.password}
}

func (f *loginForm) setFocus(i int) {
	inputs := f.inputs()
	f.focus = (i + len(inputs)) % len(inputs)
	for j, in := range inputs {
		if j == f.focus {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.login
	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		f.setFocus(f.focus + 1)
		return m, nil
	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return m, nil
	case "ctrl+r":
		f.register = !f.register
		f.message = ""
		f.setFocus(0)
		return m, nil
	case "enter":
		return m.submitLogin()
	}

	in := f.inputs()[f.focus]
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	f := m.login
	email := strings.TrimSpace(f.email.Value())
	password := f.password.Value()
	name := strings.TrimSpace(f.name.Value())

	if email == "" || password == "" || (f.register && name == "") {
		f.message = "All fields are required"
		return m, nil
	}

	f.message = ""
	m.loading = true
	ctx, sess := m.ctx, m.session
	if f.register {
		return m, func() tea.Msg {
			_, err := sess.Register(ctx, models.Registration{Name: name, Email: email, Password: password})
			return authMsg{err: err}
		}
	}
	return m, func() tea.Msg {
		_, err := sess.Login(ctx, email, password)
		return authMsg{err: err}
	}
}

func (m Model) renderLoginView() string {
	f := m.login
	var s strings.Builder

	title := "SIGN IN"
	if f.register {
		title = "CREATE ACCOUNT"
	}
	s.WriteString(titleStyle.Render("CRMDESK · " + title))
	s.WriteString("\n")
	for _, in := range f.inputs() {
		s.WriteString(in.View())
		s.WriteString("\n")
	}

	if m.loading {
		s.WriteString("\nSigning in...\n")
	}
	if f.message != "" {
		s.WriteString("\n" + errorStyle.Render(f.message) + "\n")
	}

	toggle := "ctrl+r: create account"
	if f.register {
		toggle = "ctrl+r: sign in instead"
	}
	s.WriteString(helpStyle.Render(strings.Join([]string{"tab: next field", "enter: submit", toggle, "esc: quit"}, " • ")))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, loginBoxStyle.Render(s.String()))
}
