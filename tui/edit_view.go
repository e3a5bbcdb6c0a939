// ABOUTME: Create and edit dialogs for every resource page
// ABOUTME: Builds text inputs from form fields and submits through the page's dialog
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/resource"
)

// dialogs is shared by every copy of the Model.
type dialogs struct {
	contact  resource.Dialog[forms.ContactForm]
	deal     resource.Dialog[forms.DealForm]
	task     resource.Dialog[forms.TaskForm]
	activity resource.Dialog[forms.ActivityForm]
}

type editor struct {
	title  string
	page   Page
	fields []forms.Field
	inputs []textinput.Model
	focus  int
	saving bool

	submit func(context.Context) error
	close  func()
}

func newEditor[F any](title string, page Page, d *resource.Dialog[F], fields func(*F) []forms.Field, m resource.Mutator) *editor {
	fs := fields(d.Form())
	inputs := make([]textinput.Model, len(fs))
	for i, f := range fs {
		in := textinput.New()
		in.Placeholder = f.Label
		if len(f.Options) > 0 {
			in.Placeholder += " (" + strings.Join(f.Options, "/") + ")"
		}
		in.CharLimit = 500
		in.Width = 50
		in.SetValue(*f.Value)
		inputs[i] = in
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}
	return &editor{
		title:  title,
		page:   page,
		fields: fs,
		inputs: inputs,
		submit: func(ctx context.Context) error { return d.Submit(ctx, m) },
		close:  d.Close,
	}
}

// commit copies the inputs into the draft form.
func (e *editor) commit() error {
	for i, f := range e.fields {
		v := strings.TrimSpace(e.inputs[i].Value())
		if len(f.Options) > 0 && v != "" && !slices.Contains(f.Options, v) {
			return fmt.Errorf("invalid %s: %s (valid: %s)", strings.ToLower(f.Label), v, strings.Join(f.Options, ", "))
		}
		*f.Value = v
	}
	return nil
}

func (e *editor) setFocus(i int) {
	n := len(e.inputs)
	e.focus = (i + n) % n
	for j := range e.inputs {
		if j == e.focus {
			e.inputs[j].Focus()
		} else {
			e.inputs[j].Blur()
		}
	}
}

// openEditor opens the create or edit dialog for the current page.
func (m Model) openEditor(editing bool) (tea.Model, tea.Cmd) {
	var id int64
	if editing {
		selected, _, ok := m.selected()
		if !ok {
			return m, nil
		}
		id = selected
	}

	d := m.dialogs
	var e *editor
	switch m.page {
	case PageContacts:
		if editing {
			c, _ := m.set.Contacts.Get(id)
			d.contact.OpenEdit(id, forms.FromContact(c))
		} else {
			d.contact.OpenCreate(forms.NewContactForm())
		}
		e = newEditor(dialogTitle(editing, "CONTACT"), m.page, &d.contact, (*forms.ContactForm).Fields, m.set.Contacts)
	case PageDeals:
		if editing {
			deal, _ := m.set.Deals.Get(id)
			d.deal.OpenEdit(id, forms.FromDeal(deal))
		} else {
			d.deal.OpenCreate(forms.NewDealForm())
		}
		e = newEditor(dialogTitle(editing, "DEAL"), m.page, &d.deal, (*forms.DealForm).Fields, m.set.Deals)
	case PageTasks:
		if editing {
			t, _ := m.set.Tasks.Get(id)
			d.task.OpenEdit(id, forms.FromTask(t))
		} else {
			d.task.OpenCreate(forms.NewTaskForm())
		}
		e = newEditor(dialogTitle(editing, "TASK"), m.page, &d.task, (*forms.TaskForm).Fields, m.set.Tasks)
	case PageActivities:
		if editing {
			a, _ := m.set.Activities.Get(id)
			d.activity.OpenEdit(id, forms.FromActivity(a))
		} else {
			d.activity.OpenCreate(forms.NewActivityForm())
		}
		e = newEditor(dialogTitle(editing, "ACTIVITY"), m.page, &d.activity, (*forms.ActivityForm).Fields, m.set.Activities)
	default:
		return m, nil
	}

	m.editor = e
	m.viewMode = ViewEdit
	m.err = nil
	m.status = ""
	return m, textinput.Blink
}

func dialogTitle(editing bool, noun string) string {
	if editing {
		return "EDIT " + noun
	}
	return "NEW " + noun
}

func (m Model) renderEditView() string {
	e := m.editor
	var s strings.Builder

	s.WriteString(titleStyle.Render(e.title))
	s.WriteString("\n\n")

	for i, f := range e.fields {
		label := f.Label
		if f.Required {
			label += " *"
		}
		s.WriteString(label + ":\n")
		s.WriteString(e.inputs[i].View())
		s.WriteString("\n\n")
	}

	if e.saving {
		s.WriteString("Saving...\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	help := []string{"tab: next field", "shift+tab: previous", "enter: save", "esc: cancel"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	if e.saving {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		e.close()
		m.editor = nil
		m.err = nil
		m.viewMode = ViewList
		return m, nil
	case "tab", "down":
		e.setFocus(e.focus + 1)
		return m, nil
	case "shift+tab", "up":
		e.setFocus(e.focus - 1)
		return m, nil
	case "enter":
		if err := e.commit(); err != nil {
			m.err = err
			return m, nil
		}
		e.saving = true
		m.err = nil
		ctx := m.ctx
		return m, func() tea.Msg {
			return savedMsg{page: e.page, verb: "Saved", err: e.submit(ctx)}
		}
	}

	var cmd tea.Cmd
	e.inputs[e.focus], cmd = e.inputs[e.focus].Update(msg)
	return m, cmd
}
