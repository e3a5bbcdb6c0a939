// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements list_tasks, create_task, update_task and delete_task
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

type TaskHandlers struct {
	gate  Gate
	tasks *resource.Controller[models.Task]
	now   func() time.Time
}

func NewTaskHandlers(gate Gate, tasks *resource.Controller[models.Task]) *TaskHandlers {
	return &TaskHandlers{gate: gate, tasks: tasks, now: time.Now}
}

type TaskOutput struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	DueDate        string `json:"due_date,omitempty"`
	AssignedTo     int64  `json:"assigned_to,omitempty"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	Overdue        bool   `json:"overdue"`
}

func taskToOutput(t models.Task, now time.Time) TaskOutput {
	return TaskOutput{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		DueDate:        t.DueDate.String(),
		AssignedTo:     optionalID(t.AssignedTo),
		AssignedToName: t.AssignedToName,
		Priority:       string(t.Priority),
		Status:         string(t.Status),
		Overdue:        views.IsOverdue(t, now),
	}
}

type ListTasksInput struct {
	View string `json:"view,omitempty" jsonschema:"One of all, pending, completed, overdue (default all)"`
}

type ListTasksOutput struct {
	View      string       `json:"view"`
	Tasks     []TaskOutput `json:"tasks"`
	All       int          `json:"all"`
	Pending   int          `json:"pending"`
	Completed int          `json:"completed"`
	Overdue   int          `json:"overdue"`
}

func (h *TaskHandlers) ListTasks(ctx context.Context, _ *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	if err := refresh(ctx, h.gate, h.tasks); err != nil {
		return nil, ListTasksOutput{}, err
	}

	now := h.now()
	view := views.ParseTaskView(input.View)
	items := h.tasks.Items()
	counts := views.CountTasks(items, now)
	filtered := views.FilterTasks(items, view, now)

	out := ListTasksOutput{
		View:      string(view),
		Tasks:     make([]TaskOutput, len(filtered)),
		All:       counts.All,
		Pending:   counts.Pending,
		Completed: counts.Completed,
		Overdue:   counts.Overdue,
	}
	for i, t := range filtered {
		out.Tasks[i] = taskToOutput(t, now)
	}
	return nil, out, nil
}

type CreateTaskInput struct {
	Title       string `json:"title" jsonschema:"Task title (required)"`
	Description string `json:"description,omitempty" jsonschema:"Details"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"Due date (YYYY-MM-DD)"`
	AssignedTo  int64  `json:"assigned_to,omitempty" jsonschema:"User ID to assign"`
	Priority    string `json:"priority,omitempty" jsonschema:"low, medium or high (default medium)"`
	Status      string `json:"status,omitempty" jsonschema:"pending, in_progress or completed (default pending)"`
}

func (h *TaskHandlers) CreateTask(ctx context.Context, _ *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	form := forms.NewTaskForm()
	applyTask(&form, input.Title, input.Description, input.DueDate, input.AssignedTo, input.Priority, input.Status)
	if err := h.tasks.Create(ctx, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.tasks, fmt.Sprintf("Created task %s", form.Title)), nil
}

type UpdateTaskInput struct {
	ID          int64  `json:"id" jsonschema:"Task ID (required)"`
	Title       string `json:"title,omitempty" jsonschema:"New title"`
	Description string `json:"description,omitempty" jsonschema:"New details"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"New due date (YYYY-MM-DD)"`
	AssignedTo  int64  `json:"assigned_to,omitempty" jsonschema:"New assignee user ID"`
	Priority    string `json:"priority,omitempty" jsonschema:"New priority"`
	Status      string `json:"status,omitempty" jsonschema:"New status; completed marks the task done"`
}

func (h *TaskHandlers) UpdateTask(ctx context.Context, _ *mcp.CallToolRequest, input UpdateTaskInput) (*mcp.CallToolResult, MutationOutput, error) {
	current, err := lookup(ctx, h.gate, h.tasks, "task", input.ID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	form := forms.FromTask(current)
	applyTask(&form, input.Title, input.Description, input.DueDate, input.AssignedTo, input.Priority, input.Status)
	if err := h.tasks.Update(ctx, input.ID, form); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.tasks, fmt.Sprintf("Updated task %d", input.ID)), nil
}

func applyTask(f *forms.TaskForm, title, description, due string, assignee int64, priority, status string) {
	overlay(&f.Title, title)
	overlay(&f.Description, description)
	overlay(&f.DueDate, due)
	if assignee != 0 {
		f.AssignedTo = strconv.FormatInt(assignee, 10)
	}
	overlay(&f.Priority, priority)
	overlay(&f.Status, status)
}

func (h *TaskHandlers) DeleteTask(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, MutationOutput, error) {
	if err := h.gate.Require(); err != nil {
		return nil, MutationOutput{}, err
	}
	if err := h.tasks.Delete(ctx, input.ID); err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, mutated(h.tasks, fmt.Sprintf("Deleted task %d", input.ID)), nil
}
