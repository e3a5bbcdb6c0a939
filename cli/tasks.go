// ABOUTME: Task CLI commands
// ABOUTME: Task views with overdue marking, completion toggling and editing
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

var taskEntity = entity[models.Task, forms.TaskForm]{
	noun:       "task",
	controller: func(a *App) *resource.Controller[models.Task] { return a.set.Tasks },
	blank:      forms.NewTaskForm,
	from:       forms.FromTask,
	fields:     (*forms.TaskForm).Fields,
	name:       func(f forms.TaskForm) string { return f.Title },
}

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(taskEntity.addCmd(app))
	cmd.AddCommand(taskEntity.updateCmd(app))
	cmd.AddCommand(newTasksToggleCmd(app))
	cmd.AddCommand(taskEntity.deleteCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in a view: all, pending, completed or overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			if err := app.set.Tasks.List(cmd.Context()); err != nil {
				return err
			}

			now := time.Now()
			selected := views.ParseTaskView(view)
			items := app.set.Tasks.Items()
			counts := views.CountTasks(items, now)
			tasks := views.FilterTasks(items, selected, now)

			out := cmd.OutOrStdout()
			tabs := make([]string, len(views.TaskViews))
			for i, v := range views.TaskViews {
				label := fmt.Sprintf("%s (%d)", v, counts.Of(v))
				if v == selected {
					label = "[" + label + "]"
				}
				tabs[i] = label
			}
			_, _ = fmt.Fprintln(out, strings.Join(tabs, "  "))
			_, _ = fmt.Fprintln(out)

			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(out, "No tasks found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tDUE\tPRIORITY\tSTATUS\tASSIGNED")
			_, _ = fmt.Fprintln(w, "--\t-----\t---\t--------\t------\t--------")
			for _, t := range tasks {
				due := formatDate(t.DueDate)
				if views.IsOverdue(t, now) {
					due += " ⚠️ overdue"
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Title, due, t.Priority, t.Status, dash(t.AssignedToName))
			}
			_ = w.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", "all", "Task view (all, pending, completed, overdue)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			t, err := fetch(cmd, app.set.Tasks, "task", id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (ID: %d)\n", t.Title, t.ID)
			printField(out, "Status", string(t.Status))
			printField(out, "Priority", string(t.Priority))
			printField(out, "Due", t.DueDate.String())
			printField(out, "Assigned to", t.AssignedToName)
			if views.IsOverdue(t, time.Now()) {
				_, _ = fmt.Fprintln(out, "  ⚠️  Overdue")
			}
			if t.Description != "" {
				_, _ = fmt.Fprintf(out, "\n%s\n", t.Description)
			}
			return nil
		},
	}
}

func newTasksToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a task completed, or reopen a completed one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			t, err := fetch(cmd, app.set.Tasks, "task", id)
			if err != nil {
				return err
			}

			next := t.ToggledStatus()
			if err := app.set.Tasks.Update(cmd.Context(), id, models.StatusPatch{Status: next}); err != nil {
				return describeMutation(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Task %d is now %s\n", id, next)
			return nil
		},
	}
}
