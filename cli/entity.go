// ABOUTME: Shared add/update/delete commands for every collection
// ABOUTME: Form fields become flags so each entity gets the same editing surface
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
)

// entity describes how to edit one collection from the command line.
type entity[T models.Record, F any] struct {
	noun       string
	controller func(*App) *resource.Controller[T]
	blank      func() F
	from       func(T) F
	fields     func(*F) []forms.Field
	name       func(F) string
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// bindFields registers a flag per form field; the blank form supplies the
// defaults shown in help.
func (e entity[T, F]) bindFields(cmd *cobra.Command) {
	blank := e.blank()
	for _, f := range e.fields(&blank) {
		usage := f.Label
		if f.Required {
			usage += " (required)"
		}
		if len(f.Options) > 0 {
			usage += " [" + strings.Join(f.Options, ", ") + "]"
		}
		cmd.Flags().String(flagName(f.Key), *f.Value, usage)
	}
}

// applyFlags copies every flag the user set onto form.
func (e entity[T, F]) applyFlags(cmd *cobra.Command, form *F) error {
	for _, f := range e.fields(form) {
		name := flagName(f.Key)
		if !cmd.Flags().Changed(name) {
			continue
		}
		value, err := cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
		if len(f.Options) > 0 && !contains(f.Options, value) {
			return fmt.Errorf("invalid %s: %s (valid: %s)", name, value, strings.Join(f.Options, ", "))
		}
		*f.Value = value
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

func parseID(noun, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", noun, raw)
	}
	return id, nil
}

func (e entity[T, F]) addCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a " + e.noun,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			form := e.blank()
			if err := e.applyFlags(cmd, &form); err != nil {
				return err
			}
			c := e.controller(app)
			if err := c.Create(cmd.Context(), form); err != nil {
				return describeMutation(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s: %s\n", e.noun, e.name(form))
			warnStale(cmd, c.Stale())
			return nil
		},
	}
	e.bindFields(cmd)
	return cmd
}

func (e entity[T, F]) updateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a " + e.noun + "; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(e.noun, args[0])
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			c := e.controller(app)
			current, err := fetch(cmd, c, e.noun, id)
			if err != nil {
				return err
			}
			form := e.from(current)
			if err := e.applyFlags(cmd, &form); err != nil {
				return err
			}
			if err := c.Update(cmd.Context(), id, form); err != nil {
				return describeMutation(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated %s %d: %s\n", e.noun, id, e.name(form))
			warnStale(cmd, c.Stale())
			return nil
		},
	}
	e.bindFields(cmd)
	return cmd
}

func (e entity[T, F]) deleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + e.noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(e.noun, args[0])
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			if err := app.confirm(cmd, yes, fmt.Sprintf("Delete %s %d?", e.noun, id)); err != nil {
				return err
			}
			c := e.controller(app)
			if err := c.Delete(cmd.Context(), id); err != nil {
				return describeMutation(err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s %d\n", e.noun, id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// fetch lists the collection and returns the record with id.
func fetch[T models.Record](cmd *cobra.Command, c *resource.Controller[T], noun string, id int64) (T, error) {
	var zero T
	if err := c.List(cmd.Context()); err != nil {
		return zero, err
	}
	rec, ok := c.Get(id)
	if !ok {
		return zero, fmt.Errorf("%s %d not found", noun, id)
	}
	return rec, nil
}

// describeMutation strips the request details from server-side rejections.
func describeMutation(err error) error {
	if errors.Is(err, resource.ErrValidation) {
		return err
	}
	if msg := api.Message(err); msg != "" {
		return errors.New(msg)
	}
	return err
}

func warnStale(cmd *cobra.Command, stale bool) {
	if stale {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "  Warning: saved, but the list could not be refreshed")
	}
}
