// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for listing, searching and editing contacts
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
)

var contactEntity = entity[models.Contact, forms.ContactForm]{
	noun:       "contact",
	controller: func(a *App) *resource.Controller[models.Contact] { return a.set.Contacts },
	blank:      forms.NewContactForm,
	from:       forms.FromContact,
	fields:     (*forms.ContactForm).Fields,
	name:       func(f forms.ContactForm) string { return f.FirstName + " " + f.LastName },
}

func newContactsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact"},
		Short:   "Manage contacts",
	}
	cmd.AddCommand(newContactsListCmd(app))
	cmd.AddCommand(newContactsShowCmd(app))
	cmd.AddCommand(contactEntity.addCmd(app))
	cmd.AddCommand(contactEntity.updateCmd(app))
	cmd.AddCommand(contactEntity.deleteCmd(app))
	return cmd
}

func newContactsListCmd(app *App) *cobra.Command {
	var search string
	var remote bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			c := app.set.Contacts

			var contacts []models.Contact
			if remote && search != "" {
				found, err := c.Search(cmd.Context(), search)
				if err != nil {
					return err
				}
				contacts = found
			} else {
				if err := c.List(cmd.Context()); err != nil {
					return err
				}
				contacts = views.FilterContacts(c.Items(), search)
			}

			out := cmd.OutOrStdout()
			if len(contacts) == 0 {
				_, _ = fmt.Fprintln(out, "No contacts found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY\tTITLE")
			_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t-----")
			for _, contact := range contacts {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					contact.ID, contact.FullName(), dash(contact.Email), dash(contact.Company), dash(contact.Title))
			}
			_ = w.Flush()

			_, _ = fmt.Fprintf(out, "\nTotal: %d contact(s)\n", len(contacts))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name, email or company")
	cmd.Flags().BoolVar(&remote, "remote", false, "Search on the server instead of filtering locally")
	return cmd
}

func newContactsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contact with their deals and activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("contact", args[0])
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			contact, err := fetch(cmd, app.set.Contacts, "contact", id)
			if err != nil {
				return err
			}
			// Deals and activities are extra context; failures leave them out.
			_ = app.set.Deals.List(cmd.Context())
			_ = app.set.Activities.List(cmd.Context())

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s (ID: %d)\n", contact.FullName(), contact.ID)
			printField(out, "Title", contact.Title)
			printField(out, "Company", contact.Company)
			printField(out, "Email", contact.Email)
			printField(out, "Phone", contact.Phone)

			_, _ = fmt.Fprintln(out, "\nDeals:")
			n := 0
			for _, d := range app.set.Deals.Items() {
				if d.ContactID == id {
					_, _ = fmt.Fprintf(out, "  %d  %s  %s  %s\n", d.ID, d.Title, d.Stage.Label(), views.FormatCurrency(d.Value))
					n++
				}
			}
			if n == 0 {
				_, _ = fmt.Fprintln(out, "  none")
			}

			_, _ = fmt.Fprintln(out, "\nActivity:")
			var theirs []models.Activity
			for _, a := range app.set.Activities.Items() {
				if a.ContactID != nil && *a.ContactID == id {
					theirs = append(theirs, a)
				}
			}
			for _, a := range views.RecentActivities(theirs, -1) {
				_, _ = fmt.Fprintf(out, "  %s  %-8s %s\n", formatWhen(a.CreatedAt), a.Type, a.Subject)
			}
			if len(theirs) == 0 {
				_, _ = fmt.Fprintln(out, "  none")
			}
			return nil
		},
	}
}
