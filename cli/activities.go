// ABOUTME: Activity CLI commands
// ABOUTME: Activity log listing, the recent feed and editing
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

var activityEntity = entity[models.Activity, forms.ActivityForm]{
	noun:       "activity",
	controller: func(a *App) *resource.Controller[models.Activity] { return a.set.Activities },
	blank:      forms.NewActivityForm,
	from:       forms.FromActivity,
	fields:     (*forms.ActivityForm).Fields,
	name:       func(f forms.ActivityForm) string { return f.Type + ": " + f.Subject },
}

func newActivitiesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activities",
		Aliases: []string{"activity"},
		Short:   "Manage logged calls, emails, meetings and notes",
	}
	cmd.AddCommand(newActivitiesListCmd(app, "list", "List all activities", -1))
	cmd.AddCommand(newActivitiesListCmd(app, "recent", "Show the most recent activities", viz.RecentLimit))
	cmd.AddCommand(activityEntity.addCmd(app))
	cmd.AddCommand(activityEntity.updateCmd(app))
	cmd.AddCommand(activityEntity.deleteCmd(app))
	return cmd
}

func newActivitiesListCmd(app *App, use, short string, defaultLimit int) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			if err := app.set.Activities.List(cmd.Context()); err != nil {
				return err
			}

			activities := views.RecentActivities(app.set.Activities.Items(), limit)
			out := cmd.OutOrStdout()
			if len(activities) == 0 {
				_, _ = fmt.Fprintln(out, "No activities found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tWHEN\tTYPE\tSUBJECT\tCONTACT\tDEAL")
			_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t-------\t----")
			for _, a := range activities {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, formatWhen(a.CreatedAt), a.Type, a.Subject, dash(a.ContactName()), dash(a.DealTitle))
			}
			_ = w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLimit, "Maximum number of activities (-1 for all)")
	return cmd
}
