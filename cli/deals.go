// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for the deal list, pipeline board and deal details
package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/forms"
	"github.com/harperreed/crmdesk/models"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/tui"
	"github.com/harperreed/crmdesk/views"
)

var dealEntity = entity[models.Deal, forms.DealForm]{
	noun:       "deal",
	controller: func(a *App) *resource.Controller[models.Deal] { return a.set.Deals },
	blank:      forms.NewDealForm,
	from:       forms.FromDeal,
	fields:     (*forms.DealForm).Fields,
	name:       func(f forms.DealForm) string { return f.Title },
}

func newDealsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deals",
		Aliases: []string{"deal"},
		Short:   "Manage deals and the pipeline",
	}
	cmd.AddCommand(newDealsListCmd(app))
	cmd.AddCommand(newDealsPipelineCmd(app))
	cmd.AddCommand(newDealsShowCmd(app))
	cmd.AddCommand(dealEntity.addCmd(app))
	cmd.AddCommand(dealEntity.updateCmd(app))
	cmd.AddCommand(dealEntity.deleteCmd(app))
	return cmd
}

func newDealsListCmd(app *App) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter models.Stage
			if stage != "" {
				parsed, err := models.ParseStage(stage)
				if err != nil {
					return err
				}
				filter = parsed
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			if err := app.set.Deals.List(cmd.Context()); err != nil {
				return err
			}

			deals := app.set.Deals.Items()
			if filter != "" {
				deals = views.GroupByStage(deals).Bucket(filter).Deals
			}

			out := cmd.OutOrStdout()
			if len(deals) == 0 {
				_, _ = fmt.Fprintln(out, "No deals found")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTITLE\tCONTACT\tVALUE\tSTAGE\tCLOSE")
			_, _ = fmt.Fprintln(w, "--\t-----\t-------\t-----\t-----\t-----")
			for _, d := range deals {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Title, dash(d.ContactName()), views.FormatCurrency(d.Value), d.Stage.Label(), formatDate(d.ExpectedCloseDate))
			}
			_ = w.Flush()

			_, _ = fmt.Fprintf(out, "\nTotal: %d deal(s) - %s\n", len(deals), views.FormatCurrency(views.TotalDealValue(deals)))
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "Only deals in this stage")
	return cmd
}

func newDealsPipelineCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Show deals grouped by stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			if err := app.set.Deals.List(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pipeline := views.GroupByStage(app.set.Deals.Items())
			for _, b := range pipeline {
				_, _ = fmt.Fprintf(out, "%s (%d) %s\n", strings.ToUpper(b.Stage.Label()), len(b.Deals), views.FormatCurrency(b.Value()))
				for _, d := range b.Deals {
					line := fmt.Sprintf("  %d  %s  %s", d.ID, d.Title, views.FormatCurrency(d.Value))
					if name := d.ContactName(); name != "" {
						line += "  · " + name
					}
					_, _ = fmt.Fprintln(out, line)
				}
				_, _ = fmt.Fprintln(out)
			}
			_, _ = fmt.Fprintf(out, "Total: %d deal(s) - %s\n", pipeline.Total(), views.FormatCurrency(pipeline.Value()))
			return nil
		},
	}
}

func newDealsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a deal with its description rendered as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("deal", args[0])
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			deal, err := fetch(cmd, app.set.Deals, "deal", id)
			if err != nil {
				return err
			}

			style := tui.PlainStyle
			if isTerminal(cmd.OutOrStdout()) {
				style = tui.DarkStyle
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(tui.DealMarkdown(deal), 80, style))
			return nil
		},
	}
}
