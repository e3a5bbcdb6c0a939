// ABOUTME: Dashboard and visualization CLI commands
// ABOUTME: ASCII overview plus Graphviz export of the pipeline
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/views"
	"github.com/harperreed/crmdesk/viz"
)

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of contacts, deals, tasks and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			d, err := viz.LoadDashboard(cmd.Context(), app.set, time.Now())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), viz.RenderDashboard(d))
			return nil
		},
	}
}

func newVizCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Graph visualizations",
	}

	var format, output string
	pipeline := &cobra.Command{
		Use:   "pipeline",
		Short: "Render the deal pipeline as DOT or SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := viz.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := app.authed(cmd); err != nil {
				return err
			}
			if err := app.set.Deals.List(cmd.Context()); err != nil {
				return err
			}

			graph, err := viz.RenderPipeline(cmd.Context(), views.GroupByStage(app.set.Deals.Items()), f)
			if err != nil {
				return err
			}

			if output != "" {
				if err := os.WriteFile(output, []byte(graph), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", output)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), graph)
			return nil
		},
	}
	pipeline.Flags().StringVar(&format, "format", "dot", "Output format (dot, svg)")
	pipeline.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	cmd.AddCommand(pipeline)
	return cmd
}
