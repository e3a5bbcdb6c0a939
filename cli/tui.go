// ABOUTME: Interactive TUI subcommand
// ABOUTME: Hands the session and controllers to the bubbletea program
package cli

import (
	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/tui"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The TUI owns the terminal; logs go to the log file.
			if err := app.open(cmd.ErrOrStderr(), true); err != nil {
				return err
			}
			return tui.Run(cmd.Context(), app.session, app.set, app.logger)
		},
	}
}
