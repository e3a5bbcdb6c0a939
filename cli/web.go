// ABOUTME: Web CLI command
// ABOUTME: Serves the read-only browser view of the signed-in session
package cli

import (
	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/web"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve a read-only dashboard in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.authed(cmd); err != nil {
				return err
			}
			srv, err := web.NewServer(app.session, app.set, app.logger)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")
	return cmd
}
