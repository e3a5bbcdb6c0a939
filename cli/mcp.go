// ABOUTME: MCP server subcommand
// ABOUTME: Serves the CRM tools over stdio using the saved session
package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/handlers"
)

func newMCPCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio for AI assistants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol, so logs must stay on stderr.
			if err := app.authed(cmd); err != nil {
				return err
			}
			app.logger.Info("Starting CRM MCP server", "api", app.cfg.API.URL)

			server := handlers.NewServer(app.session, app.set, app.Version)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
