// ABOUTME: Authentication CLI commands
// ABOUTME: login, register, logout and whoami over the session store
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/models"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.ErrOrStderr(), false); err != nil {
				return err
			}
			var err error
			if email == "" {
				if email, err = app.promptLine(cmd, "Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = app.promptPassword(cmd); err != nil {
					return err
				}
			}

			user, err := app.session.Login(cmd.Context(), email, password)
			if err != nil {
				return errors.New(app.session.ErrorMessage())
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", describeUser(user))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var profile models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.ErrOrStderr(), false); err != nil {
				return err
			}
			var err error
			if profile.Name == "" {
				if profile.Name, err = app.promptLine(cmd, "Name"); err != nil {
					return err
				}
			}
			if profile.Email == "" {
				if profile.Email, err = app.promptLine(cmd, "Email"); err != nil {
					return err
				}
			}
			if profile.Password == "" {
				if profile.Password, err = app.promptPassword(cmd); err != nil {
					return err
				}
			}

			user, err := app.session.Register(cmd.Context(), profile)
			if err != nil {
				return errors.New(app.session.ErrorMessage())
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered and logged in as %s\n", describeUser(user))
			return nil
		},
	}
	cmd.Flags().StringVar(&profile.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&profile.Password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.ErrOrStderr(), false); err != nil {
				return err
			}
			if err := app.session.Logout(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.ErrOrStderr(), false); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			user := app.session.User()
			if user == nil {
				_, _ = fmt.Fprintln(out, "Not logged in")
				return nil
			}
			_, _ = fmt.Fprintf(out, "%s\n", describeUser(user))
			_, _ = fmt.Fprintf(out, "  API: %s\n", app.cfg.API.URL)
			_, _ = fmt.Fprintf(out, "  Device: %s\n", app.session.DeviceID())
			return nil
		},
	}
}

func describeUser(u *models.User) string {
	if u.Email == "" {
		return u.Name
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}
