// ABOUTME: Root cobra command and the application wiring shared by subcommands
// ABOUTME: Resolves config, opens the slot store and restores the session once per run
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/crmdesk/api"
	"github.com/harperreed/crmdesk/config"
	"github.com/harperreed/crmdesk/resource"
	"github.com/harperreed/crmdesk/session"
	"github.com/harperreed/crmdesk/store"
)

type App struct {
	ConfigPath string
	APIURL     string
	DataDir    string
	Verbose    bool
	Ephemeral  bool
	Version    string

	stdin   *bufio.Reader
	cfg     *config.Config
	logger  *log.Logger
	logFile *os.File
	slots   *store.Badger
	client  *api.Client
	session *session.Store
	set     *resource.Set
}

// Execute runs the command line and releases everything it opened.
func Execute(version string) error {
	app := &App{Version: version}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd(app).ExecuteContext(ctx)
}

func NewRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "crmdesk",
		Short:        "Terminal client for the CRM API",
		Version:      app.Version,
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Sign in, then open the interactive TUI
  crmdesk login --email you@example.com
  crmdesk tui

  # Scriptable commands
  crmdesk deals pipeline
  crmdesk tasks list --view overdue
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return newTUICmd(app).RunE(cmd, args)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default "+config.DefaultConfigPath()+")")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "API base address (overrides config)")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "Directory for the persisted session (overrides config)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging")
	cmd.PersistentFlags().BoolVar(&app.Ephemeral, "ephemeral", false, "Keep the session in memory only")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newContactsCmd(app))
	cmd.AddCommand(newDealsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newActivitiesCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newVizCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newMCPCmd(app))

	return cmd
}

// open wires config, logging, the slot store, the API client and the
// session, then restores any persisted session. Logs go to errOut, or to
// the configured log file when toFile is set.
func (a *App) open(errOut io.Writer, toFile bool) error {
	if a.session != nil {
		return nil
	}

	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.APIURL != "" {
		cfg.API.URL = strings.TrimRight(a.APIURL, "/")
	}
	if a.DataDir != "" {
		cfg.Data.Dir = a.DataDir
	}
	a.cfg = cfg

	if toFile {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0700); err != nil {
			return fmt.Errorf("failed to create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		errOut = f
	}
	a.logger = newLogger(errOut, cfg.Log.Level, a.Verbose)

	if a.Ephemeral {
		a.slots, err = store.OpenInMemory()
	} else {
		a.slots, err = store.Open(cfg.Data.Dir)
	}
	if err != nil {
		return err
	}

	a.client = api.NewClient(cfg.API.URL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithLogger(a.logger),
	)
	a.session = session.New(a.client, a.slots, session.WithLogger(a.logger))
	a.set = resource.NewSet(a.client, resource.WithLogger(a.logger))

	if err := a.session.Bootstrap(); err != nil {
		// A corrupt slot store leaves us signed out, not broken.
		a.logger.Warn("could not restore session", "err", err)
	}
	a.logger.Debug("ready", "api", cfg.API.URL, "authenticated", a.session.IsAuthenticated())
	return nil
}

func newLogger(w io.Writer, level string, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          config.AppName,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// authed opens the app and insists on a signed-in user.
func (a *App) authed(cmd *cobra.Command) error {
	if err := a.open(cmd.ErrOrStderr(), false); err != nil {
		return err
	}
	if err := a.session.Require(); err != nil {
		return fmt.Errorf("%w: run 'crmdesk login' first", err)
	}
	a.session.OnExpired(func() {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Session expired. Run 'crmdesk login' to sign in again.")
	})
	return nil
}

// Close releases the slot store and log file.
func (a *App) Close() {
	var errs []error
	if a.slots != nil {
		errs = append(errs, a.slots.Close())
		a.slots = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	a.session = nil
	if err := errors.Join(errs...); err != nil && a.logger != nil {
		a.logger.Warn("shutdown", "err", err)
	}
}
