// ABOUTME: Local development server for the CRM REST API
// ABOUTME: Serves the in-memory mock API, optionally seeded with a demo account
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/crmdesk/mockapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr         string
		secret       string
		seed         bool
		demoPassword string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:          "crm-mockapi",
		Short:        "Run an in-memory CRM API for local development",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				ReportTimestamp: true,
				Prefix:          "mockapi",
			})
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}

			var opts []mockapi.Option
			if secret != "" {
				opts = append(opts, mockapi.WithSecret(secret))
			}
			api := mockapi.New(opts...)

			if seed {
				email, err := api.SeedDemo(demoPassword)
				if err != nil {
					return fmt.Errorf("failed to seed demo data: %w", err)
				}
				logger.Info("Seeded demo account", "email", email, "password", demoPassword)
			}

			return serve(cmd.Context(), logger, addr, api)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:5000", "Listen address")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("CRM_MOCKAPI_SECRET"), "Token signing secret")
	cmd.Flags().BoolVar(&seed, "seed", true, "Load the demo data set")
	cmd.Flags().StringVar(&demoPassword, "demo-password", "demo", "Password of the demo account")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every request")
	return cmd
}

func serve(ctx context.Context, logger *log.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "addr", "http://"+addr, "api", "http://"+addr+"/api", "metrics", "http://"+addr+"/metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "err", err)
		return err
	}
	return nil
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}
