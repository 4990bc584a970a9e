// Package cmd defines and implements the CLI commands for the routescan
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/config"
	"github.com/JakeFAU/site-route-discovery/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App carries the services every subcommand needs.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Logger.Sync() //nolint:errcheck // stderr sync fails on some platforms
}

// newApp is the application factory. It is a variable so tests can swap it.
var newApp = func(cmd *cobra.Command) (*App, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("read --config: %w", err)
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &App{Config: cfg, Logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routescan",
		Short: "Discovers and scans the routes of a website.",
		Long: `routescan builds the list of pages a site audit should visit. It merges a
manual URL list with the site's sitemap, crawls internal links as pages are
scanned, switches to a headless browser when the home page only renders with
JavaScript, and samples routes that share a template.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().String("site", "", "absolute root url of the site to scan")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newScanCmd(), newRoutesCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "routescan:", err)
		stop()
		os.Exit(1)
	}
}
