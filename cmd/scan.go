package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/clock/system"
	"github.com/JakeFAU/site-route-discovery/internal/config"
	"github.com/JakeFAU/site-route-discovery/internal/discovery"
	collyfetcher "github.com/JakeFAU/site-route-discovery/internal/fetcher/colly"
	"github.com/JakeFAU/site-route-discovery/internal/hooks"
	"github.com/JakeFAU/site-route-discovery/internal/id/uuid"
	"github.com/JakeFAU/site-route-discovery/internal/metrics"
	"github.com/JakeFAU/site-route-discovery/internal/queue/memory"
	"github.com/JakeFAU/site-route-discovery/internal/route"
	"github.com/JakeFAU/site-route-discovery/internal/scanner"
)

const metricsShutdownTimeout = 5 * time.Second

// scanSummary is the JSON document printed once a scan finishes.
type scanSummary struct {
	ScanID     string          `json:"scan_id"`
	Site       string          `json:"site"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Escalated  bool            `json:"javascript_escalated"`
	Completed  int             `json:"completed"`
	Failed     int             `json:"failed"`
	Reports    []memory.Report `json:"reports"`
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scans a site, discovering routes as it goes",
		Long: `Resolves the seed routes, then fetches every queued route with a pool of
workers. Internal links found on each page are queued as new routes until the
route limit is reached. A JSON report of every route is printed at the end.`,
		RunE: runScanCommand,
	}
	cmd.Flags().StringSlice("url", nil, "explicit url to scan instead of the site root (repeatable)")
	cmd.Flags().Int("sampling", 0, "seed routes kept per template; 0 disables sampling")
	cmd.Flags().Int("max-routes", 0, "maximum number of routes to scan")
	cmd.Flags().Bool("no-sitemap", false, "do not read the sitemap")
	cmd.Flags().Bool("no-crawler", false, "do not queue links discovered on scanned pages")
	cmd.Flags().Bool("render", false, "execute JavaScript from the first page on")
	cmd.Flags().Int("concurrency", 0, "number of scan workers")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while scanning")
	cmd.Flags().String("group-routes-by", "", "route attribute used for sampling groups")
	return cmd
}

func runScanCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	summary, runErr := runScan(cmd.Context(), appInstance.Config, appInstance.Logger)
	if summary != nil {
		if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func runScan(ctx context.Context, cfg config.Config, baseLogger *zap.Logger) (*scanSummary, error) {
	scanID, err := uuid.New().NewScanID()
	if err != nil {
		return nil, err
	}
	logger := baseLogger.With(zap.String("scan_id", scanID), zap.String("site", cfg.Site))
	clock := system.New()
	startedAt := clock.Now()

	if cfg.Metrics.Addr != "" {
		srv, err := metrics.Listen(cfg.Metrics.Addr, logger.Named("metrics"))
		if err != nil {
			return nil, fmt.Errorf("start metrics server: %w", err)
		}
		go srv.Serve()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to stop metrics server", zap.Error(err))
			}
		}()
	}

	kit, err := buildDiscovery(cfg, logger)
	if err != nil {
		return nil, err
	}
	seeds, err := kit.service.ResolveReportableRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve seed routes: %w", err)
	}

	bus := hooks.NewBus()
	queue := memory.NewQueue(memory.Config{
		MaxRoutes: cfg.Scanner.MaxRoutes,
		Clock:     clock,
		Logger:    logger.Named("queue"),
		Queued:    bus.RouteQueued,
	})
	defer queue.Close()

	render := discovery.NewRenderSwitch(cfg.Scanner.SkipJavascript)
	unhook, err := discovery.RegisterLinkDiscoveryReactor(kit.opts, bus.DiscoveredInternalLinks, discovery.ReactorDeps{
		Normaliser:        kit.normaliser,
		Queue:             queue,
		Render:            render,
		RenderUnavailable: !cfg.Headless.Enabled,
		Logger:            logger.Named("discovery"),
	})
	if err != nil {
		return nil, fmt.Errorf("register link discovery: %w", err)
	}
	defer unhook()
	defer hookProgressLogging(bus, logger)()

	if err := queue.QueueRoutes(ctx, seeds); err != nil {
		return nil, fmt.Errorf("queue seed routes: %w", err)
	}

	renderer, err := buildHeadless(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer renderer.Close()

	dispatcher, err := scanner.NewDispatcher(scanner.Config{
		Site:    cfg.Site,
		Crawler: cfg.Scanner.Crawler,
		Workers: cfg.Crawler.Concurrency,
	}, scanner.Deps{
		Queue: queue,
		Lightweight: collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.HTTPTimeout(),
		}),
		Headless: renderer,
		Render:   render,
		Bus:      bus,
		Logger:   logger.Named("scanner"),
	})
	if err != nil {
		return nil, fmt.Errorf("init scanner: %w", err)
	}

	logger.Info("Scan started", zap.Int("seed_routes", len(seeds)), zap.Int("workers", cfg.Crawler.Concurrency))
	runErr := dispatcher.Run(ctx)

	summary := summarise(scanID, cfg.Site, startedAt, clock.Now(), render, queue.Reports())
	logger.Info("Scan finished",
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Bool("javascript_escalated", summary.Escalated),
		zap.Duration("elapsed", clock.Since(startedAt)),
	)
	return summary, runErr
}

// hookProgressLogging logs queue and completion events; the returned func
// unsubscribes.
func hookProgressLogging(bus *hooks.Bus, logger *zap.Logger) func() {
	unqueued := bus.RouteQueued.Hook(func(_ context.Context, r route.Route) error {
		logger.Debug("route queued",
			zap.String("event", bus.RouteQueued.Name()),
			zap.String("path", r.Path),
			zap.String("definition", r.Definition.Name),
			zap.String("discovered_from", r.DiscoveredFrom),
		)
		return nil
	})
	uncompleted := bus.RouteCompleted.Hook(func(_ context.Context, ev hooks.RouteCompleted) error {
		fields := []zap.Field{
			zap.String("event", bus.RouteCompleted.Name()),
			zap.String("path", ev.Route.Path),
			zap.Int("status", ev.StatusCode),
			zap.Bool("rendered", ev.Rendered),
		}
		if ev.Err != nil {
			logger.Warn("route failed", append(fields, zap.Error(ev.Err))...)
			return nil
		}
		logger.Info("route scanned", fields...)
		return nil
	})
	return func() {
		unqueued()
		uncompleted()
	}
}

func summarise(
	scanID, site string,
	startedAt, finishedAt time.Time,
	render *discovery.RenderSwitch,
	reports []memory.Report,
) *scanSummary {
	summary := &scanSummary{
		ScanID:     scanID,
		Site:       site,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Escalated:  render.Escalated(),
		Reports:    reports,
	}
	for _, rep := range reports {
		switch rep.Status {
		case memory.StatusCompleted:
			summary.Completed++
		case memory.StatusFailed:
			summary.Failed++
		}
	}
	return summary
}
