package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/config"
	"github.com/JakeFAU/site-route-discovery/internal/discovery"
	"github.com/JakeFAU/site-route-discovery/internal/fetcher"
	"github.com/JakeFAU/site-route-discovery/internal/fetcher/headless"
	"github.com/JakeFAU/site-route-discovery/internal/policy/ratelimit"
	"github.com/JakeFAU/site-route-discovery/internal/route"
	"github.com/JakeFAU/site-route-discovery/internal/sitemap"
)

// discoveryKit bundles the seed resolution pieces shared by scan and routes.
type discoveryKit struct {
	opts       discovery.Options
	normaliser *route.Normaliser
	service    *discovery.Service
}

func buildDiscovery(cfg config.Config, logger *zap.Logger) (*discoveryKit, error) {
	key, err := cfg.GroupKey()
	if err != nil {
		return nil, err
	}
	matcher, err := route.NewMatcher(cfg.Routes.Definitions)
	if err != nil {
		return nil, fmt.Errorf("compile route definitions: %w", err)
	}
	normaliser, err := route.NewNormaliser(cfg.Site, matcher, cfg.Scanner.IncludeQuery)
	if err != nil {
		return nil, fmt.Errorf("init normaliser: %w", err)
	}

	opts := discovery.Options{
		Site:            cfg.Site,
		Sitemap:         cfg.Scanner.Sitemap,
		Crawler:         cfg.Scanner.Crawler,
		DynamicSampling: cfg.Scanner.DynamicSampling,
		GroupKey:        key,
	}
	extractor := sitemap.New(sitemap.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
		MaxDepth:  cfg.Scanner.SitemapMaxDepth,
	}, logger.Named("sitemap"))
	discoveryLogger := logger.Named("discovery")
	resolver := discovery.NewResolver(opts, discovery.StaticURLs(cfg.URLs), extractor, discoveryLogger)

	return &discoveryKit{
		opts:       opts,
		normaliser: normaliser,
		service:    discovery.NewService(opts, resolver, normaliser, nil, discoveryLogger),
	}, nil
}

type closableFetcher interface {
	fetcher.Fetcher
	Close()
}

func buildHeadless(cfg config.Config, logger *zap.Logger) (closableFetcher, error) {
	if !cfg.Headless.Enabled {
		if !cfg.Scanner.SkipJavascript {
			logger.Warn("Headless rendering disabled but javascript is required; every route will fail")
		} else {
			logger.Info("Headless rendering disabled; javascript escalation is off")
		}
		return headless.NewNoop(), nil
	}
	hosts := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Headless.HostRPS,
		DefaultBurst: cfg.Headless.HostBurst,
	})
	f, err := headless.NewChromedp(headless.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: cfg.Headless.NavTimeout(),
		SettleDelay:       cfg.Headless.SettleDelay(),
		ExecPath:          cfg.Headless.ExecPath,
	}, hosts)
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	return f, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
