package discovery

import (
	"context"

	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// SitemapExtractor lists the page URLs advertised by a site's sitemap. An
// error and an empty result are treated alike.
type SitemapExtractor interface {
	Extract(ctx context.Context, site string) ([]string, error)
}

// Normaliser converts a raw URL into a Route. It must be deterministic and
// idempotent.
type Normaliser interface {
	Normalise(raw string) (route.Route, error)
}

// WorkQueue is the live queue that owns routes once handed off. It must be
// safe for concurrent callers.
type WorkQueue interface {
	QueueRoute(ctx context.Context, r route.Route) error
	QueueRoutes(ctx context.Context, routes []route.Route) error
	ClearReports()
}

// URLsFunc supplies an explicit list of URLs to scan in place of the site root.
type URLsFunc func(ctx context.Context) ([]string, error)

// StaticURLs returns a URLsFunc for a fixed list. An empty list yields nil so
// the site root is used instead.
func StaticURLs(urls []string) URLsFunc {
	if len(urls) == 0 {
		return nil
	}
	list := append([]string(nil), urls...)
	return func(context.Context) ([]string, error) {
		return append([]string(nil), list...), nil
	}
}

// Options are the discovery knobs, decoupled from how configuration is loaded.
type Options struct {
	// Site is the absolute root URL of the scan.
	Site string
	// Sitemap enables sitemap extraction.
	Sitemap bool
	// Crawler enables queuing of links discovered while scanning.
	Crawler bool
	// DynamicSampling is the per-template sample size; <= 0 disables sampling.
	DynamicSampling int
	// GroupKey selects the route attribute used for sampling groups.
	GroupKey route.GroupKey
}
