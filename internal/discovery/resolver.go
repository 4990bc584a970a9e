package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/metrics"
)

// Resolver produces the raw seed URLs of a scan in precedence order: the
// manual list (or the site root), then the sitemap.
type Resolver struct {
	opts     Options
	urls     URLsFunc
	sitemaps SitemapExtractor
	logger   *zap.Logger
}

// NewResolver builds a Resolver. urls and sitemaps may be nil.
func NewResolver(opts Options, urls URLsFunc, sitemaps SitemapExtractor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		opts:     opts,
		urls:     urls,
		sitemaps: sitemaps,
		logger:   logger,
	}
}

// ResolveSeedRoutes returns the base list followed by any sitemap URLs. No
// deduplication happens here. A missing or empty sitemap is logged, never
// returned as an error; errors from the URL provider are.
func (r *Resolver) ResolveSeedRoutes(ctx context.Context) ([]string, error) {
	urls, err := r.baseURLs(ctx)
	if err != nil {
		return nil, err
	}

	if !r.opts.Sitemap {
		return urls, nil
	}

	sitemapURLs := r.extractSitemap(ctx)
	switch {
	case len(sitemapURLs) > 0:
		r.logger.Info("Discovered routes from sitemap.xml",
			zap.Int("count", len(sitemapURLs)),
			zap.String("site", r.opts.Site),
		)
		metrics.ObserveSeeded("sitemap", len(sitemapURLs))
		urls = append(urls, sitemapURLs...)
	case r.opts.Crawler:
		r.logger.Info("Sitemap appears to be missing, falling back to crawler mode",
			zap.String("site", r.opts.Site),
		)
	default:
		r.logger.Error("Failed to find sitemap.xml and the crawler is disabled; only the base routes will be scanned",
			zap.String("site", r.opts.Site),
			zap.Int("base_routes", len(urls)),
		)
	}
	return urls, nil
}

func (r *Resolver) baseURLs(ctx context.Context) ([]string, error) {
	if r.urls == nil {
		metrics.ObserveSeeded("site", 1)
		return []string{r.opts.Site}, nil
	}
	urls, err := r.urls(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve provider urls: %w", err)
	}
	metrics.ObserveSeeded("manual", len(urls))
	return append([]string(nil), urls...), nil
}

// extractSitemap folds extraction failures into an empty result.
func (r *Resolver) extractSitemap(ctx context.Context) []string {
	if r.sitemaps == nil {
		return nil
	}
	urls, err := r.sitemaps.Extract(ctx, r.opts.Site)
	if err != nil {
		r.logger.Debug("sitemap extraction failed", zap.String("site", r.opts.Site), zap.Error(err))
		return nil
	}
	return urls
}
