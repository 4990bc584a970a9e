// Package sitemap extracts page URLs from a site's XML sitemaps, following
// sitemap indexes and the Sitemap directives of robots.txt.
package sitemap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxDepth = 3
	robotsMaxBytes  = 1 << 20
)

// Config controls the extractor.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxDepth bounds how many sitemap index levels are followed.
	MaxDepth int
}

// Extractor implements discovery.SitemapExtractor on top of a colly collector.
type Extractor struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds an Extractor.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Extract returns the same-host page URLs listed by the site's sitemaps, in
// document order and without duplicates. It returns an error only when no
// sitemap could be read at all.
func (e *Extractor) Extract(ctx context.Context, site string) ([]string, error) {
	origin, err := url.Parse(site)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("sitemap site %q is not an absolute url", site)
	}

	locations := e.robotsSitemaps(ctx, origin)
	if len(locations) == 0 {
		locations = []string{origin.Scheme + "://" + origin.Host + "/sitemap.xml"}
	}

	state := &extraction{host: origin.Hostname(), seen: make(map[string]struct{})}
	collector := e.newCollector(state)

	var visitErrs []error
	for _, loc := range locations {
		if err := e.visit(ctx, collector, loc); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("sitemap extraction canceled: %w", ctx.Err())
			}
			visitErrs = append(visitErrs, err)
		}
	}

	urls, fetched, fetchErrs := state.result()
	if fetched == 0 {
		return nil, errors.Join(append(visitErrs, fetchErrs...)...)
	}
	e.logger.Debug("sitemap extracted",
		zap.String("site", site),
		zap.Int("sitemaps", fetched),
		zap.Int("urls", len(urls)),
	)
	return urls, nil
}

func (e *Extractor) newCollector(state *extraction) *colly.Collector {
	collector := colly.NewCollector(colly.Async(false))
	if e.cfg.UserAgent != "" {
		collector.UserAgent = e.cfg.UserAgent
	}
	collector.AllowURLRevisit = false
	collector.SetRequestTimeout(e.cfg.Timeout)

	collector.OnResponse(func(*colly.Response) {
		state.markFetched()
	})
	collector.OnXML("//urlset/url/loc", func(el *colly.XMLElement) {
		state.add(el.Text)
	})
	collector.OnXML("//sitemapindex/sitemap/loc", func(el *colly.XMLElement) {
		if el.Request.Depth > e.cfg.MaxDepth {
			e.logger.Debug("sitemap index too deep; skipping child", zap.String("loc", el.Text))
			return
		}
		child := strings.TrimSpace(el.Text)
		if err := el.Request.Visit(child); err != nil && !alreadyVisited(err) {
			e.logger.Debug("failed to visit child sitemap", zap.String("loc", child), zap.Error(err))
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		state.fail(fmt.Errorf("fetch %s: %w", r.Request.URL, err))
	})
	return collector
}

func (e *Extractor) visit(ctx context.Context, collector *colly.Collector, loc string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(loc)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sitemap fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil && !alreadyVisited(err) {
			return fmt.Errorf("visit sitemap %s: %w", loc, err)
		}
		return nil
	}
}

func alreadyVisited(err error) bool {
	var visited *colly.AlreadyVisitedError
	return errors.As(err, &visited)
}

// robotsSitemaps reads the Sitemap directives of robots.txt. Any failure
// yields no locations.
func (e *Extractor) robotsSitemaps(ctx context.Context, origin *url.URL) []string {
	robotsURL := origin.Scheme + "://" + origin.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("robots.txt fetch failed", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		e.logger.Debug("robots.txt parse failed", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}
	return data.Sitemaps
}

type extraction struct {
	host string

	mu      sync.Mutex
	urls    []string
	seen    map[string]struct{}
	fetched int
	errs    []error
}

func (s *extraction) add(raw string) {
	loc := strings.TrimSpace(raw)
	u, err := url.Parse(loc)
	if err != nil || !strings.EqualFold(u.Hostname(), s.host) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[loc]; ok {
		return
	}
	s.seen[loc] = struct{}{}
	s.urls = append(s.urls, loc)
}

func (s *extraction) markFetched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched++
}

func (s *extraction) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *extraction) result() ([]string, int, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...), s.fetched, append([]error(nil), s.errs...)
}
