// Package scanner runs the scan workers that fetch queued routes, extract
// their internal links and report the outcome.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/discovery"
	"github.com/JakeFAU/site-route-discovery/internal/fetcher"
	"github.com/JakeFAU/site-route-discovery/internal/hooks"
	"github.com/JakeFAU/site-route-discovery/internal/metrics"
	"github.com/JakeFAU/site-route-discovery/internal/queue/memory"
	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// WorkQueue is the consumer side of the route queue.
type WorkQueue interface {
	Dequeue(ctx context.Context) (memory.Lease, error)
	Complete(lease memory.Lease, outcome memory.Outcome)
	Drained() <-chan struct{}
	Len() int
}

// Deps are the collaborators shared by every worker of a scan.
type Deps struct {
	Queue WorkQueue
	// Lightweight fetches pages without executing scripts.
	Lightweight fetcher.Fetcher
	// Headless fetches pages with JavaScript executed.
	Headless fetcher.Fetcher
	Render   *discovery.RenderSwitch
	Bus      *hooks.Bus
	Logger   *zap.Logger
}

// Config controls worker behavior.
type Config struct {
	Site string
	// Crawler enables discovered-internal-links events.
	Crawler bool
	Workers int
}

// Worker consumes routes from the queue one at a time.
type Worker struct {
	id        int
	site      *url.URL
	siteLabel string
	crawler   bool
	deps      Deps
	logger    *zap.Logger
}

func newWorker(id int, site *url.URL, cfg Config, deps Deps) *Worker {
	return &Worker{
		id:        id,
		site:      site,
		siteLabel: metrics.SanitizeSite(cfg.Site),
		crawler:   cfg.Crawler,
		deps:      deps,
		logger:    deps.Logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming routes until the context finishes or the queue is
// closed. Only hook failures are returned.
func (w *Worker) Run(ctx context.Context) error {
	for {
		lease, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, memory.ErrQueueClosed) {
				return nil
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			return fmt.Errorf("worker %d dequeue: %w", w.id, err)
		}
		w.logger.Debug("dequeued route", zap.String("path", lease.Route.Path))
		if err := w.process(ctx, lease); err != nil {
			return err
		}
	}
}

func (w *Worker) process(ctx context.Context, lease memory.Lease) error {
	r := lease.Route
	mode, f := w.pickFetcher()
	page, fetchErr := f.Fetch(ctx, r.URL)
	metrics.ObservePage(w.siteLabel, mode, page.StatusCode, page.Duration)

	outcome := memory.Outcome{
		StatusCode: page.StatusCode,
		Rendered:   page.Rendered,
		Err:        fetchErr,
	}
	if fetchErr != nil {
		if ctx.Err() != nil {
			w.deps.Queue.Complete(lease, outcome)
			return nil
		}
		w.logger.Warn("route fetch failed",
			zap.String("url", r.URL),
			zap.String("mode", mode),
			zap.Error(fetchErr),
		)
		return w.finish(ctx, lease, outcome)
	}

	links := w.links(r, page)
	outcome.LinksFound = len(links)
	if w.crawler {
		payload := hooks.LinksDiscovered{OriginPath: r.Path, Links: links}
		if err := w.deps.Bus.DiscoveredInternalLinks.Emit(ctx, payload); err != nil {
			outcome.Err = err
			w.deps.Queue.Complete(lease, outcome)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("route %s: %w", r.Path, err)
		}
	}
	return w.finish(ctx, lease, outcome)
}

func (w *Worker) finish(ctx context.Context, lease memory.Lease, outcome memory.Outcome) error {
	r := lease.Route
	w.deps.Queue.Complete(lease, outcome)
	w.logger.Debug("route completed",
		zap.String("path", r.Path),
		zap.Int("status", outcome.StatusCode),
		zap.Int("links", outcome.LinksFound),
		zap.Bool("rendered", outcome.Rendered),
	)
	event := hooks.RouteCompleted{
		Route:      r,
		StatusCode: outcome.StatusCode,
		Rendered:   outcome.Rendered,
		Err:        outcome.Err,
	}
	if err := w.deps.Bus.RouteCompleted.Emit(ctx, event); err != nil {
		return fmt.Errorf("route %s: %w", r.Path, err)
	}
	return nil
}

// pickFetcher reads the render switch on every call so routes dequeued after
// an escalation are rendered.
func (w *Worker) pickFetcher() (string, fetcher.Fetcher) {
	if w.deps.Render.SkipJavascript() {
		return fetcher.ModeLightweight, w.deps.Lightweight
	}
	return fetcher.ModeHeadless, w.deps.Headless
}

func (w *Worker) links(r route.Route, page fetcher.Page) []string {
	if page.StatusCode >= http.StatusBadRequest || !isHTML(page.Headers.Get("Content-Type")) {
		return nil
	}
	pageURL := page.URL
	if pageURL == "" {
		pageURL = r.URL
	}
	links, err := ExtractLinks(w.site, pageURL, page.Body)
	if err != nil {
		w.logger.Warn("link extraction failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	return links
}
