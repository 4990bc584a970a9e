package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/site-route-discovery/internal/discovery"
)

const defaultWorkers = 4

// Dispatcher fans queued routes out to a pool of workers.
type Dispatcher struct {
	queue   WorkQueue
	workers []*Worker
	logger  *zap.Logger
}

// NewDispatcher validates deps and builds cfg.Workers workers.
func NewDispatcher(cfg Config, deps Deps) (*Dispatcher, error) {
	site, err := url.Parse(cfg.Site)
	if err != nil || site.Host == "" {
		return nil, fmt.Errorf("scanner site %q is not an absolute url", cfg.Site)
	}
	if deps.Queue == nil {
		return nil, errors.New("scanner requires a work queue")
	}
	if deps.Lightweight == nil || deps.Headless == nil {
		return nil, errors.New("scanner requires lightweight and headless fetchers")
	}
	if deps.Bus == nil {
		return nil, errors.New("scanner requires a hook bus")
	}
	if deps.Render == nil {
		deps.Render = discovery.NewRenderSwitch(true)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	n := cfg.Workers
	if n <= 0 {
		n = defaultWorkers
	}
	workers := make([]*Worker, 0, n)
	for i := 0; i < n; i++ {
		workers = append(workers, newWorker(i+1, site, cfg, deps))
	}
	return &Dispatcher{queue: deps.Queue, workers: workers, logger: deps.Logger}, nil
}

// Run starts every worker and blocks until the queue drains, a worker fails,
// or ctx ends. It returns ctx's error when the scan was interrupted.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.queue.Len() == 0 {
		d.logger.Warn("nothing queued; scan skipped")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		select {
		case <-d.queue.Drained():
			d.logger.Info("route queue drained")
		case <-runCtx.Done():
		}
		stop()
		return nil
	})
	for _, w := range d.workers {
		g.Go(func() error {
			return w.Run(runCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}
	return nil
}
