package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/hooks"
	"github.com/JakeFAU/site-route-discovery/internal/metrics"
	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// ReactorDeps are the collaborators the link-discovery reactor drives.
type ReactorDeps struct {
	Normaliser        Normaliser
	Queue             WorkQueue
	Render            *RenderSwitch
	// RenderUnavailable disables escalation when no headless renderer is
	// configured; a link-less home page is then only reported.
	RenderUnavailable bool
	Logger            *zap.Logger
}

// RegisterLinkDiscoveryReactor subscribes to discovered-internal-links and
// queues every discovered link, stamped with the page it was found on. When
// the home page yields no links while scripts are skipped, it switches to
// JavaScript rendering once, clears the collected reports and re-queues the
// home page instead.
//
// Nothing is registered when the crawler is disabled. The returned function
// removes the subscription.
func RegisterLinkDiscoveryReactor(
	opts Options,
	topic *hooks.Topic[hooks.LinksDiscovered],
	deps ReactorDeps,
) (func(), error) {
	if !opts.Crawler {
		return func() {}, nil
	}
	if topic == nil {
		return nil, errors.New("link discovery reactor requires a hook topic")
	}
	if deps.Normaliser == nil || deps.Queue == nil {
		return nil, errors.New("link discovery reactor requires a normaliser and a work queue")
	}
	if deps.Render == nil {
		deps.Render = NewRenderSwitch(false)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := &reactor{deps: deps}
	return topic.Hook(r.handle), nil
}

type reactor struct {
	deps       ReactorDeps
	warnedOnce sync.Once
}

func (r *reactor) handle(ctx context.Context, payload hooks.LinksDiscovered) error {
	if route.IsRootPath(payload.OriginPath) && len(payload.Links) == 0 {
		escalated, err := r.escalate(ctx)
		if err != nil || escalated {
			return err
		}
	}

	routes := make([]route.Route, 0, len(payload.Links))
	for _, link := range payload.Links {
		rt, err := r.deps.Normaliser.Normalise(link)
		if err != nil {
			return fmt.Errorf("normalise discovered link %q: %w", link, err)
		}
		rt.DiscoveredFrom = payload.OriginPath
		routes = append(routes, rt)
	}
	if err := r.deps.Queue.QueueRoutes(ctx, routes); err != nil {
		return fmt.Errorf("queue discovered routes from %s: %w", payload.OriginPath, err)
	}
	metrics.ObserveDiscoveredLinks(len(routes))
	return nil
}

// escalate flips the render switch and clears the report store in one
// critical section; only the winning caller re-queues the root.
func (r *reactor) escalate(ctx context.Context) (bool, error) {
	if r.deps.RenderUnavailable {
		if r.deps.Render.SkipJavascript() {
			r.warnedOnce.Do(func() {
				r.deps.Logger.Warn("No internal links discovered on home page and headless rendering is disabled; not switching to javascript.")
			})
		}
		return false, nil
	}
	if !r.deps.Render.Escalate(r.deps.Queue.ClearReports) {
		return false, nil
	}
	metrics.ObserveEscalation()
	r.deps.Logger.Info("No internal links discovered on home page. Switching crawler to execute javascript.")

	root, err := r.deps.Normaliser.Normalise(route.RootPath)
	if err != nil {
		return true, fmt.Errorf("normalise root route: %w", err)
	}
	if err := r.deps.Queue.QueueRoute(ctx, root); err != nil {
		return true, fmt.Errorf("re-queue root route: %w", err)
	}
	return true, nil
}
