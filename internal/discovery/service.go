package discovery

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/metrics"
	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// Service turns resolved seed URLs into the initial worklist.
type Service struct {
	opts       Options
	resolver   *Resolver
	normaliser Normaliser
	rng        *rand.Rand
	logger     *zap.Logger
}

// NewService builds a Service. A nil rng uses the package-level source.
func NewService(opts Options, resolver *Resolver, normaliser Normaliser, rng *rand.Rand, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		opts:       opts,
		resolver:   resolver,
		normaliser: normaliser,
		rng:        rng,
		logger:     logger,
	}
}

// ResolveReportableRoutes resolves, normalises and (when enabled) samples
// the seed routes. Seed routes never carry a DiscoveredFrom.
func (s *Service) ResolveReportableRoutes(ctx context.Context) ([]route.Route, error) {
	urls, err := s.resolver.ResolveSeedRoutes(ctx)
	if err != nil {
		return nil, err
	}

	routes := make([]route.Route, 0, len(urls))
	for _, u := range urls {
		r, err := s.normaliser.Normalise(u)
		if err != nil {
			return nil, fmt.Errorf("normalise seed url %q: %w", u, err)
		}
		routes = append(routes, r)
	}

	if s.opts.DynamicSampling <= 0 {
		return routes, nil
	}

	sampled := Sample(routes, s.opts.GroupKey, s.opts.DynamicSampling, s.rng)
	if dropped := len(routes) - len(sampled); dropped > 0 {
		metrics.ObserveSampledOut(dropped)
		s.logger.Info("Sampled seed routes by route template",
			zap.Int("before", len(routes)),
			zap.Int("after", len(sampled)),
			zap.Int("sample_size", s.opts.DynamicSampling),
			zap.Stringer("group_key", s.opts.GroupKey),
		)
	}
	return sampled, nil
}
