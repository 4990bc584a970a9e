package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/site-route-discovery/internal/hooks"
	"github.com/JakeFAU/site-route-discovery/internal/route"
)

func newRouteNormaliser(t *testing.T) *route.Normaliser {
	t.Helper()
	n, err := route.NewNormaliser(testSite, nil, false)
	require.NoError(t, err)
	return n
}

func emitLinks(t *testing.T, bus *hooks.Bus, origin string, links ...string) error {
	t.Helper()
	return bus.DiscoveredInternalLinks.Emit(context.Background(), hooks.LinksDiscovered{
		OriginPath: origin,
		Links:      links,
	})
}

func TestReactor_NotRegisteredWithoutCrawler(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	unhook, err := RegisterLinkDiscoveryReactor(Options{Crawler: false}, bus.DiscoveredInternalLinks, ReactorDeps{})
	require.NoError(t, err)
	require.NotNil(t, unhook)
	assert.Equal(t, 0, bus.DiscoveredInternalLinks.Len())
}

func TestReactor_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, nil, ReactorDeps{})
	require.Error(t, err)
	_, err = RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{})
	require.Error(t, err)
}

func TestReactor_NormalDiscoveryEnqueue(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	var queued []route.Route
	queue.On("QueueRoutes", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { queued = args.Get(1).([]route.Route) }).
		Return(nil)

	unhook, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser: newRouteNormaliser(t),
		Queue:      queue,
		Render:     NewRenderSwitch(true),
	})
	require.NoError(t, err)
	defer unhook()

	require.NoError(t, emitLinks(t, bus, "/about", "/x", "/y"))

	require.Len(t, queued, 2)
	assert.Equal(t, "/x", queued[0].Path)
	assert.Equal(t, "/y", queued[1].Path)
	for _, r := range queued {
		assert.Equal(t, "/about", r.DiscoveredFrom)
	}
	queue.AssertNotCalled(t, "ClearReports")
}

func TestReactor_EscalatesOnce(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	queue.On("ClearReports").Return()
	queue.On("QueueRoute", mock.Anything, mock.MatchedBy(func(r route.Route) bool { return r.Path == "/" })).Return(nil)
	queue.On("QueueRoutes", mock.Anything, []route.Route{}).Return(nil)
	render := NewRenderSwitch(true)
	logger, logs := observedLogger()

	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser: newRouteNormaliser(t),
		Queue:      queue,
		Render:     render,
		Logger:     logger,
	})
	require.NoError(t, err)

	require.NoError(t, emitLinks(t, bus, "/"))
	assert.False(t, render.SkipJavascript())
	assert.True(t, render.Escalated())
	queue.AssertNumberOfCalls(t, "ClearReports", 1)
	queue.AssertNumberOfCalls(t, "QueueRoute", 1)
	queue.AssertNotCalled(t, "QueueRoutes", mock.Anything, mock.Anything)
	assert.Equal(t, 1, logs.FilterMessage("No internal links discovered on home page. Switching crawler to execute javascript.").Len())

	require.NoError(t, emitLinks(t, bus, "/"))
	assert.False(t, render.SkipJavascript())
	queue.AssertNumberOfCalls(t, "ClearReports", 1)
	queue.AssertNumberOfCalls(t, "QueueRoute", 1)
	queue.AssertNumberOfCalls(t, "QueueRoutes", 1)
}

func TestReactor_NoEscalationWhenScriptsAlreadyRun(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	queue.On("QueueRoutes", mock.Anything, []route.Route{}).Return(nil)

	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser: newRouteNormaliser(t),
		Queue:      queue,
		Render:     NewRenderSwitch(false),
	})
	require.NoError(t, err)

	require.NoError(t, emitLinks(t, bus, "/"))
	queue.AssertNotCalled(t, "ClearReports")
}

func TestReactor_NoEscalationWithoutRenderer(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	queue.On("QueueRoutes", mock.Anything, []route.Route{}).Return(nil)
	render := NewRenderSwitch(true)
	core, logs := observer.New(zap.WarnLevel)

	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser:        newRouteNormaliser(t),
		Queue:             queue,
		Render:            render,
		RenderUnavailable: true,
		Logger:            zap.New(core),
	})
	require.NoError(t, err)

	require.NoError(t, emitLinks(t, bus, "/"))
	require.NoError(t, emitLinks(t, bus, "/"))
	queue.AssertNotCalled(t, "ClearReports")
	queue.AssertNotCalled(t, "QueueRoute", mock.Anything, mock.Anything)
	queue.AssertNumberOfCalls(t, "QueueRoutes", 2)
	assert.True(t, render.SkipJavascript())
	assert.False(t, render.Escalated())
	assert.Equal(t, 1, logs.Len())
}

func TestReactor_EmptyLinksOffRootDoNotEscalate(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	queue.On("QueueRoutes", mock.Anything, []route.Route{}).Return(nil)
	render := NewRenderSwitch(true)

	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser: newRouteNormaliser(t),
		Queue:      queue,
		Render:     render,
	})
	require.NoError(t, err)

	require.NoError(t, emitLinks(t, bus, "/about"))
	assert.True(t, render.SkipJavascript())
	queue.AssertNotCalled(t, "ClearReports")
}

func TestReactor_ConcurrentEscalationFlipsOnce(t *testing.T) {
	t.Parallel()

	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	queue.On("ClearReports").Return()
	queue.On("QueueRoute", mock.Anything, mock.Anything).Return(nil)
	queue.On("QueueRoutes", mock.Anything, mock.Anything).Return(nil)
	render := NewRenderSwitch(true)

	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser: newRouteNormaliser(t),
		Queue:      queue,
		Render:     render,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.DiscoveredInternalLinks.Emit(context.Background(), hooks.LinksDiscovered{OriginPath: "/"})
		}()
	}
	wg.Wait()

	queue.AssertNumberOfCalls(t, "ClearReports", 1)
	queue.AssertNumberOfCalls(t, "QueueRoute", 1)
	queue.AssertNumberOfCalls(t, "QueueRoutes", 31)
}

func TestReactor_CollaboratorErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("queue rejected")
	bus := hooks.NewBus()
	queue := new(MockWorkQueue)
	queue.On("QueueRoutes", mock.Anything, mock.Anything).Return(boom)
	normaliser := new(MockNormaliser)
	normaliser.On("Normalise", "/ok").Return(route.Route{Path: "/ok"}, nil)
	normaliser.On("Normalise", "%zz").Return(route.Route{}, route.ErrInvalidURL)

	_, err := RegisterLinkDiscoveryReactor(Options{Crawler: true}, bus.DiscoveredInternalLinks, ReactorDeps{
		Normaliser: normaliser,
		Queue:      queue,
	})
	require.NoError(t, err)

	require.ErrorIs(t, emitLinks(t, bus, "/about", "/ok", "%zz"), route.ErrInvalidURL)
	queue.AssertNotCalled(t, "QueueRoutes", mock.Anything, mock.Anything)

	require.ErrorIs(t, emitLinks(t, bus, "/about", "/ok"), boom)
}
