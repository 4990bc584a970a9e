package discovery

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// MockSitemapExtractor is a mock implementation of the SitemapExtractor interface.
type MockSitemapExtractor struct {
	mock.Mock
}

func (m *MockSitemapExtractor) Extract(ctx context.Context, site string) ([]string, error) {
	args := m.Called(ctx, site)
	urls, _ := args.Get(0).([]string)
	return urls, args.Error(1)
}

// MockWorkQueue is a mock implementation of the WorkQueue interface.
type MockWorkQueue struct {
	mock.Mock
}

func (m *MockWorkQueue) QueueRoute(ctx context.Context, r route.Route) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockWorkQueue) QueueRoutes(ctx context.Context, routes []route.Route) error {
	args := m.Called(ctx, routes)
	return args.Error(0)
}

func (m *MockWorkQueue) ClearReports() {
	m.Called()
}

// MockNormaliser is a mock implementation of the Normaliser interface.
type MockNormaliser struct {
	mock.Mock
}

func (m *MockNormaliser) Normalise(raw string) (route.Route, error) {
	args := m.Called(raw)
	return args.Get(0).(route.Route), args.Error(1)
}
