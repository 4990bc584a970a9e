package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSite = "https://example.com"

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func countLevel(logs *observer.ObservedLogs, level zapcore.Level) int {
	n := 0
	for _, entry := range logs.All() {
		if entry.Level == level {
			n++
		}
	}
	return n
}

func TestResolveSeedRoutes_ProviderThenSitemap(t *testing.T) {
	t.Parallel()

	sitemaps := new(MockSitemapExtractor)
	sitemaps.On("Extract", mock.Anything, testSite).
		Return([]string{testSite + "/a", testSite + "/b", testSite + "/manual"}, nil)
	manual := StaticURLs([]string{testSite + "/manual", testSite + "/manual"})
	logger, logs := observedLogger()

	r := NewResolver(Options{Site: testSite, Sitemap: true, Crawler: true}, manual, sitemaps, logger)
	urls, err := r.ResolveSeedRoutes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		testSite + "/manual",
		testSite + "/manual",
		testSite + "/a",
		testSite + "/b",
		testSite + "/manual",
	}, urls)
	assert.Equal(t, 1, logs.FilterMessage("Discovered routes from sitemap.xml").Len())
	sitemaps.AssertExpectations(t)
}

func TestResolveSeedRoutes_SiteRootWithoutProvider(t *testing.T) {
	t.Parallel()

	sitemaps := new(MockSitemapExtractor)
	r := NewResolver(Options{Site: testSite}, nil, sitemaps, nil)
	urls, err := r.ResolveSeedRoutes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{testSite}, urls)
	sitemaps.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestResolveSeedRoutes_EmptySitemapLogging(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		crawler     bool
		extracted   []string
		extractErr  error
		wantInfo    int
		wantErrLogs int
	}{
		{name: "empty with crawler", crawler: true, wantInfo: 1},
		{name: "empty without crawler", crawler: false, wantErrLogs: 1},
		{name: "failure with crawler", crawler: true, extractErr: errors.New("dial tcp: refused"), wantInfo: 1},
		{name: "failure without crawler", crawler: false, extractErr: errors.New("404"), wantErrLogs: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sitemaps := new(MockSitemapExtractor)
			sitemaps.On("Extract", mock.Anything, testSite).Return(tc.extracted, tc.extractErr)
			logger, logs := observedLogger()

			r := NewResolver(Options{Site: testSite, Sitemap: true, Crawler: tc.crawler}, nil, sitemaps, logger)
			urls, err := r.ResolveSeedRoutes(context.Background())

			require.NoError(t, err)
			assert.Equal(t, []string{testSite}, urls)
			assert.Equal(t, tc.wantInfo, countLevel(logs, zapcore.InfoLevel))
			assert.Equal(t, tc.wantErrLogs, countLevel(logs, zapcore.ErrorLevel))
			if tc.crawler {
				assert.Equal(t, 1, logs.FilterMessage("Sitemap appears to be missing, falling back to crawler mode").Len())
			}
		})
	}
}

func TestResolveSeedRoutes_ProviderErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("provider down")
	provider := func(context.Context) ([]string, error) { return nil, boom }
	r := NewResolver(Options{Site: testSite, Sitemap: true}, provider, new(MockSitemapExtractor), nil)

	_, err := r.ResolveSeedRoutes(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestStaticURLs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, StaticURLs(nil))

	src := []string{"/a"}
	fn := StaticURLs(src)
	src[0] = "/mutated"
	got, err := fn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/a"}, got)
}
