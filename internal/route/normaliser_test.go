package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormaliser(t *testing.T, includeQuery bool, patterns ...string) *Normaliser {
	t.Helper()
	matcher, err := NewMatcher(patterns)
	require.NoError(t, err)
	n, err := NewNormaliser("https://Example.com", matcher, includeQuery)
	require.NoError(t, err)
	return n
}

func TestNormaliser_Normalise(t *testing.T) {
	t.Parallel()

	n := newTestNormaliser(t, false)
	cases := []struct {
		name     string
		raw      string
		wantPath string
		wantURL  string
	}{
		{"root", "https://example.com", "/", "https://example.com/"},
		{"relative", "about", "/about", "https://example.com/about"},
		{"trailing slash", "/docs/", "/docs", "https://example.com/docs"},
		{"dot segments", "/a/b/../c", "/a/c", "https://example.com/a/c"},
		{"fragment and query dropped", "/pricing?plan=pro#faq", "/pricing", "https://example.com/pricing"},
		{"foreign host collapses to site", "https://cdn.example.org/blog", "/blog", "https://example.com/blog"},
		{"escaped path", "/hello world", "/hello world", "https://example.com/hello%20world"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := n.Normalise(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPath, r.Path)
			assert.Equal(t, tc.wantURL, r.URL)
			assert.Empty(t, r.DiscoveredFrom)
			assert.NotEmpty(t, r.ID)
		})
	}
}

func TestNormaliser_Idempotent(t *testing.T) {
	t.Parallel()

	for _, includeQuery := range []bool{false, true} {
		n := newTestNormaliser(t, includeQuery, "/blog/:slug")
		for _, raw := range []string{
			"/blog/hello-world/?b=2&a=1#top",
			"https://example.com/products/123/",
			"/hello world",
		} {
			first, err := n.Normalise(raw)
			require.NoError(t, err)
			second, err := n.Normalise(first.URL)
			require.NoError(t, err)
			require.Equal(t, first, second, "raw=%q includeQuery=%v", raw, includeQuery)
		}
	}
}

func TestNormaliser_IncludeQuery(t *testing.T) {
	t.Parallel()

	n := newTestNormaliser(t, true)
	r, err := n.Normalise("/search?b=2&a=1")
	require.NoError(t, err)
	assert.Equal(t, "/search?a=1&b=2", r.Path)
	assert.Equal(t, "https://example.com/search?a=1&b=2", r.URL)
	assert.Equal(t, "/search", r.Definition.Path)
}

func TestNormaliser_Errors(t *testing.T) {
	t.Parallel()

	n := newTestNormaliser(t, false)
	for _, raw := range []string{"", "   ", "%zz", "http://[::1"} {
		_, err := n.Normalise(raw)
		require.ErrorIs(t, err, ErrInvalidURL, "raw=%q", raw)
	}

	_, err := NewNormaliser("/relative", nil, false)
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestNormaliser_SamePathSameID(t *testing.T) {
	t.Parallel()

	n := newTestNormaliser(t, false)
	a, err := n.Normalise("/x/")
	require.NoError(t, err)
	b, err := n.Normalise("https://example.com/x#frag")
	require.NoError(t, err)
	c, err := n.Normalise("/y")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	root, err := n.Normalise("https://example.com")
	require.NoError(t, err)
	assert.True(t, IsRootPath(root.Path))
	assert.False(t, IsRootPath(c.Path))
}
