package route

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidURL is returned when a raw URL cannot be turned into a route.
var ErrInvalidURL = errors.New("invalid route url")

// Normaliser turns raw URLs (absolute or site-relative) into Routes anchored
// on the configured site origin.
type Normaliser struct {
	origin       *url.URL
	matcher      *Matcher
	includeQuery bool
}

// NewNormaliser builds a Normaliser for site. A nil matcher infers templates
// from the path shape alone.
func NewNormaliser(site string, matcher *Matcher, includeQuery bool) (*Normaliser, error) {
	origin, err := url.Parse(strings.TrimSpace(site))
	if err != nil {
		return nil, fmt.Errorf("parse site %q: %w", site, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("site %q must be an absolute url: %w", site, ErrInvalidURL)
	}
	if matcher == nil {
		matcher = &Matcher{}
	}
	return &Normaliser{
		origin: &url.URL{
			Scheme: strings.ToLower(origin.Scheme),
			Host:   strings.ToLower(origin.Host),
		},
		matcher:      matcher,
		includeQuery: includeQuery,
	}, nil
}

// Normalise resolves raw against the site and returns its canonical Route.
// Only the path (and optionally the query) of raw is kept; the host is always
// the site's. Normalising the URL of a returned Route yields the same Route.
func (n *Normaliser) Normalise(raw string) (Route, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Route{}, fmt.Errorf("empty url: %w", ErrInvalidURL)
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return Route{}, fmt.Errorf("parse %q: %v: %w", raw, err, ErrInvalidURL)
	}
	resolved := n.origin.ResolveReference(ref)

	canonical := cleanPath(resolved.Path)
	target := url.URL{
		Scheme: n.origin.Scheme,
		Host:   n.origin.Host,
		Path:   canonical,
	}
	routePath := canonical
	if n.includeQuery && resolved.RawQuery != "" {
		target.RawQuery = resolved.Query().Encode()
		routePath = canonical + "?" + target.RawQuery
	}

	return Route{
		ID:         hashPath(routePath),
		Path:       routePath,
		URL:        target.String(),
		Definition: n.matcher.Match(canonical),
	}, nil
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}
