// Package fetcher defines the page fetch contract shared by the lightweight
// and headless fetchers.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Mode names used in logs and metrics.
const (
	ModeLightweight = "lightweight"
	ModeHeadless    = "headless"
)

// ErrUnavailable is returned by fetchers that cannot serve requests in the
// current build or configuration.
var ErrUnavailable = errors.New("fetcher not available")

// Page is a fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	// Rendered is true when JavaScript was executed to produce Body.
	Rendered bool
}

// Fetcher retrieves a single page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}
