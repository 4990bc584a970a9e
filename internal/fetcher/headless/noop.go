package headless

import (
	"context"
	"fmt"

	"github.com/JakeFAU/site-route-discovery/internal/fetcher"
)

// Noop stands in for the headless fetcher when rendering is disabled. Every
// fetch fails with fetcher.ErrUnavailable.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails.
func (Noop) Fetch(_ context.Context, url string) (fetcher.Page, error) {
	return fetcher.Page{}, fmt.Errorf("headless fetch %s: %w", url, fetcher.ErrUnavailable)
}

// Close is a no-op.
func (Noop) Close() {}
