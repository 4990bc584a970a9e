// Package hooks provides the typed in-process hook bus that scan components use
// to react to each other without direct references.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// Event names, as used in logs and metrics.
const (
	EventDiscoveredInternalLinks = "discovered-internal-links"
	EventRouteQueued             = "route-queued"
	EventRouteCompleted          = "route-completed"
)

// Handler reacts to a hook payload. Handlers must be safe for concurrent use:
// a topic may be emitted from several workers at once.
type Handler[T any] func(ctx context.Context, payload T) error

// Topic is a named list of handlers for one payload type.
type Topic[T any] struct {
	name     string
	mu       sync.RWMutex
	nextID   int
	handlers []registration[T]
}

type registration[T any] struct {
	id int
	fn Handler[T]
}

// NewTopic creates an empty topic.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

// Name returns the event name of the topic.
func (t *Topic[T]) Name() string {
	return t.name
}

// Hook registers fn and returns a function that removes it again.
func (t *Topic[T]) Hook(fn Handler[T]) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.handlers = append(t.handlers, registration[T]{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() { t.unhook(id) })
	}
}

func (t *Topic[T]) unhook(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, reg := range t.handlers {
		if reg.id == id {
			t.handlers = append(t.handlers[:i:i], t.handlers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// Emit calls every handler in registration order on the calling goroutine and
// stops at the first error. The handler list is snapshotted first so handlers
// may hook or unhook while being called.
func (t *Topic[T]) Emit(ctx context.Context, payload T) error {
	t.mu.RLock()
	snapshot := make([]registration[T], len(t.handlers))
	copy(snapshot, t.handlers)
	t.mu.RUnlock()

	for _, reg := range snapshot {
		if err := reg.fn(ctx, payload); err != nil {
			return fmt.Errorf("hook %s: %w", t.name, err)
		}
	}
	return nil
}

// LinksDiscovered is the payload of the discovered-internal-links event.
type LinksDiscovered struct {
	// OriginPath is the canonical path of the page the links were found on.
	OriginPath string
	// Links are the raw internal links in document order.
	Links []string
}

// RouteCompleted is emitted once a worker has finished a route.
type RouteCompleted struct {
	Route      route.Route
	StatusCode int
	Rendered   bool
	Err        error
}

// Bus groups the topics of a scan.
type Bus struct {
	DiscoveredInternalLinks *Topic[LinksDiscovered]
	RouteQueued             *Topic[route.Route]
	RouteCompleted          *Topic[RouteCompleted]
}

// NewBus creates a Bus with every topic initialised.
func NewBus() *Bus {
	return &Bus{
		DiscoveredInternalLinks: NewTopic[LinksDiscovered](EventDiscoveredInternalLinks),
		RouteQueued:             NewTopic[route.Route](EventRouteQueued),
		RouteCompleted:          NewTopic[RouteCompleted](EventRouteCompleted),
	}
}
