// Package memory provides the in-process route work queue and the report store
// that tracks every route a scan has accepted.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-route-discovery/internal/hooks"
	"github.com/JakeFAU/site-route-discovery/internal/metrics"
	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// ErrQueueClosed is returned once Close has been called.
var ErrQueueClosed = errors.New("queue closed")

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Config controls Queue behavior.
type Config struct {
	// MaxRoutes caps how many routes the report store accepts; <= 0 means unbounded.
	MaxRoutes int
	Clock     Clock
	Logger    *zap.Logger
	// Queued, when set, is emitted for every route accepted by the queue.
	Queued *hooks.Topic[route.Route]
}

// Queue is an unbounded FIFO of routes, deduplicated against the report
// store. It is safe for concurrent producers and consumers.
type Queue struct {
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	pending    []route.Route
	pendingIDs map[string]struct{}
	reports    map[string]*Report
	order      []string
	inflight   int
	attempts   uint64
	started    bool
	closed     bool
	capWarned  bool

	notify      chan struct{}
	done        chan struct{}
	drained     chan struct{}
	closeOnce   sync.Once
	drainedOnce sync.Once
}

// NewQueue constructs an empty Queue.
func NewQueue(cfg Config) *Queue {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = utcClock{}
	}
	return &Queue{
		cfg:        cfg,
		logger:     logger,
		pendingIDs: make(map[string]struct{}),
		reports:    make(map[string]*Report),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		drained:    make(chan struct{}),
	}
}

// QueueRoute adds r unless it is already pending or reported, or the route
// cap has been reached. Both of those cases are silent no-ops.
func (q *Queue) QueueRoute(ctx context.Context, r route.Route) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("queue route canceled: %w", err)
	}
	accepted, err := q.add(r)
	if err != nil || !accepted {
		return err
	}
	q.signal()
	metrics.ObserveQueued()
	if q.cfg.Queued != nil {
		if err := q.cfg.Queued.Emit(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// QueueRoutes queues every route in order, stopping at the first error.
func (q *Queue) QueueRoutes(ctx context.Context, routes []route.Route) error {
	for _, r := range routes {
		if err := q.QueueRoute(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) add(r route.Route) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, ErrQueueClosed
	}
	if _, ok := q.pendingIDs[r.ID]; ok {
		return false, nil
	}
	if _, ok := q.reports[r.ID]; ok {
		return false, nil
	}
	if q.cfg.MaxRoutes > 0 && len(q.reports) >= q.cfg.MaxRoutes {
		if !q.capWarned {
			q.capWarned = true
			q.logger.Warn("route limit reached; ignoring further routes",
				zap.Int("max_routes", q.cfg.MaxRoutes),
				zap.String("path", r.Path),
			)
		}
		return false, nil
	}
	q.reports[r.ID] = &Report{
		Route:    r,
		Status:   StatusWaiting,
		QueuedAt: q.cfg.Clock.Now(),
	}
	q.order = append(q.order, r.ID)
	q.pending = append(q.pending, r)
	q.pendingIDs[r.ID] = struct{}{}
	return true, nil
}

// Lease is a dequeued route together with the attempt that owns its report.
type Lease struct {
	Route   route.Route
	Attempt uint64
}

// Dequeue pops the next route, blocking until one is available, the context
// ends, or the queue is closed.
func (q *Queue) Dequeue(ctx context.Context) (Lease, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Lease{}, fmt.Errorf("dequeue canceled: %w", err)
		}
		lease, ok, err := q.pop()
		if err != nil {
			return Lease{}, err
		}
		if ok {
			return lease, nil
		}
		select {
		case <-ctx.Done():
			return Lease{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.done:
		case <-q.notify:
		}
	}
}

func (q *Queue) pop() (Lease, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		if q.closed {
			return Lease{}, false, ErrQueueClosed
		}
		return Lease{}, false, nil
	}
	r := q.pending[0]
	q.pending[0] = route.Route{}
	q.pending = q.pending[1:]
	delete(q.pendingIDs, r.ID)
	q.inflight++
	q.started = true

	rep, ok := q.reports[r.ID]
	if !ok {
		// Reports were cleared while the route was pending.
		rep = &Report{Route: r, QueuedAt: q.cfg.Clock.Now()}
		q.reports[r.ID] = rep
		q.order = append(q.order, r.ID)
	}
	q.attempts++
	rep.Status = StatusInProgress
	rep.StartedAt = q.cfg.Clock.Now()
	rep.attempt = q.attempts

	if len(q.pending) > 0 {
		q.signalLocked()
	}
	return Lease{Route: r, Attempt: q.attempts}, true, nil
}

// Complete records the outcome of a dequeued route. Only the report owned by
// the lease's attempt is updated, so an outcome for a report that ClearReports
// replaced is dropped. Once nothing is pending or in flight the Drained
// channel is closed.
func (q *Queue) Complete(lease Lease, outcome Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight > 0 {
		q.inflight--
	}
	rep, ok := q.reports[lease.Route.ID]
	if ok && rep.Status == StatusInProgress && rep.attempt == lease.Attempt {
		rep.FinishedAt = q.cfg.Clock.Now()
		rep.StatusCode = outcome.StatusCode
		rep.LinksFound = outcome.LinksFound
		rep.Rendered = outcome.Rendered
		rep.Status = StatusCompleted
		if outcome.Err != nil {
			rep.Status = StatusFailed
			rep.Error = outcome.Err.Error()
		}
	}
	if q.started && q.inflight == 0 && len(q.pending) == 0 {
		q.drainedOnce.Do(func() { close(q.drained) })
	}
}

// Drained is closed once every accepted route has been completed.
func (q *Queue) Drained() <-chan struct{} {
	return q.drained
}

// Len returns the number of routes waiting to be dequeued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ClearReports forgets every collected report so those routes may be queued
// again. Routes that are still pending stay queued.
func (q *Queue) ClearReports() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reports = make(map[string]*Report)
	q.order = nil
	q.capWarned = false
}

// Reports returns a copy of the report store in the order routes were accepted.
func (q *Queue) Reports() []Report {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Report, 0, len(q.order))
	for _, id := range q.order {
		if rep, ok := q.reports[id]; ok {
			out = append(out, *rep)
		}
	}
	return out
}

// Close stops the queue. Pending routes can still be dequeued; new routes
// are rejected. Closing twice is safe.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

func (q *Queue) signal() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.signalLocked()
}

func (q *Queue) signalLocked() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }
