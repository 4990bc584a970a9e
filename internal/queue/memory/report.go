package memory

import (
	"time"

	"github.com/JakeFAU/site-route-discovery/internal/route"
)

// Status is the lifecycle state of a route report.
type Status string

// Report statuses.
const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Report tracks one route through the scan.
type Report struct {
	Route      route.Route `json:"route"`
	Status     Status      `json:"status"`
	QueuedAt   time.Time   `json:"queued_at"`
	StartedAt  time.Time   `json:"started_at,omitempty"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	LinksFound int         `json:"links_found"`
	Rendered   bool        `json:"rendered"`
	Error      string      `json:"error,omitempty"`

	attempt uint64
}

// Outcome is what a worker reports back when it finishes a route.
type Outcome struct {
	StatusCode int
	LinksFound int
	Rendered   bool
	Err        error
}
