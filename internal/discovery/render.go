package discovery

import (
	"sync"
	"sync/atomic"
)

// RenderSwitch holds the process-wide "skip JavaScript" flag. Fetchers read
// it without locking; the reactor flips it from true to false at most once.
type RenderSwitch struct {
	skip      atomic.Bool
	mu        sync.Mutex
	escalated bool
}

// NewRenderSwitch returns a switch starting at the configured value.
func NewRenderSwitch(skipJavascript bool) *RenderSwitch {
	s := &RenderSwitch{}
	s.skip.Store(skipJavascript)
	return s
}

// SkipJavascript reports whether pages should be fetched without executing
// scripts. The value is read fresh on every call.
func (s *RenderSwitch) SkipJavascript() bool {
	return s.skip.Load()
}

// Escalated reports whether Escalate has switched rendering on.
func (s *RenderSwitch) Escalated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.escalated
}

// Escalate turns JavaScript execution on if it is currently skipped and runs
// onEscalate while still holding the lock. It returns false, without calling
// onEscalate, when scripts already run or a previous call escalated.
func (s *RenderSwitch) Escalate(onEscalate func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.escalated || !s.skip.Load() {
		return false
	}
	s.skip.Store(false)
	s.escalated = true
	if onEscalate != nil {
		onEscalate()
	}
	return true
}
