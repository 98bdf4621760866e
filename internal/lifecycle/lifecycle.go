// Package lifecycle tracks process state reported by the health endpoint.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// State holds the draining flag and process start time. The zero value is not usable; use New.
type State struct {
	shuttingDown atomic.Bool
	startedAt    time.Time
}

// New returns a State that started now and is not shutting down.
func New() *State {
	return &State{startedAt: time.Now()}
}

// SetShuttingDown sets the draining flag. Call when SIGTERM/SIGINT is received.
// Health returns 503 with status shutting-down while true.
func (s *State) SetShuttingDown(v bool) {
	s.shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func (s *State) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Uptime returns the time since New.
func (s *State) Uptime() time.Duration {
	return time.Since(s.startedAt)
}
