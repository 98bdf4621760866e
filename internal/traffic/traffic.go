// Package traffic keeps a sliding window of request outcomes for health reporting.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept regardless of the queried window.
const retention = 5 * time.Minute

// Window records successful and failed forecast requests with their timestamps.
// Safe for concurrent use.
type Window struct {
	mu           sync.Mutex
	now          func() time.Time
	successTimes []time.Time
	errorTimes   []time.Time
}

// NewWindow returns an empty Window using the wall clock.
func NewWindow() *Window {
	return &Window{now: time.Now}
}

// newWindowWithClock is used by tests to control time.
func newWindowWithClock(now func() time.Time) *Window {
	return &Window{now: now}
}

// RecordSuccess records a request that produced temperatures.
func (w *Window) RecordSuccess() {
	w.record(&w.successTimes)
}

// RecordError records a request that failed upstream (network, status, decode).
func (w *Window) RecordError() {
	w.record(&w.errorTimes)
}

func (w *Window) record(slice *[]time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	*slice = append(*slice, now)
	w.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func (w *Window) ErrorRate(window time.Duration) (errors, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.now().Add(-window)
	errCount := countSince(w.errorTimes, cutoff)
	return errCount, errCount + countSince(w.successTimes, cutoff)
}

// Degraded reports whether the error rate within window exceeds thresholdPct.
// An empty window is never degraded.
func (w *Window) Degraded(window time.Duration, thresholdPct int) bool {
	errCount, total := w.ErrorRate(window)
	if total == 0 {
		return false
	}
	return errCount*100 > thresholdPct*total
}

// Reset clears all recorded outcomes.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.successTimes = nil
	w.errorTimes = nil
}

// countSince counts timestamps that are not before cutoff.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Must be called with mu held.
func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&w.successTimes)
	prune(&w.errorTimes)
}
