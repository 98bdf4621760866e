package service

import "sync"

// missTracker counts upstream fetches in progress per cache key. It only observes:
// overlapping misses are not coordinated and the last cache write wins.
type missTracker struct {
	mu     sync.Mutex
	active map[string]int
}

func newMissTracker() *missTracker {
	return &missTracker{active: make(map[string]int)}
}

// begin records a miss for key and returns how many misses for key are now in progress.
// Callers must call end(key) once the fetch completes.
func (mt *missTracker) begin(key string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.active[key]++
	return mt.active[key]
}

// end records completion of a miss for key.
func (mt *missTracker) end(key string) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	n := mt.active[key]
	switch {
	case n <= 1:
		delete(mt.active, key)
	default:
		mt.active[key] = n - 1
	}
}
