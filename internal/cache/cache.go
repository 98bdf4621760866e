package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kjstillabower/temp14-service/internal/models"
)

// Cache defines the interface for forecast payload caching implementations.
// Get returns the payload if present and younger than its TTL, Set stores it with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.Forecast, bool, error)
	Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error
}

// Option configures an InMemoryCache.
type Option func(*InMemoryCache)

// WithClock overrides the time source. Used by tests to step past the TTL.
func WithClock(now func() time.Time) Option {
	return func(c *InMemoryCache) {
		c.now = now
	}
}

// InMemoryCache implements Cache using a map keyed by normalized coordinates.
// Entries are never evicted; an expired entry is reported as a miss and replaced
// by the next Set for the same key. Growth is unbounded.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	now  func() time.Time
}

// cacheEntry stores a forecast payload with the time it was fetched.
type cacheEntry struct {
	value     models.Forecast
	fetchedAt time.Time
	ttl       time.Duration
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache(opts ...Option) *InMemoryCache {
	c := &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns (payload, true, nil) on a hit and (zero, false, nil) when the key is
// absent or now - fetchedAt >= ttl.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.Forecast{}, false, nil
	}
	if c.now().Sub(entry.fetchedAt) >= entry.ttl {
		return models.Forecast{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the payload stamped with the current time, replacing any previous entry.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     value,
		fetchedAt: c.now(),
		ttl:       ttl,
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// envelope is the wire format shared by the networked backends. ExpiresAt is
// re-checked on read so a server that keeps items slightly longer than asked
// never serves a stale forecast.
type envelope struct {
	Payload   models.Forecast `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func encodeEnvelope(value models.Forecast, now time.Time, ttl time.Duration) ([]byte, error) {
	raw, err := json.Marshal(envelope{Payload: value, FetchedAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return raw, nil
}

// decodeEnvelope returns the payload and whether it is still fresh at now.
func decodeEnvelope(raw []byte, now time.Time) (models.Forecast, bool, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Forecast{}, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if !now.Before(env.ExpiresAt) {
		return models.Forecast{}, false, nil
	}
	return env.Payload, true, nil
}

// expirySeconds converts a TTL to the whole-second expiry used by memcached and valkey,
// rounding up so the server never drops an entry before its envelope expires.
func expirySeconds(ttl time.Duration) int64 {
	sec := int64((ttl + time.Second - 1) / time.Second)
	if sec <= 0 {
		sec = 1
	}
	return sec
}
