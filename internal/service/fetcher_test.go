package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/temp14-service/internal/cache"
	"github.com/kjstillabower/temp14-service/internal/client"
	"github.com/kjstillabower/temp14-service/internal/models"
)

type countingClient struct {
	mu    sync.Mutex
	calls []models.Coordinate
	data  models.Forecast
	err   error
}

func (c *countingClient) GetForecast(ctx context.Context, coord models.Coordinate) (models.Forecast, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, coord)
	return c.data, c.err
}

func (c *countingClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	return models.Forecast{}, false, errors.New("connection refused")
}

func (failingCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	return errors.New("i/o timeout")
}

func TestCachedFetcher_ServesFromCacheWithinTTL(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	upstream := &countingClient{data: forecastOf(point(t, "2024-01-15T14:00:00Z", ptr(3)))}
	f := NewCachedFetcher(upstream, cache.NewInMemoryCache(cache.WithClock(clock.Now)), 10*time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(ctx, 44.8178131, 20.4568974); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		clock.Advance(time.Minute)
	}
	if got := upstream.callCount(); got != 1 {
		t.Errorf("upstream calls within TTL = %d, want 1", got)
	}

	clock.Advance(7 * time.Minute) // 10m since the first fetch
	if _, err := f.Fetch(ctx, 44.8178131, 20.4568974); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := upstream.callCount(); got != 2 {
		t.Errorf("upstream calls after TTL = %d, want 2", got)
	}
}

func TestCachedFetcher_NormalizedKeyShared(t *testing.T) {
	upstream := &countingClient{}
	f := NewCachedFetcher(upstream, cache.NewInMemoryCache(), time.Minute, nil)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, 44.81781, 20.45689); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(ctx, 44.81784, 20.45691); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(ctx, 44.8179, 20.4569); err != nil {
		t.Fatal(err)
	}
	if got := upstream.callCount(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestCachedFetcher_ErrorNotCached(t *testing.T) {
	upstream := &countingClient{err: &client.UpstreamStatusError{Provider: "forecast", Code: 500}}
	c := cache.NewInMemoryCache()
	f := NewCachedFetcher(upstream, c, time.Minute, nil)

	_, err := f.Fetch(context.Background(), 1, 2)
	var statusErr *client.UpstreamStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 500 {
		t.Fatalf("err = %v, want UpstreamStatusError 500", err)
	}
	if c.Len() != 0 {
		t.Errorf("cache len = %d, want 0 after failed fetch", c.Len())
	}

	upstream.err = nil
	if _, err := f.Fetch(context.Background(), 1, 2); err != nil {
		t.Fatalf("retry Fetch: %v", err)
	}
	if got := upstream.callCount(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestCachedFetcher_CacheFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	upstream := &countingClient{data: forecastOf(point(t, "2024-01-15T14:00:00Z", ptr(7)))}
	f := NewCachedFetcher(upstream, failingCache{}, time.Minute, zap.New(core))

	data, err := f.Fetch(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(data.Properties.Timeseries) != 1 {
		t.Errorf("timeseries len = %d, want 1", len(data.Properties.Timeseries))
	}
	if logs.FilterMessage("cache get failed").Len() != 1 {
		t.Error("expected cache get warning")
	}
	if logs.FilterMessage("cache set failed").Len() != 1 {
		t.Error("expected cache set warning")
	}
}

func TestCategorizeCacheError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "unknown"},
		{errors.New("i/o timeout"), "timeout"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("connection refused"), "connection"},
		{errors.New("decode cache envelope: bad json"), "decode"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := categorizeCacheError(tt.err); got != tt.want {
			t.Errorf("categorizeCacheError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
