package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/models"
	"github.com/kjstillabower/temp14-service/internal/observability"
)

// ForecastFetcher is implemented by the service layer's cached fetcher.
// Used by CacheWarmer to avoid a circular dependency on the service package.
type ForecastFetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (models.Forecast, error)
}

// CacheWarmer warms the cache by prefetching forecasts for a list of coordinates.
type CacheWarmer struct {
	fetcher   ForecastFetcher
	logger    *zap.Logger
	scheduler *gocron.Scheduler
	timeout   time.Duration
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher ForecastFetcher, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{fetcher: fetcher, logger: logger, timeout: 30 * time.Second}
}

// Warm fetches each location concurrently; the fetcher populates the cache.
// Returns an aggregated error if any location failed.
func (w *CacheWarmer) Warm(ctx context.Context, locations []models.Coordinate) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("locations", len(locations)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.Fetch(ctx, loc.Lat, loc.Lon); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", loc.Key(), err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete", zap.Int("locations", len(locations)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// StartPeriodic schedules Warm every interval, starting one interval from now.
// Runs never overlap. Call Stop during shutdown.
func (w *CacheWarmer) StartPeriodic(locations []models.Coordinate, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("warm interval must be positive, got %s", interval)
	}
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).WaitForSchedule().SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.Warm(ctx, locations); err != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	s.StartAsync()
	w.scheduler = s
	return nil
}

// Stop halts periodic warming. Safe to call when StartPeriodic was never called.
func (w *CacheWarmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
