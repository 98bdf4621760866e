package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/client"
	"github.com/kjstillabower/temp14-service/internal/models"
	"github.com/kjstillabower/temp14-service/internal/observability"
)

// Messages returned in ForecastResult.ErrorMessage. Clients match on these strings.
const (
	MsgForecastNetwork = "An error occurred while requesting weather forecast API."
	MsgForecastDecode  = "Error decoding JSON response from weather forecast API."
	msgForecastStatus  = "Error code %d requesting weather forecast API."
)

// Fetcher returns the raw forecast payload for a coordinate.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (models.Forecast, error)
}

// TimezoneResolver maps a coordinate to an IANA timezone name, "" when unknown.
type TimezoneResolver interface {
	Resolve(lat, lon float64) string
}

// ForecastService turns forecast payloads into daily 14:00 local temperatures.
type ForecastService struct {
	fetcher  Fetcher
	resolver TimezoneResolver
	logger   *zap.Logger
}

// NewForecastService creates a ForecastService. A nil logger is replaced with a no-op logger.
func NewForecastService(fetcher Fetcher, resolver TimezoneResolver, logger *zap.Logger) *ForecastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastService{fetcher: fetcher, resolver: resolver, logger: logger}
}

// GetDailyTemperatures returns the 14:00 local temperatures for (lat, lon). Failures are
// reported through ErrorMessage; the method never returns an error.
func (s *ForecastService) GetDailyTemperatures(ctx context.Context, lat, lon float64) models.ForecastResult {
	logger := observability.LoggerFromContext(ctx, s.logger)

	data, err := s.fetcher.Fetch(ctx, lat, lon)
	if err != nil {
		category := client.CategorizeError(err)
		observability.ForecastResultsTotal.WithLabelValues(string(category)).Inc()
		logger.Warn("forecast fetch failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return models.Failed(forecastErrorMessage(err))
	}

	tzID := s.resolver.Resolve(lat, lon)
	if tzID == "" {
		observability.TimezoneFallbackTotal.Inc()
		logger.Debug("no timezone for coordinate, using UTC", zap.Float64("lat", lat), zap.Float64("lon", lon))
	}

	temps := ExtractDailyTemperatures(data, tzID)
	observability.ForecastResultsTotal.WithLabelValues("ok").Inc()
	return models.Succeeded(temps)
}

// forecastErrorMessage maps a fetch error to the caller-facing message. Unclassified
// errors use the network message.
func forecastErrorMessage(err error) string {
	var statusErr *client.UpstreamStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf(msgForecastStatus, statusErr.Code)
	}
	var decodeErr *client.DecodeError
	if errors.As(err, &decodeErr) {
		return MsgForecastDecode
	}
	return MsgForecastNetwork
}
