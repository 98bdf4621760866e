package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kjstillabower/temp14-service/internal/models"
)

const forecastProvider = "forecast"

// ForecastClient fetches the raw forecast for a coordinate.
type ForecastClient interface {
	GetForecast(ctx context.Context, coord models.Coordinate) (models.Forecast, error)
}

// MetNoClient calls the met.no locationforecast API. Single attempt per call; no retries.
type MetNoClient struct {
	apiURL string
	getter *getter
}

// NewMetNoClient returns a client for apiURL. userAgent identifies the application,
// which met.no requires; requests without it are rejected with 403.
func NewMetNoClient(apiURL, userAgent string, timeout time.Duration) (*MetNoClient, error) {
	if _, err := url.Parse(apiURL); err != nil || apiURL == "" {
		return nil, fmt.Errorf("invalid forecast API URL %q", apiURL)
	}
	if userAgent == "" {
		return nil, fmt.Errorf("forecast client: user agent is required")
	}
	return &MetNoClient{
		apiURL: apiURL,
		getter: &getter{
			provider:  forecastProvider,
			userAgent: userAgent,
			client:    &http.Client{Timeout: timeout},
		},
	}, nil
}

// SetCircuitBreaker routes requests through cb. Pass nil to disable.
func (c *MetNoClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.getter.breaker = cb
}

// GetForecast returns the parsed forecast for coord.
func (c *MetNoClient) GetForecast(ctx context.Context, coord models.Coordinate) (models.Forecast, error) {
	rawURL, err := c.buildURL(coord)
	if err != nil {
		return models.Forecast{}, err
	}
	var forecast models.Forecast
	if err := c.getter.getJSON(ctx, rawURL, &forecast); err != nil {
		return models.Forecast{}, err
	}
	return forecast, nil
}

// buildURL sends coordinates at the same 4-decimal precision as the cache key,
// which is also the precision met.no asks clients to use.
func (c *MetNoClient) buildURL(coord models.Coordinate) (string, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	params := baseURL.Query()
	params.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(coord.Lon, 'f', 4, 64))
	baseURL.RawQuery = params.Encode()
	return baseURL.String(), nil
}
